// Package config handles configuration loading for loyalty-form.
//
// # Overview
//
// Configuration comes from an optional YAML (or TOML) file plus environment
// variables. The file is expanded first (${VAR} references), then well-known
// variables override whatever the file said.
//
// # Configuration File
//
// Location (in order):
//
//  1. Path from LOYALTY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/loyalty-form/config.yaml
//  3. ~/.config/loyalty-form/config.yaml
//
// A missing file is fine: the service then runs on defaults and environment.
//
// # Environment Variables
//
//	JWT_SECRET        vendor HS256 secret (VITE_JWT_SECRET accepted)
//	API_BASE_URL      loyalty API base URL (VITE_API_BASE_URL accepted)
//	API_TOKEN         loyalty API bearer token (VITE_API_TOKEN accepted)
//	LOYALTY_ENV       "production" disables unverified token decoding
//	LOYALTY_HTTP_ADDR listen address
//	LOYALTY_DB_PATH   logo store path
//
// # Example
//
//	environment: production
//	server:
//	  http_addr: "0.0.0.0:3000"
//	auth:
//	  jwt_secret: "${JWT_SECRET}"
//	upstream:
//	  base_url: "https://loyalty.example.com"
//	  api_token: "${API_TOKEN}"
//	  group_ids: [46]
//	  timeout: "5s"            # empty means no client deadline
//	enrichment:
//	  cache_ttl: "10m"         # empty disables the profile cache
//	branding:
//	  rules:
//	    - evse_id: "171"
//	      logo_url: "https://cdn.example.com/partner.png"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
