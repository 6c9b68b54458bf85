// Package auth turns vendor-issued tokens into a normalized session context.
//
// # Verification Strategies
//
// Tokens are HS256 JWTs signed by the vendor backend. The configured secret may
// be stored base64 encoded or as plain text, so decoding runs an ordered list
// of strategies and keeps the first success:
//
//  1. base64-secret: HS256 with the base64-decoded secret bytes
//  2. raw-secret: HS256 with the secret's UTF-8 bytes
//  3. unverified: payload decoded without a signature check
//
// The unverified strategy is only part of the chain outside production, and
// is skipped for a token whose signature verified but whose exp has passed.
//
//	decoder := auth.NewDecoder(logger, auth.DefaultStrategies(secret, cfg.IsProduction())...)
//
// # Payload Shapes
//
// Two shapes are accepted and normalized identically:
//
//	{"userId": "42", "evseId": "171", "firstName": "Ann", "evseReference": "FR*3864"}
//	{"payload": {"type": "...", "parameters": {"userId": 42, "evseId": 171, "evsePhysicalReference": "FR*3864"}}}
//
// Numeric IDs are returned as their decimal text.
//
// # Enrichment
//
// When a token carries a user ID but no first name, Normalizer.Resolve asks
// its ProfileLookup for the name. Lookup failures are logged and ignored.
// Normalizer.Decode skips the lookup; form submissions use it.
package auth
