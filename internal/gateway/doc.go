// Package gateway is the loyalty form's HTTP server.
//
// # Routes
//
//	/ and /index.html          form entry point (OPTIONS, GET, POST; others 405)
//	GET  /success               confirmation page
//	GET  /redirect              hand-back page
//	GET  /logo, POST /logo      logo page and form
//	GET  /api/logos             list logos and the current one
//	POST /api/logos             add a logo
//	DELETE /api/logos/{name}    remove a logo
//	GET|PUT /api/logos/current  read or select the current logo
//	GET  /static/...            embedded script and stylesheet
//	GET  /health, /health/ready liveness and store readiness
//
// # Form Entry Point
//
// Every response from the entry point carries permissive CORS headers. A GET
// looks for a token in the X-Payload header, then the payload and token query
// parameters. Without one the informational page is shown; with one the
// token is normalized and the form rendered. A POST must carry the same
// token, found the same way, and a userId equal to the token's. It relays a
// group assignment to the loyalty API and passes its status and body
// straight back.
//
// # Logo Administration
//
// Logo writes use HTTP basic auth. The password is checked against
// branding.admin_password_hash (bcrypt); the username is ignored. With no
// hash configured all writes return 403.
//
// # Listeners
//
// The server listens on server.http_addr, or joins a tailnet with tsnet when
// tailscale.enabled is set. Funnel mode makes the form publicly reachable,
// which the vendor webview requires.
package gateway
