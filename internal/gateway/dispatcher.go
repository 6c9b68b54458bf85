// ABOUTME: Request dispatcher for the form entry point
// ABOUTME: Branches on method into preflight, form render, submission relay or 405

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/pages"
)

// Token sources, in lookup order.
const (
	payloadHeader = "X-Payload"
	payloadParam  = "payload"
	tokenParam    = "token"
)

// maxSubmissionBytes bounds the POST body.
const maxSubmissionBytes = 64 << 10

// sampleTokenTTL is the lifetime of tokens minted for the info page.
const sampleTokenTTL = time.Hour

var loyaltyNumberPattern = regexp.MustCompile(`^\d{7}$`)

// Submission errors
var (
	ErrMissingUserID        = errors.New("missing userId")
	ErrInvalidLoyaltyNumber = errors.New("loyaltyNumber must be exactly 7 digits")
	ErrUserIDMismatch       = errors.New("userId does not match token")
)

// MalformedBodyError reports a POST body that is not a JSON object.
type MalformedBodyError struct {
	Err error
}

func (e *MalformedBodyError) Error() string { return e.Err.Error() }

func (e *MalformedBodyError) Unwrap() error { return e.Err }

// Submission is the JSON body posted by the form.
type Submission struct {
	UserID        string
	LoyaltyNumber string
}

// setCORSHeaders applies the permissive CORS policy the vendor webview needs.
func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-Payload")
}

// handleRoot is the single entry point for / and /index.html.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
		g.handleFormGet(w, r)
	case http.MethodPost:
		g.handleFormPost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte("Method Not Allowed"))
	}
}

// extractToken returns the first non-empty token source.
func extractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(payloadHeader)); token != "" {
		return token
	}
	q := r.URL.Query()
	if token := strings.TrimSpace(q.Get(payloadParam)); token != "" {
		return token
	}
	return strings.TrimSpace(q.Get(tokenParam))
}

func (g *Gateway) handleFormGet(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		g.pages.Info(w, pages.InfoData{SampleURL: g.sampleURL(r)})
		return
	}

	sc, err := g.normalizer.Resolve(r.Context(), token)
	if err != nil {
		g.logger.Warn("token rejected", "method", r.Method, "error", err, "request_id", RequestIDFromContext(r.Context()))
		g.pages.Error(w, http.StatusInternalServerError, pages.ErrorData{Message: tokenErrorMessage(err)})
		return
	}

	g.pages.Form(w, pages.FormData{
		Session: *sc,
		Token:   token,
		LogoURL: g.resolveLogo(r.Context(), sc.EVSEID, sc.EVSEReference),
	})
}

func tokenErrorMessage(err error) string {
	if errors.Is(err, auth.ErrExpiredToken) {
		return "Token expired"
	}
	return "Invalid token"
}

// sampleURL mints a nested-shape test token outside production.
func (g *Gateway) sampleURL(r *http.Request) string {
	if g.config.IsProduction() {
		return ""
	}

	token, err := g.signer.SignNested(auth.SessionContext{
		EVSEID:        "123",
		EVSEReference: "TEST123",
	}, "test", sampleTokenTTL)
	if err != nil {
		g.logger.Error("failed to mint sample token", "error", err)
		return ""
	}

	return g.baseURL(r) + "/?" + payloadParam + "=" + token
}

// baseURL returns the configured public URL or one derived from the request.
func (g *Gateway) baseURL(r *http.Request) string {
	if g.publicURL != "" {
		return strings.TrimSuffix(g.publicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// handleFormPost enrolls the token's user. The body's userId must match it.
func (g *Gateway) handleFormPost(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Missing token")
		return
	}

	sc, err := g.normalizer.Decode(token)
	if err != nil {
		g.logger.Warn("token rejected", "method", r.Method, "error", err, "request_id", RequestIDFromContext(r.Context()))
		g.sendJSONError(w, http.StatusUnauthorized, tokenErrorMessage(err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub, err := parseSubmission(body)
	switch {
	case errors.Is(err, ErrMissingUserID):
		g.sendJSONError(w, http.StatusBadRequest, "Missing userId")
		return
	case errors.Is(err, ErrInvalidLoyaltyNumber):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if sub.UserID != sc.UserID {
		g.logger.Warn("submission userId does not match token", "request_id", RequestIDFromContext(r.Context()))
		g.sendJSONError(w, http.StatusForbidden, ErrUserIDMismatch.Error())
		return
	}

	relay, err := g.loyalty.AssignGroups(r.Context(), sc.UserID, g.config.Upstream.GroupIDs)
	if err != nil {
		g.logger.Error("group assignment failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := relay.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(relay.Status)
	_, _ = w.Write(relay.Body)
}

// parseSubmission decodes the form body. userId may be a string or a number.
func parseSubmission(body []byte) (*Submission, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, &MalformedBodyError{Err: err}
	}

	sub := &Submission{
		UserID:        scalarString(fields["userId"]),
		LoyaltyNumber: scalarString(fields["loyaltyNumber"]),
	}
	if sub.UserID == "" {
		return nil, ErrMissingUserID
	}
	if fields["loyaltyNumber"] != nil && !loyaltyNumberPattern.MatchString(sub.LoyaltyNumber) {
		return nil, ErrInvalidLoyaltyNumber
	}
	return sub, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
