// ABOUTME: Tests for the logo page, logo JSON API and admin guard
// ABOUTME: Uses a low-cost bcrypt hash for the admin password

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/loyalty-form/internal/config"
	"github.com/2389/loyalty-form/internal/store"
)

const adminPassword = "hunter2"

func adminConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Branding.AdminPasswordHash = string(hash)
	return cfg
}

func asAdmin(req *http.Request) *http.Request {
	req.SetBasicAuth("anyone", adminPassword)
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/logo", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogoWrites_DisabledWithoutHash(t *testing.T) {
	gw, s := newTestGateway(t, testConfig(t))

	rec := serve(gw, asAdmin(jsonRequest(http.MethodPost, "/api/logos", `{"url":"https://cdn.example.com/a.png"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	logos, err := s.ListLogos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, logos)
}

func TestLogoWrites_RequireCredentials(t *testing.T) {
	gw, _ := newTestGateway(t, adminConfig(t))

	rec := serve(gw, jsonRequest(http.MethodPost, "/api/logos", `{"url":"https://cdn.example.com/a.png"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := jsonRequest(http.MethodPost, "/api/logos", `{"url":"https://cdn.example.com/a.png"}`)
	req.SetBasicAuth("admin", "wrong")
	rec = serve(gw, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoReads_ArePublic(t *testing.T) {
	gw, _ := newTestGateway(t, adminConfig(t))

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/api/logos", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logos":[]}`, rec.Body.String())

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/api/logos/current", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/logo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Customize Logo")
}

func TestLogoAPI_Lifecycle(t *testing.T) {
	gw, _ := newTestGateway(t, adminConfig(t))

	rec := serve(gw, asAdmin(jsonRequest(http.MethodPost, "/api/logos", `{"url":"https://cdn.example.com/acme.png","makeCurrent":true}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created store.Logo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "acme.png", created.Filename)

	rec = serve(gw, asAdmin(jsonRequest(http.MethodPost, "/api/logos", `{"url":"https://cdn.example.com/x.svg","name":"other"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/api/logos", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list logoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Logos, 2)
	assert.Equal(t, "https://cdn.example.com/acme.png", list.Current)

	rec = serve(gw, asAdmin(jsonRequest(http.MethodPut, "/api/logos/current", `{"url":"https://cdn.example.com/x.svg"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/api/logos/current", nil))
	assert.JSONEq(t, `{"url":"https://cdn.example.com/x.svg"}`, rec.Body.String())

	rec = serve(gw, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/logos/acme.png", nil)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(gw, asAdmin(httptest.NewRequest(http.MethodDelete, "/api/logos/acme.png", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoAPI_RejectsBadInput(t *testing.T) {
	gw, _ := newTestGateway(t, adminConfig(t))

	tests := map[string]*http.Request{
		"not json":      jsonRequest(http.MethodPost, "/api/logos", `{`),
		"missing url":   jsonRequest(http.MethodPost, "/api/logos", `{"name":"x"}`),
		"bad scheme":    jsonRequest(http.MethodPost, "/api/logos", `{"url":"javascript:alert(1)"}`),
		"current ftp":   jsonRequest(http.MethodPut, "/api/logos/current", `{"url":"ftp://cdn.example.com/a.png"}`),
		"current empty": jsonRequest(http.MethodPut, "/api/logos/current", `{"url":" "}`),
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(gw, asAdmin(req))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogoForm_SavesAndRedirects(t *testing.T) {
	gw, s := newTestGateway(t, adminConfig(t))

	rec := serve(gw, asAdmin(formRequest(url.Values{"url": {"https://cdn.example.com/brand.png"}})))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/logo?saved=1", rec.Header().Get("Location"))

	current, err := s.CurrentLogo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/brand.png", current)

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/logo?saved=1", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "Logo saved.")
	assert.Contains(t, body, "brand.png")
	assert.Contains(t, body, "current-badge")
}

func TestLogoForm_InvalidInput(t *testing.T) {
	gw, _ := newTestGateway(t, adminConfig(t))

	rec := serve(gw, asAdmin(formRequest(url.Values{"url": {""}})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a logo URL")

	rec = serve(gw, asAdmin(formRequest(url.Values{"url": {"not a url"}})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid logo URL")
}

func TestStoredLogoUsedOnForm(t *testing.T) {
	gw, s := newTestGateway(t, testConfig(t))
	require.NoError(t, s.SetCurrentLogo(context.Background(), "https://cdn.example.com/stored.png"))

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/success", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="https://cdn.example.com/stored.png"`)
	assert.Contains(t, rec.Body.String(), "Thank you!")
}

func TestSuccessPage_UsesRuleFromQuery(t *testing.T) {
	cfg := testConfig(t)
	cfg.Branding.Rules = []config.LogoRule{{EVSEID: "171", LogoURL: "https://cdn.example.com/evse.png"}}
	gw, _ := newTestGateway(t, cfg)

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/success?evseId=171", nil))
	assert.Contains(t, rec.Body.String(), `src="https://cdn.example.com/evse.png"`)

	rec = serve(gw, httptest.NewRequest(http.MethodGet, "/success", nil))
	assert.Contains(t, rec.Body.String(), `src="`+config.DefaultLogoURL+`"`)
}

func TestRedirectPage(t *testing.T) {
	gw, _ := newTestGateway(t, testConfig(t))

	rec := serve(gw, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Returning to app")
}
