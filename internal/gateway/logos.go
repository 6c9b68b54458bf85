// ABOUTME: Logo page and JSON API backed by the logo store
// ABOUTME: Writes require HTTP basic auth checked against a bcrypt hash

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/loyalty-form/internal/pages"
	"github.com/2389/loyalty-form/internal/store"
)

const adminRealm = "loyalty-form"

// maxLogoFormBytes bounds logo form and JSON bodies.
const maxLogoFormBytes = 16 << 10

// logoRequest is the JSON body for POST /api/logos and PUT /api/logos/current.
type logoRequest struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	MakeCurrent bool   `json:"makeCurrent,omitempty"`
}

// logoListResponse is the JSON response for GET /api/logos.
type logoListResponse struct {
	Logos   []*store.Logo `json:"logos"`
	Current string        `json:"current,omitempty"`
}

func (g *Gateway) registerLogoRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /logo", g.handleLogoPage)
	mux.HandleFunc("POST /logo", g.requireAdmin(g.handleLogoForm))

	mux.HandleFunc("GET /api/logos", g.handleListLogos)
	mux.HandleFunc("POST /api/logos", g.requireAdmin(g.handleCreateLogo))
	mux.HandleFunc("GET /api/logos/current", g.handleGetCurrentLogo)
	mux.HandleFunc("PUT /api/logos/current", g.requireAdmin(g.handleSetCurrentLogo))
	mux.HandleFunc("DELETE /api/logos/{filename}", g.requireAdmin(g.handleDeleteLogo))
}

// requireAdmin guards logo writes. With no hash configured writes are refused.
func (g *Gateway) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := g.config.Branding.AdminPasswordHash
		if hash == "" {
			g.sendJSONError(w, http.StatusForbidden, "logo administration is disabled")
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+adminRealm+`", charset="UTF-8"`)
			g.sendJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next(w, r)
	}
}

// handleSuccess renders the confirmation page. evseId and evseReference
// query parameters select the logo.
func (g *Gateway) handleSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g.pages.Success(w, pages.SuccessData{
		LogoURL: g.resolveLogo(r.Context(), q.Get("evseId"), q.Get("evseReference")),
	})
}

func (g *Gateway) handleRedirect(w http.ResponseWriter, r *http.Request) {
	g.pages.Redirect(w)
}

func (g *Gateway) logoPageData(r *http.Request) (pages.LogoData, error) {
	logos, err := g.store.ListLogos(r.Context())
	if err != nil {
		return pages.LogoData{}, err
	}
	current, err := g.store.CurrentLogo(r.Context())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return pages.LogoData{}, err
	}
	return pages.LogoData{Logos: logos, Current: current}, nil
}

func (g *Gateway) handleLogoPage(w http.ResponseWriter, r *http.Request) {
	data, err := g.logoPageData(r)
	if err != nil {
		g.logger.Error("failed to load logos", "error", err)
		g.pages.Error(w, http.StatusInternalServerError, pages.ErrorData{Message: "Could not load logos"})
		return
	}
	data.Saved = r.URL.Query().Get("saved") == "1"
	g.pages.Logo(w, http.StatusOK, data)
}

// handleLogoForm stores the submitted logo and makes it current.
func (g *Gateway) handleLogoForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoFormBytes)
	if err := r.ParseForm(); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid form")
		return
	}

	rawURL := strings.TrimSpace(r.PostFormValue("url"))
	if rawURL == "" {
		g.renderLogoFormError(w, r, "Please enter a logo URL")
		return
	}

	logo, err := g.store.StoreLogo(r.Context(), rawURL, r.PostFormValue("name"))
	if errors.Is(err, store.ErrInvalidURL) {
		g.renderLogoFormError(w, r, "Invalid logo URL")
		return
	}
	if err != nil {
		g.logger.Error("failed to store logo", "error", err)
		g.pages.Error(w, http.StatusInternalServerError, pages.ErrorData{Message: "Could not save logo"})
		return
	}

	if err := g.store.SetCurrentLogo(r.Context(), logo.URL); err != nil {
		g.logger.Error("failed to set current logo", "error", err)
		g.pages.Error(w, http.StatusInternalServerError, pages.ErrorData{Message: "Could not save logo"})
		return
	}

	g.logger.Info("logo saved", "filename", logo.Filename)
	http.Redirect(w, r, "/logo?saved=1", http.StatusSeeOther)
}

func (g *Gateway) renderLogoFormError(w http.ResponseWriter, r *http.Request, msg string) {
	data, err := g.logoPageData(r)
	if err != nil {
		g.logger.Error("failed to load logos", "error", err)
	}
	data.Error = msg
	g.pages.Logo(w, http.StatusBadRequest, data)
}

func (g *Gateway) handleListLogos(w http.ResponseWriter, r *http.Request) {
	logos, err := g.store.ListLogos(r.Context())
	if err != nil {
		g.logger.Error("failed to list logos", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to list logos")
		return
	}
	if logos == nil {
		logos = []*store.Logo{}
	}

	current, err := g.store.CurrentLogo(r.Context())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		g.logger.Error("failed to get current logo", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to get current logo")
		return
	}

	writeJSON(w, http.StatusOK, logoListResponse{Logos: logos, Current: current})
}

func (g *Gateway) decodeLogoRequest(w http.ResponseWriter, r *http.Request) (*logoRequest, bool) {
	var req logoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLogoFormBytes)).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		g.sendJSONError(w, http.StatusBadRequest, "url is required")
		return nil, false
	}
	return &req, true
}

func (g *Gateway) handleCreateLogo(w http.ResponseWriter, r *http.Request) {
	req, ok := g.decodeLogoRequest(w, r)
	if !ok {
		return
	}

	logo, err := g.store.StoreLogo(r.Context(), req.URL, req.Name)
	if errors.Is(err, store.ErrInvalidURL) {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		g.logger.Error("failed to store logo", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to store logo")
		return
	}

	if req.MakeCurrent {
		if err := g.store.SetCurrentLogo(r.Context(), logo.URL); err != nil {
			g.logger.Error("failed to set current logo", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "failed to set current logo")
			return
		}
	}

	writeJSON(w, http.StatusCreated, logo)
}

func (g *Gateway) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	err := g.store.DeleteLogo(r.Context(), filename)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "logo not found")
		return
	}
	if err != nil {
		g.logger.Error("failed to delete logo", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to delete logo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleGetCurrentLogo(w http.ResponseWriter, r *http.Request) {
	current, err := g.store.CurrentLogo(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "no current logo")
		return
	}
	if err != nil {
		g.logger.Error("failed to get current logo", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to get current logo")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": current})
}

func (g *Gateway) handleSetCurrentLogo(w http.ResponseWriter, r *http.Request) {
	req, ok := g.decodeLogoRequest(w, r)
	if !ok {
		return
	}

	err := g.store.SetCurrentLogo(r.Context(), req.URL)
	if errors.Is(err, store.ErrInvalidURL) {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		g.logger.Error("failed to set current logo", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to set current logo")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": req.URL})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
