// ABOUTME: Server-rendered pages for the loyalty form
// ABOUTME: Parses embedded templates once and renders them with typed page data

// Package pages renders the HTML the service returns: the informational page,
// the loyalty form, and the error, success, redirect and logo pages.
package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/2389/loyalty-form/internal/assets"
	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/store"
)

// Page template names
const (
	PageInfo     = "info"
	PageForm     = "form"
	PageError    = "error"
	PageSuccess  = "success"
	PageRedirect = "redirect"
	PageLogo     = "logo"
)

var allPages = []string{PageInfo, PageForm, PageError, PageSuccess, PageRedirect, PageLogo}

// InfoData is shown when the root URL is opened without a token.
type InfoData struct {
	// SampleURL is a ready-to-open link with a test token. Empty in production.
	SampleURL string
}

// FormData pre-fills the loyalty form.
type FormData struct {
	Session auth.SessionContext
	// Token is echoed back by the client script on submit.
	Token   string
	LogoURL string
}

// ErrorData describes a failed page load.
type ErrorData struct {
	Title   string
	Message string
}

// SuccessData is shown after a card number was accepted.
type SuccessData struct {
	LogoURL string
}

// LogoData lists the logo registry.
type LogoData struct {
	Logos   []*store.Logo
	Current string
	Error   string
	Saved   bool
}

// Renderer renders pages from the embedded templates.
type Renderer struct {
	templates map[string]*template.Template
	infoHTML  template.HTML
	logger    *slog.Logger
}

// pageData wraps page-specific data with what the base layout needs.
type pageData struct {
	Title string
	Info  template.HTML
	Data  any
}

var funcs = template.FuncMap{
	"asset": assets.URL,
}

// New parses every page template and renders the informational copy.
func New(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Renderer{
		templates: make(map[string]*template.Template, len(allPages)),
		logger:    logger.With("component", "pages"),
	}

	for _, name := range allPages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	md, err := fs.ReadFile(contentFS, "content/info.md")
	if err != nil {
		return nil, fmt.Errorf("reading info copy: %w", err)
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("rendering info copy: %w", err)
	}
	r.infoHTML = template.HTML(buf.String())

	return r, nil
}

// Info renders the informational page.
func (r *Renderer) Info(w http.ResponseWriter, data InfoData) {
	r.render(w, http.StatusOK, PageInfo, "Loyalty Form Server", data)
}

// Form renders the loyalty form.
func (r *Renderer) Form(w http.ResponseWriter, data FormData) {
	r.render(w, http.StatusOK, PageForm, "Loyalty Form", data)
}

// Error renders the error page with the given status.
func (r *Renderer) Error(w http.ResponseWriter, status int, data ErrorData) {
	if data.Title == "" {
		data.Title = "Form Loading Error"
	}
	r.render(w, status, PageError, data.Title, data)
}

// Success renders the confirmation page.
func (r *Renderer) Success(w http.ResponseWriter, data SuccessData) {
	r.render(w, http.StatusOK, PageSuccess, "Thank you", data)
}

// Redirect renders the hand-back page shown while the webview closes.
func (r *Renderer) Redirect(w http.ResponseWriter) {
	r.render(w, http.StatusOK, PageRedirect, "Returning to app", nil)
}

// Logo renders the logo registry page.
func (r *Renderer) Logo(w http.ResponseWriter, status int, data LogoData) {
	r.render(w, status, PageLogo, "Customize Logo", data)
}

// render executes into a buffer first so a template failure can still
// produce a clean 500.
func (r *Renderer) render(w http.ResponseWriter, status int, name, title string, data any) {
	tmpl, ok := r.templates[name]
	if !ok {
		r.logger.Error("unknown page", "page", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "base", pageData{Title: title, Info: r.infoHTML, Data: data})
	if err != nil {
		r.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
