// Package handler contains the HTTP request handlers: the HTML pages, the
// Twitter login flow, and the small JSON API.
//
// Handlers are glue — they parse the request, call a service, and write the
// response. Business rules live in internal/service; persistence in
// internal/repository.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// pageFiles maps each page name to its template file. Every page is parsed
// together with base.html so it can fill the base layout's "content" block.
var pageFiles = map[string]string{
	"landing":   "landing.html",
	"login":     "login.html",
	"register":  "register.html",
	"dashboard": "dashboard.html",
}

// Pages renders the HTML views. Templates are parsed once at startup so a
// syntax error fails the boot, not a request.
type Pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPages parses all page templates from templateDir.
//
// Each page gets its own template set of (base.html, page.html): base.html
// defines the layout with a {{template "content" .}} placeholder, and each
// page file provides {{define "content"}}. Parsing them pairwise is what
// allows every page to define its own "content" block without colliding.
func NewPages(templateDir string, logger *slog.Logger) (*Pages, error) {
	templates := make(map[string]*template.Template, len(pageFiles))

	for name, file := range pageFiles {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, file),
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Pages{
		templates: templates,
		logger:    logger,
	}, nil
}

// Render executes the named page with the given data, popping any pending
// flash message into it.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	tmpl, ok := p.templates[page]
	if !ok {
		p.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = make(map[string]any)
	}
	if _, set := data["Flash"]; !set {
		data["Flash"] = popFlash(w, r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		p.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleLanding serves the public landing page.
//
// HTTP: GET /
func (p *Pages) HandleLanding(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, "landing", map[string]any{
		"Title": "Fellow Dashboard",
	})
}
