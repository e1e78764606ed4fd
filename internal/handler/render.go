package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer writes the named HTML page. Handlers depend on this interface
// so tests can capture the page data instead of parsing HTML.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// TemplateRenderer renders the pages embedded in the binary.
//
// Every page is parsed together with base.html: base defines the layout and
// calls {{template "content" .}}, each page file defines "content". One
// template set per page keeps the "content" definitions apart.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

// NewTemplateRenderer parses every embedded page once at startup. A broken
// template fails here, not on the first request that needs it.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handler: listing templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "base" {
			continue
		}

		tmpl, err := template.ParseFS(templateFS, "templates/base.html", file)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s: %w", file, err)
		}
		pages[name] = tmpl
	}

	return &TemplateRenderer{pages: pages}, nil
}

// Render executes the "base" layout of the named page.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("handler: no template named %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
