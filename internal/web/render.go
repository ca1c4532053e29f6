package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/flosch/pongo2/v6"
)

const (
	pageTemplate  = "page.html"
	errorTemplate = "error.html"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

func templatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer turns screen snapshots into HTML. Templates are parsed once at
// construction; pongo2 autoescapes every interpolated value.
type Renderer struct {
	page      *pongo2.Template
	errorPage *pongo2.Template
}

func NewRenderer() (*Renderer, error) {
	set := pongo2.NewSet("voucherdesk", pongo2.NewFSLoader(templatesFS()))

	page, err := set.FromFile(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("web: load template %q: %w", pageTemplate, err)
	}
	errorPage, err := set.FromFile(errorTemplate)
	if err != nil {
		return nil, fmt.Errorf("web: load template %q: %w", errorTemplate, err)
	}

	return &Renderer{page: page, errorPage: errorPage}, nil
}

func (rd *Renderer) Page(w http.ResponseWriter, status int, view pageView) error {
	return rd.write(w, status, rd.page, pongo2.Context{"page": view})
}

func (rd *Renderer) Error(w http.ResponseWriter, status int, message string) error {
	return rd.write(w, status, rd.errorPage, pongo2.Context{
		"title":   http.StatusText(status),
		"message": message,
	})
}

func (rd *Renderer) write(w http.ResponseWriter, status int, tpl *pongo2.Template, ctx pongo2.Context) error {
	out, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		return fmt.Errorf("web: execute template: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err = w.Write(out)
	return err
}
