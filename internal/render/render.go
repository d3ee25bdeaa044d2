// Package render implements echo.Renderer over the embedded HTML templates.
package render

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/forms"
)

// Template names shared by handlers and the error handler.
const (
	AccountInfo    = "account/acc-info"
	ProfileUpdate  = "account/prof-update"
	PasswordUpdate = "account/pass-update"
	Login          = "auth/login"
	Signup         = "auth/signup"
	ErrorGeneral   = "error-general"
)

const (
	layoutGlob = "layouts/*.html"
	entryPoint = "base"
)

// Page is the data every template expects: the signed-in principal for the navbar, the CSRF
// token for forms, and form state.
type Page struct {
	Principal    auth.Principal
	CSRF         string
	FormModified bool
	Errors       forms.Errors
}

// ErrorPage is the data of the error-general template.
type ErrorPage struct {
	Page
	Status  int
	Message string
}

// Renderer holds one template set per page, each cloned from the shared layouts.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page under fsys against the layouts in fsys/layouts.
func New(fsys fs.FS) (*Renderer, error) {
	base, err := template.New(entryPoint).Funcs(funcMap()).ParseFS(fsys, layoutGlob)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == "layouts" {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) != ".html" {
			return nil
		}
		page, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(fsys, p); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[strings.TrimSuffix(p, ".html")] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Has reports whether a page called name was loaded.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render executes the page called name inside the base layout.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, entryPoint, data)
}

type fieldView struct {
	Page  any
	Name  string
	Label string
	Type  string
	Value string
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"field": func(page any, name, label, typ, value string) fieldView {
			return fieldView{Page: page, Name: name, Label: label, Type: typ, Value: value}
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}
}
