// Package templates handles HTML template rendering for the viewer page and
// its Datastar SSE fragments.
package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"sync"
)

const (
	pagesPattern     = "templates/*.html"
	fragmentsPattern = "templates/fragments/*.html"
)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json embeds a value as a JavaScript literal
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
	"cell": Cell,
	"get": func(m map[string]any, key string) any {
		return m[key]
	},
}

// Cell formats an attribute value for a table cell.
func Cell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	case float32:
		return Cell(float64(n))
	}
	return fmt.Sprint(v)
}

// Renderer manages page and fragment templates.
type Renderer struct {
	fsys      fs.FS
	templates *template.Template
	mu        sync.RWMutex
}

// New parses templates/*.html and templates/fragments/*.html from fsys.
func New(fsys fs.FS) (*Renderer, error) {
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{fsys: fsys, templates: tmpl}, nil
}

func parse(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, fragmentsPattern)
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}
	if matches, _ := fs.Glob(fsys, pagesPattern); len(matches) > 0 {
		if tmpl, err = tmpl.ParseFS(fsys, pagesPattern); err != nil {
			return nil, fmt.Errorf("parsing pages: %w", err)
		}
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Execute renders a page straight to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Reload re-parses the templates (useful for dev hot-reload).
func (r *Renderer) Reload() error {
	tmpl, err := parse(r.fsys)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
