package httpserver

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer serves the storefront pages embedded in the binary.
type Renderer struct {
	t *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
		"add":   func(a, b int) int { return a + b },
		"list":  func(xs ...string) []string { return xs },
		"percent": func(d decimal.Decimal) string {
			return d.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{t: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}
