package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// Tabs of the page.
const (
	tabAdd     = "add"
	tabLibrary = "library"
)

// Flash kinds, used as CSS classes.
const (
	flashSuccess = "success"
	flashError   = "error"
)

type flash struct {
	Kind    string
	Message string
	Details []string
}

// formValues echoes the add-book inputs back after a failed submit.
type formValues struct {
	Title    string
	Author   string
	Year     string
	Category string
}

type page struct {
	Tab     string
	Flash   *flash
	Form    formValues
	Books   []types.BookSummary
	MinYear int
	MaxYear int
}

func newPage(tab string) *page {
	return &page{
		Tab:     tab,
		Form:    formValues{Year: "1000"},
		MinYear: types.MinYear,
		MaxYear: types.MaxYear,
	}
}

// render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func render(w http.ResponseWriter, r *http.Request, status int, p *page) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		slog.ErrorContext(r.Context(), "render page", "tab", p.Tab, "error", err, "request_id", RequestID(r.Context()))
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
