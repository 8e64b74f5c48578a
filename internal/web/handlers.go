package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// User-facing messages.
const (
	msgAdded       = "Book added successfully!"
	msgMissing     = "Please fill all fields and upload a cover image."
	msgDeleted     = "Book deleted successfully!"
	msgBadID       = "Enter a valid book ID."
	msgTooLarge    = "The cover image is too large."
	msgBadForm     = "The form could not be read."
	msgServerError = "Something went wrong."
)

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, newPage(tabAdd))
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	p := newPage(tabAdd)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			p.Flash = &flash{Kind: flashError, Message: msgTooLarge}
			render(w, r, http.StatusRequestEntityTooLarge, p)
			return
		}
		p.Flash = &flash{Kind: flashError, Message: msgBadForm}
		render(w, r, http.StatusBadRequest, p)
		return
	}

	p.Form = formValues{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Author:   strings.TrimSpace(r.FormValue("author")),
		Year:     strings.TrimSpace(r.FormValue("year")),
		Category: strings.TrimSpace(r.FormValue("category")),
	}
	// An unparsable year stays zero and is reported by validation.
	year, _ := strconv.Atoi(p.Form.Year)

	cover, err := readCover(r)
	if err != nil {
		s.serverError(w, r, p, err)
		return
	}

	id, err := s.catalog.AddBook(r.Context(), types.NewBook{
		Title:    p.Form.Title,
		Author:   p.Form.Author,
		Year:     year,
		Category: p.Form.Category,
		Cover:    cover,
	})
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		p.Flash = &flash{
			Kind:    flashError,
			Message: msgMissing,
			Details: []string{"Missing or invalid: " + strings.Join(ve.Fields, ", ")},
		}
		render(w, r, http.StatusUnprocessableEntity, p)
		return
	case err != nil:
		s.serverError(w, r, p, err)
		return
	}

	slog.InfoContext(r.Context(), "book added", "id", id, "title", p.Form.Title, "request_id", RequestID(r.Context()))
	done := newPage(tabAdd)
	done.Flash = &flash{Kind: flashSuccess, Message: msgAdded + " (ID " + strconv.FormatInt(id, 10) + ")"}
	render(w, r, http.StatusOK, done)
}

// readCover returns the uploaded cover bytes, or nil when no file was sent.
func readCover(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	s.renderLibrary(w, r, http.StatusOK, nil)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("id")), 10, 64)
	if err != nil || id < 1 {
		s.renderLibrary(w, r, http.StatusBadRequest, &flash{Kind: flashError, Message: msgBadID})
		return
	}

	if err := s.catalog.RemoveBook(r.Context(), id); err != nil {
		s.serverError(w, r, newPage(tabLibrary), err)
		return
	}

	slog.InfoContext(r.Context(), "book removed", "id", id, "request_id", RequestID(r.Context()))
	s.renderLibrary(w, r, http.StatusOK, &flash{Kind: flashSuccess, Message: msgDeleted})
}

// renderLibrary lists the catalog and renders the library tab with f.
func (s *Server) renderLibrary(w http.ResponseWriter, r *http.Request, status int, f *flash) {
	p := newPage(tabLibrary)
	books, err := s.catalog.ListBooks(r.Context())
	if err != nil {
		s.serverError(w, r, p, err)
		return
	}
	p.Books = books
	p.Flash = f
	render(w, r, status, p)
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBook(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(b.Cover))
	_, _ = w.Write(b.Cover)
}

func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBook(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(b.QRCode)
}

// lookupBook loads the book named by the {id} route variable. It writes the
// error response itself and reports false when there is nothing to serve.
func (s *Server) lookupBook(w http.ResponseWriter, r *http.Request) (*types.Book, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	b, err := s.catalog.Book(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.logError(r, err)
		http.Error(w, msgServerError, http.StatusInternalServerError)
		return nil, false
	}
	return b, true
}

func (s *Server) handleAPIBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.catalog.ListBooks(r.Context())
	if err != nil {
		s.logError(r, err)
		http.Error(w, msgServerError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(books); err != nil {
		s.logError(r, err)
	}
}

// serverError logs err and renders the generic failure message on p's tab.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, p *page, err error) {
	s.logError(r, err)
	p.Flash = &flash{Kind: flashError, Message: msgServerError}
	render(w, r, http.StatusInternalServerError, p)
}

func (s *Server) logError(r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"storage", errors.Is(err, types.ErrStorage),
		"encoding", errors.Is(err, types.ErrEncoding),
		"error", err,
	)
}
