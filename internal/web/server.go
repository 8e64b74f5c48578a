// Package web serves the catalog as a two-tab HTML interface: "Add Book"
// and "View Library". Each handler performs one catalog call and renders
// the page from its result.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Catalog is the set of operations the UI invokes. *catalog.Service
// satisfies it.
type Catalog interface {
	AddBook(ctx context.Context, in types.NewBook) (int64, error)
	ListBooks(ctx context.Context) ([]types.BookSummary, error)
	RemoveBook(ctx context.Context, id int64) error
	Book(ctx context.Context, id int64) (*types.Book, error)
}

// Server holds the HTTP handlers for the catalog UI.
type Server struct {
	catalog        Catalog
	maxUploadBytes int64
	router         *mux.Router
}

// NewServer returns a Server for catalog. Multipart bodies larger than
// maxUploadBytes are rejected.
func NewServer(catalog Catalog, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = types.DefaultMaxUploadBytes
	}
	s := &Server{catalog: catalog, maxUploadBytes: maxUploadBytes}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(withRequestID, logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	r.Handle("/", http.RedirectHandler("/add", http.StatusSeeOther)).Methods(http.MethodGet)
	r.HandleFunc("/add", s.handleAddForm).Methods(http.MethodGet)
	r.HandleFunc("/books", s.handleAddBook).Methods(http.MethodPost)
	r.HandleFunc("/library", s.handleLibrary).Methods(http.MethodGet)
	r.HandleFunc("/books/delete", s.handleDeleteBook).Methods(http.MethodPost)
	r.HandleFunc("/books/{id:[0-9]+}/cover", s.handleCover).Methods(http.MethodGet)
	r.HandleFunc("/books/{id:[0-9]+}/qr.png", s.handleQRCode).Methods(http.MethodGet)
	r.HandleFunc("/api/books", s.handleAPIBooks).Methods(http.MethodGet)

	return r
}

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
