package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/catalog"
	"github.com/mesh-intelligence/shelf/internal/qr"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

var coverPNG = []byte("\x89PNG\r\n\x1a\nfake-cover")

// setupServer returns a Server over a fresh catalog plus the service for
// direct assertions.
func setupServer(t *testing.T) (*Server, *catalog.Service) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, store.Initialize(context.Background()))
	svc := catalog.NewService(store, qr.NewEncoder(64))
	return NewServer(svc, 1<<20), svc
}

// addBookRequest builds a multipart POST /books. A nil cover omits the file.
func addBookRequest(t *testing.T, fields map[string]string, cover []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if cover != nil {
		fw, err := mw.CreateFormFile("cover", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(cover)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/books", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func duneFields() map[string]string {
	return map[string]string{
		"title":    "Dune",
		"author":   "Frank Herbert",
		"year":     "1965",
		"category": "Sci-Fi",
	}
}

func deleteRequest(id string) *http.Request {
	form := url.Values{"id": {id}}
	req := httptest.NewRequest(http.MethodPost, "/books/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootRedirectsToAddTab(t *testing.T) {
	s, _ := setupServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/add", rec.Header().Get("Location"))
}

func TestAddForm(t *testing.T) {
	s, _ := setupServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/add", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Add a New Book")
	assert.Contains(t, body, `name="year" min="1000" max="2100"`)
	assert.Contains(t, body, `type="file" name="cover"`)
}

func TestAddBook(t *testing.T) {
	t.Run("valid submit stores the book", func(t *testing.T) {
		s, svc := setupServer(t)

		rec := serve(s, addBookRequest(t, duneFields(), coverPNG))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Book added successfully! (ID 1)")

		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, types.BookSummary{ID: 1, Title: "Dune", Author: "Frank Herbert", Year: 1965, Category: "Sci-Fi"}, books[0])
	})

	t.Run("cover over the upload limit is rejected", func(t *testing.T) {
		_, svc := setupServer(t)
		s := NewServer(svc, 1<<10)
		cover := append(append([]byte{}, coverPNG...), bytes.Repeat([]byte{0xAB}, 4<<10)...)

		rec := serve(s, addBookRequest(t, duneFields(), cover))

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "The cover image is too large.")

		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("missing cover is a validation error", func(t *testing.T) {
		s, svc := setupServer(t)

		rec := serve(s, addBookRequest(t, duneFields(), nil))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Please fill all fields and upload a cover image.")
		assert.Contains(t, body, "Missing or invalid: cover")
		// Inputs are echoed back so the user can fix the form.
		assert.Contains(t, body, `value="Frank Herbert"`)

		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("blank fields are listed", func(t *testing.T) {
		s, svc := setupServer(t)
		fields := duneFields()
		fields["title"] = "   "
		fields["category"] = ""

		rec := serve(s, addBookRequest(t, fields, coverPNG))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing or invalid: title, category")

		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("unparsable year is a validation error", func(t *testing.T) {
		s, _ := setupServer(t)
		fields := duneFields()
		fields["year"] = "nineteen"

		rec := serve(s, addBookRequest(t, fields, coverPNG))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing or invalid: year")
	})

	t.Run("non-multipart body is rejected", func(t *testing.T) {
		s, _ := setupServer(t)
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader("title=Dune"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rec := serve(s, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLibrary(t *testing.T) {
	t.Run("empty library", func(t *testing.T) {
		s, _ := setupServer(t)

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/library", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No books in the library.")
	})

	t.Run("lists stored books", func(t *testing.T) {
		s, _ := setupServer(t)
		require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, duneFields(), coverPNG)).Code)

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/library", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<td>Dune</td>")
		assert.Contains(t, body, "<td>Frank Herbert</td>")
		assert.Contains(t, body, "<td>1965</td>")
		assert.Contains(t, body, "Enter Book ID to Delete")
		assert.NotContains(t, body, "No books in the library.")
	})

	t.Run("titles are escaped", func(t *testing.T) {
		s, _ := setupServer(t)
		fields := duneFields()
		fields["title"] = "<script>alert(1)</script>"
		require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, fields, coverPNG)).Code)

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/library", nil))

		assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("deletes an existing book", func(t *testing.T) {
		s, svc := setupServer(t)
		require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, duneFields(), coverPNG)).Code)

		rec := serve(s, deleteRequest("1"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Book deleted successfully!")
		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("missing id still reports success", func(t *testing.T) {
		s, svc := setupServer(t)
		require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, duneFields(), coverPNG)).Code)

		rec := serve(s, deleteRequest("42"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Book deleted successfully!")
		books, err := svc.ListBooks(context.Background())
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("malformed id is rejected", func(t *testing.T) {
		s, _ := setupServer(t)

		for _, id := range []string{"", "abc", "0", "-3"} {
			rec := serve(s, deleteRequest(id))
			assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
			assert.Contains(t, rec.Body.String(), "Enter a valid book ID.")
		}
	})
}

func TestImageEndpoints(t *testing.T) {
	s, _ := setupServer(t)
	require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, duneFields(), coverPNG)).Code)

	t.Run("cover returns uploaded bytes", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/books/1/cover", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, coverPNG, rec.Body.Bytes())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	})

	t.Run("qr returns the title encoding", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/books/1/qr.png", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		want, err := qr.NewEncoder(64).Encode("Dune")
		require.NoError(t, err)
		assert.Equal(t, want, rec.Body.Bytes())
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/books/99/qr.png", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPIBooks(t *testing.T) {
	s, _ := setupServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	require.Equal(t, http.StatusOK, serve(s, addBookRequest(t, duneFields(), coverPNG)).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var books []types.BookSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestRequestID(t *testing.T) {
	s, _ := setupServer(t)

	t.Run("generated when absent", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	})

	t.Run("echoed when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rec := serve(s, req)
		assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	})
}

// brokenCatalog fails every call with a storage error.
type brokenCatalog struct{}

var errDisk = errors.Join(types.ErrStorage, errors.New("disk I/O error"))

func (brokenCatalog) AddBook(context.Context, types.NewBook) (int64, error)  { return 0, errDisk }
func (brokenCatalog) ListBooks(context.Context) ([]types.BookSummary, error) { return nil, errDisk }
func (brokenCatalog) RemoveBook(context.Context, int64) error                { return errDisk }
func (brokenCatalog) Book(context.Context, int64) (*types.Book, error)       { return nil, errDisk }

func TestStorageFailuresRenderGenericError(t *testing.T) {
	s := NewServer(brokenCatalog{}, 1<<20)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"add", func() *http.Request { return addBookRequest(t, duneFields(), coverPNG) }},
		{"library", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/library", nil) }},
		{"delete", func() *http.Request { return deleteRequest("1") }},
		{"qr", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/books/1/qr.png", nil) }},
		{"api", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/books", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req())
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), "Something went wrong.")
			assert.NotContains(t, rec.Body.String(), "disk I/O error")
		})
	}
}

func TestRun(t *testing.T) {
	t.Run("cancelled context returns nil", func(t *testing.T) {
		s, _ := setupServer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, s.Run(ctx, "127.0.0.1:0"))
	})

	t.Run("serves until cancelled", func(t *testing.T) {
		s, _ := setupServer(t)
		addr := freeAddr(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx, addr) }()

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://" + addr + "/health")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 20*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(shutdownTimeout + time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		s, _ := setupServer(t)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		err = s.Run(context.Background(), ln.Addr().String())
		assert.ErrorContains(t, err, "serve:")
	})
}

// freeAddr returns a loopback address with a port that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
