// Package sqlite implements catalog storage as a single SQLite table.
//
// A Store holds only the database file path. Every operation opens the
// file, runs one statement, and closes the handle before returning, so no
// connection outlives the call that needed it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// Store provides the book table operations backed by the file at Path.
type Store struct {
	path string
}

// NewStore returns a Store for the database file at path. The file and its
// parent directory are created on first use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Initialize creates the books table if it does not exist. Safe to call on
// every process start.
func (s *Store) Initialize(ctx context.Context) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, createBooks); err != nil {
			return storageErr("create books table", err)
		}
		return nil
	})
}

// Insert appends a record and returns the id assigned by the database.
// Book.ID is ignored.
func (s *Store) Insert(ctx context.Context, b *types.Book) (int64, error) {
	var id int64
	err := s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, insertBook,
			b.Title, b.Author, b.Year, b.Category, b.Cover, b.QRCode,
		)
		if err != nil {
			return storageErr("insert book", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return storageErr("read inserted id", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListAll returns every record in insertion order, without blobs.
// An empty table yields an empty, non-nil slice.
func (s *Store) ListAll(ctx context.Context) ([]types.BookSummary, error) {
	books := []types.BookSummary{}
	err := s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, selectAll)
		if err != nil {
			return storageErr("list books", err)
		}
		defer rows.Close()

		for rows.Next() {
			var b types.BookSummary
			if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Category); err != nil {
				return storageErr("scan book", err)
			}
			books = append(books, b)
		}
		if err := rows.Err(); err != nil {
			return storageErr("list books", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// Get returns the full record with the given id, including blobs.
// Returns ErrNotFound if no record has that id.
func (s *Store) Get(ctx context.Context, id int64) (*types.Book, error) {
	var b types.Book
	err := s.withDB(ctx, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, selectBook, id).
			Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Category, &b.Cover, &b.QRCode)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return storageErr(fmt.Sprintf("get book %d", id), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes the record with the given id. Deleting an id that does not
// exist is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, deleteBook, id); err != nil {
			return storageErr(fmt.Sprintf("delete book %d", id), err)
		}
		return nil
	})
}

// withDB opens the database file, runs fn, and closes the handle on every
// exit path. A close failure is reported only if fn succeeded.
func (s *Store) withDB(ctx context.Context, fn func(db *sql.DB) error) (err error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return storageErr("create data dir", err)
		}
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return storageErr("resolve database path", err)
	}

	db, err := sql.Open(driverName, dsn(abs))
	if err != nil {
		return storageErr("open database", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = storageErr("close database", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return storageErr("open database", err)
	}
	return fn(db)
}

// dsn builds the modernc.org/sqlite connection URI for an absolute path.
// The path is escaped so that '#', '?' and '%' in directory names reach
// SQLite literally. The busy timeout lets a second process wait for the
// file lock instead of failing at once.
func dsn(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows volume paths: file:///C:/...
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "_pragma=busy_timeout(5000)",
	}
	return u.String()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrStorage, op, err)
}
