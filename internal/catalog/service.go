// Package catalog orchestrates book storage and QR generation for the
// add, list, and delete operations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Storage is the persistence the service needs. *sqlite.Store satisfies it.
type Storage interface {
	Insert(ctx context.Context, b *types.Book) (int64, error)
	ListAll(ctx context.Context) ([]types.BookSummary, error)
	Get(ctx context.Context, id int64) (*types.Book, error)
	Delete(ctx context.Context, id int64) error
}

// Encoder turns a title into PNG QR code bytes. *qr.Encoder satisfies it.
type Encoder interface {
	Encode(text string) ([]byte, error)
}

// Service implements the catalog operations. Each call is independent; the
// service keeps no state between calls beyond its collaborators.
type Service struct {
	store    Storage
	encoder  Encoder
	validate *validator.Validate
}

// NewService returns a Service backed by store and encoder.
func NewService(store Storage, encoder Encoder) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json names so messages match the form inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Service{store: store, encoder: encoder, validate: v}
}

// AddBook validates in, encodes its title as a QR code, and stores the
// record. It returns the id assigned by storage.
//
// A *types.ValidationError is returned when title, author or category is
// empty, the cover is missing, or the year is outside [MinYear, MaxYear].
// Nothing is encoded or written in that case.
func (s *Service) AddBook(ctx context.Context, in types.NewBook) (int64, error) {
	if err := s.check(in); err != nil {
		return 0, err
	}

	qrPNG, err := s.encoder.Encode(in.Title)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}

	id, err := s.store.Insert(ctx, &types.Book{
		Title:    in.Title,
		Author:   in.Author,
		Year:     in.Year,
		Category: in.Category,
		Cover:    in.Cover,
		QRCode:   qrPNG,
	})
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	return id, nil
}

// ListBooks returns every stored book projected to its listing columns.
func (s *Service) ListBooks(ctx context.Context) ([]types.BookSummary, error) {
	books, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// RemoveBook deletes the book with the given id. It succeeds whether or not
// such a book existed; only storage faults are returned.
func (s *Service) RemoveBook(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove book: %w", err)
	}
	return nil
}

// Book returns the full record, cover and QR code included.
// Returns an error wrapping types.ErrNotFound if the id is unknown.
func (s *Service) Book(ctx context.Context, id int64) (*types.Book, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// check runs the struct validation and converts failures to a
// ValidationError listing each failing field once.
func (s *Service) check(in types.NewBook) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate book: %w", err)
	}

	ve := &types.ValidationError{}
	seen := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}
