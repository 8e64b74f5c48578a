package types

// Book is a stored catalog record, including the cover and QR code blobs.
type Book struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Year     int    `json:"year"`
	Category string `json:"category"`
	Cover    []byte `json:"-"` // Raw uploaded image bytes, stored opaquely.
	QRCode   []byte `json:"-"` // PNG encoding of Title, computed at insert time.
}

// Summary projects the record to the columns shown in listings.
func (b *Book) Summary() BookSummary {
	return BookSummary{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Year:     b.Year,
		Category: b.Category,
	}
}

// BookSummary is the listing view of a record. Blobs are excluded.
type BookSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Year     int    `json:"year"`
	Category string `json:"category"`
}

// Bounds for the publication year.
const (
	MinYear = 1000
	MaxYear = 2100
)

// NewBook is the input for adding a book. The validate tags are enforced by
// the catalog service; the json names are reported back in ValidationError.
type NewBook struct {
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Year     int    `json:"year" validate:"min=1000,max=2100"`
	Category string `json:"category" validate:"required"`
	Cover    []byte `json:"cover" validate:"required,min=1"`
}
