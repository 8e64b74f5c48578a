package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func newAddCmd() *cobra.Command {
	var (
		in        types.NewBook
		coverPath string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Long: `Add stores a book record and a QR code of its title.

All of --title, --author, --category and --cover are required; --year must
be between 1000 and 2100.

Example:
  shelf add --title Dune --author "Frank Herbert" --year 1965 --category Sci-Fi --cover dune.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if coverPath != "" {
				data, err := os.ReadFile(filepath.Clean(coverPath))
				if err != nil {
					return fmt.Errorf("read cover: %w", err)
				}
				in.Cover = data
			}
			in.Title = strings.TrimSpace(in.Title)
			in.Author = strings.TrimSpace(in.Author)
			in.Category = strings.TrimSpace(in.Category)

			svc, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}

			id, err := svc.AddBook(cmd.Context(), in)
			var ve *types.ValidationError
			if errors.As(err, &ve) {
				return fmt.Errorf("please fill all fields and provide a cover image (missing or invalid: %s): %w",
					strings.Join(ve.Fields, ", "), types.ErrValidation)
			}
			if err != nil {
				return err
			}

			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]int64{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book ID %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "author")
	cmd.Flags().IntVar(&in.Year, "year", types.MinYear, "publication year (1000-2100)")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	cmd.Flags().StringVar(&coverPath, "cover", "", "path to the cover image (PNG or JPEG)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			books, err := svc.ListBooks(cmd.Context())
			if err != nil {
				return err
			}

			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), books)
			}
			printBookTable(cmd.OutOrStdout(), books)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book by ID",
		Long: `Delete removes the book with the given ID. Deleting an ID that is not
in the catalog succeeds without changing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RemoveBook(cmd.Context(), id); err != nil {
				return err
			}

			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": id, "status": "success"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book ID %d\n", id)
			return nil
		},
	}
}

// qrExport is the --json output of the qr command.
type qrExport struct {
	Book types.BookSummary `json:"book"`
	File string            `json:"file"`
}

func newQRCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "qr <id>",
		Short: "Write a book's QR code PNG to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			b, err := svc.Book(cmd.Context(), id)
			if errors.Is(err, types.ErrNotFound) {
				return fmt.Errorf("book %d not found", id)
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("book-%d-qr.png", id)
			}
			if err := os.WriteFile(out, b.QRCode, 0o644); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), qrExport{Book: b.Summary(), File: out})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote QR code for %q to %s\n", b.Title, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: book-<id>-qr.png)")
	return cmd
}

// parseID accepts positive integer book IDs.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printBookTable prints books in a human-readable table format.
func printBookTable(w io.Writer, books []types.BookSummary) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in the library.")
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR\tCATEGORY")
	fmt.Fprintln(tw, "--\t-----\t------\t----\t--------")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.ID, truncateTitle(b.Title), b.Author, b.Year, b.Category)
	}
	tw.Flush()

	// Trim the padding tabwriter leaves on the last column.
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}

	fmt.Fprintf(w, "Total: %d book(s)\n", len(books))
}

// maxTitleWidth is the widest title, in runes, the list table prints.
const maxTitleWidth = 40

// truncateTitle shortens title to maxTitleWidth runes, ending in "...".
func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleWidth {
		return title
	}
	return string([]rune(title)[:maxTitleWidth-3]) + "..."
}
