package sqlite

// createBooks is the DDL for the catalog table. AUTOINCREMENT keeps ids from
// being reused after the highest id is deleted.
const createBooks = `CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    year INTEGER NOT NULL,
    category TEXT NOT NULL,
    cover BLOB NOT NULL,
    qr_code BLOB NOT NULL
);`

// Statements used by Store. Each runs alone in autocommit mode.
const (
	insertBook = `INSERT INTO books (title, author, year, category, cover, qr_code) VALUES (?, ?, ?, ?, ?, ?)`
	selectAll  = `SELECT id, title, author, year, category FROM books ORDER BY id`
	selectBook = `SELECT id, title, author, year, category, cover, qr_code FROM books WHERE id = ?`
	deleteBook = `DELETE FROM books WHERE id = ?`
)
