// Shelf is a personal library catalog: add books with a cover image and a
// QR code of the title, list them, and delete them by id.
package main

import "github.com/mesh-intelligence/shelf/internal/cli"

func main() {
	cli.Execute()
}
