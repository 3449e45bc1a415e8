// Command mksample generates a small sample PDF for trying out the
// viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"pdfink/internal/pdfdoc"
)

func main() {
	out := flag.String("o", "sample.pdf", "output path")
	pages := flag.Int("pages", 5, "number of pages")
	flag.Parse()

	if err := pdfdoc.WriteSample(*out, *pages); err != nil {
		fmt.Fprintf(os.Stderr, "mksample: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d pages)\n", *out, *pages)
}
