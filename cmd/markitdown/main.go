// Command markitdown converts documents to Markdown.
//
// Usage:
//
//	markitdown convert report.pdf -o report.md
//	cat page.html | markitdown convert - --extension .html
//	markitdown formats
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "markitdown:", err)
		os.Exit(1)
	}
}
