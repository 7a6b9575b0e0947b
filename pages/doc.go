// Package pages accumulates Markdown per page while a document is being
// extracted.
//
// Extractors rarely see a document strictly in page order: a layout
// provider returns tables separately from page text, and images are
// discovered after the text that surrounds them. An [Accumulator] keeps one
// growable buffer per page number and hands out placeholder tokens that are
// resolved later:
//
//	acc := pages.New()
//	acc.Write(1, "Intro paragraph")
//	tok := acc.Insert(1, pages.TokenTable)
//	acc.Write(1, "Closing paragraph")
//	_ = acc.Resolve(tok, tableMarkdown)
//	for _, p := range acc.Flush() {
//		// p.Number, p.Markdown
//	}
//
// A token is replaced at most once. When the token never made it into the
// page text, the resolved Markdown is appended to the end of its page.
// Tokens still unresolved at flush time are removed, so no token reaches the
// final output.
package pages
