package pages

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Token kinds.
const (
	TokenTable = "table"
	TokenImage = "image"
)

var (
	// ErrTokenResolved is returned when a token is resolved a second time.
	ErrTokenResolved = errors.New("pages: placeholder already resolved")

	// ErrUnknownToken is returned for tokens this accumulator did not issue.
	ErrUnknownToken = errors.New("pages: unknown placeholder")
)

var tokenPattern = regexp.MustCompile(`\[\[markitdown:[a-z]+:[0-9a-f-]{36}\]\]`)

type tokenState struct {
	page     int
	resolved bool
}

// Page is the flushed content of one page.
type Page struct {
	Number   int
	Markdown string

	// Visual reports whether an inline image or a page snapshot was
	// written to the page.
	Visual bool
}

// Accumulator holds one text buffer per page number. It is safe for
// concurrent use.
type Accumulator struct {
	mu      sync.Mutex
	buffers map[int]*strings.Builder
	tokens  map[string]*tokenState
	visual  map[int]bool
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		buffers: make(map[int]*strings.Builder),
		tokens:  make(map[string]*tokenState),
		visual:  make(map[int]bool),
	}
}

func (a *Accumulator) buffer(page int) *strings.Builder {
	b, ok := a.buffers[page]
	if !ok {
		b = &strings.Builder{}
		a.buffers[page] = b
	}
	return b
}

// Ensure registers page so that it is flushed even when nothing is written
// to it.
func (a *Accumulator) Ensure(page int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer(page)
}

// Write appends a block of text to page, separated from earlier content by
// a blank line. Blank text is ignored.
func (a *Accumulator) Write(page int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writeBlock(a.buffer(page), text)
}

func (a *Accumulator) writeBlock(b *strings.Builder, text string) {
	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(text)
}

// Reserve issues a token owned by page without writing it anywhere. The
// caller embeds it in text passed to Write, typically by substituting a
// provider's own position marker.
func (a *Accumulator) Reserve(page int, kind string) string {
	tok := fmt.Sprintf("[[markitdown:%s:%s]]", kind, uuid.NewString())
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer(page)
	a.tokens[tok] = &tokenState{page: page}
	return tok
}

// Insert reserves a token and writes it as its own block at the current end
// of page.
func (a *Accumulator) Insert(page int, kind string) string {
	tok := a.Reserve(page, kind)
	a.Write(page, tok)
	return tok
}

// Resolve substitutes markdown for token in its page. When the page text
// does not contain the token, markdown is appended to the page instead.
func (a *Accumulator) Resolve(token, markdown string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.tokens[token]
	if !ok {
		return ErrUnknownToken
	}
	if st.resolved {
		return ErrTokenResolved
	}
	st.resolved = true

	b := a.buffer(st.page)
	cur := b.String()
	if strings.Contains(cur, token) {
		next := strings.Replace(cur, token, markdown, 1)
		next = strings.ReplaceAll(next, token, "")
		b.Reset()
		b.WriteString(next)
		return nil
	}
	a.writeBlock(b, markdown)
	return nil
}

// Contains reports whether the current text of page contains token.
func (a *Accumulator) Contains(page int, token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[page]
	return ok && strings.Contains(b.String(), token)
}

// MarkVisual records that page received an inline image or snapshot.
func (a *Accumulator) MarkVisual(page int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer(page)
	a.visual[page] = true
}

// HasVisual reports whether MarkVisual was called for page.
func (a *Accumulator) HasVisual(page int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visual[page]
}

// Numbers returns the registered page numbers in ascending order.
func (a *Accumulator) Numbers() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	nums := make([]int, 0, len(a.buffers))
	for n := range a.buffers {
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return nums
}

// Len returns the number of registered pages.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// Text returns the current text of page with unresolved tokens removed.
func (a *Accumulator) Text(page int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[page]
	if !ok {
		return ""
	}
	return clean(b.String())
}

// Flush returns every registered page in ascending page order. Unresolved
// tokens are stripped. The accumulator may keep being used afterwards.
func (a *Accumulator) Flush() []Page {
	nums := a.Numbers()
	out := make([]Page, 0, len(nums))
	for _, n := range nums {
		out = append(out, Page{Number: n, Markdown: a.Text(n), Visual: a.HasVisual(n)})
	}
	return out
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func clean(s string) string {
	s = tokenPattern.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
