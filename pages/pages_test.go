package pages

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_KeyedOutOfOrder(t *testing.T) {
	acc := New()
	acc.Write(3, "third")
	acc.Write(1, "first")
	acc.Ensure(2)
	acc.Write(1, "more first")

	got := acc.Flush()
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Number, got[1].Number, got[2].Number})
	assert.Equal(t, "first\n\nmore first", got[0].Markdown)
	assert.Equal(t, "", got[1].Markdown)
}

func TestAccumulator_ResolveInPlace(t *testing.T) {
	acc := New()
	acc.Write(1, "before")
	tok := acc.Insert(1, TokenTable)
	acc.Write(1, "after")

	require.NoError(t, acc.Resolve(tok, "| a |\n| --- |"))
	text := acc.Text(1)
	assert.Equal(t, "before\n\n| a |\n| --- |\n\nafter", text)
	assert.NotContains(t, text, tok)

	assert.ErrorIs(t, acc.Resolve(tok, "again"), ErrTokenResolved)
	assert.Equal(t, 1, strings.Count(acc.Text(1), "| a |"))
}

func TestAccumulator_ResolveAppendsWhenTokenAbsent(t *testing.T) {
	acc := New()
	acc.Write(2, "page text")
	tok := acc.Reserve(2, TokenImage)

	require.NoError(t, acc.Resolve(tok, "![img](x.png)"))
	assert.Equal(t, "page text\n\n![img](x.png)", acc.Text(2))
}

func TestAccumulator_EmbeddedReservedToken(t *testing.T) {
	acc := New()
	tok := acc.Reserve(1, TokenTable)
	acc.Write(1, "see "+tok+" below")
	assert.True(t, acc.Contains(1, tok))

	require.NoError(t, acc.Resolve(tok, "TABLE"))
	assert.Equal(t, "see TABLE below", acc.Text(1))
}

func TestAccumulator_UnknownAndUnresolvedTokens(t *testing.T) {
	acc := New()
	assert.ErrorIs(t, acc.Resolve("[[markitdown:table:nope]]", "x"), ErrUnknownToken)

	acc.Write(1, "a")
	acc.Insert(1, TokenTable)
	acc.Write(1, "b")
	pages := acc.Flush()
	require.Len(t, pages, 1)
	assert.Equal(t, "a\n\nb", pages[0].Markdown)
	assert.NotContains(t, pages[0].Markdown, "markitdown:")
}

func TestAccumulator_Visual(t *testing.T) {
	acc := New()
	acc.Write(1, "text")
	acc.MarkVisual(2)
	assert.False(t, acc.HasVisual(1))
	assert.True(t, acc.HasVisual(2))

	got := acc.Flush()
	require.Len(t, got, 2)
	assert.True(t, got[1].Visual)
}

func TestAccumulator_ConcurrentWrites(t *testing.T) {
	acc := New()
	var wg sync.WaitGroup
	for p := 1; p <= 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			tok := acc.Insert(p, TokenImage)
			acc.Write(p, "text")
			_ = acc.Resolve(tok, "img")
		}(p)
	}
	wg.Wait()
	for _, pg := range acc.Flush() {
		assert.Equal(t, "img\n\ntext", pg.Markdown)
	}
	assert.Equal(t, 8, acc.Len())
}
