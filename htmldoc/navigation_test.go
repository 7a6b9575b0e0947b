package htmldoc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// renderWith parses and renders src with the given navigation mode.
func renderWith(t *testing.T, src string, mode NavigationExclusionMode) string {
	t.Helper()
	doc, err := ParseString(src)
	require.NoError(t, err)
	r, err := Render(context.Background(), doc, RenderOptions{Navigation: mode})
	require.NoError(t, err)
	return r.Markdown
}

// chromePage carries one marker word per kind of page chrome.
const chromePage = `<html><body>
	<header><h1>Masthead</h1></header>
	<nav><a href="/">Home</a></nav>
	<aside><p>Aside</p></aside>
	<div role="navigation"><a href="/x">Landmark</a></div>
	<div class="siteFooter"><p>Colophon</p></div>
	<div class="links">
		<a href="/1">One</a> <a href="/2">Two</a> <a href="/3">Three</a> <a href="/4">Four</a>
	</div>
	<article>
		<header><h2>Byline</h2></header>
		<p>Story body with plenty of plain prose.</p>
		<footer><p>Signature</p></footer>
	</article>
	<footer><p>Copyright</p></footer>
</body></html>`

func TestPrune_Modes(t *testing.T) {
	always := []string{"Byline", "Story body", "Signature"}
	tests := []struct {
		mode NavigationExclusionMode
		keep []string
		drop []string
	}{
		{
			mode: NavigationExclusionNone,
			keep: []string{"Masthead", "Home", "Aside", "Landmark", "Colophon", "One", "Copyright"},
		},
		{
			mode: NavigationExclusionExplicit,
			keep: []string{"Colophon", "One"},
			drop: []string{"Masthead", "Home", "Aside", "Landmark", "Copyright"},
		},
		{
			mode: NavigationExclusionStandard,
			keep: []string{"One"},
			drop: []string{"Masthead", "Home", "Aside", "Landmark", "Colophon", "Copyright"},
		},
		{
			mode: NavigationExclusionAggressive,
			drop: []string{"Masthead", "Home", "Aside", "Landmark", "Colophon", "One", "Copyright"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			md := renderWith(t, chromePage, tt.mode)
			for _, w := range append(always, tt.keep...) {
				assert.Contains(t, md, w)
			}
			for _, w := range tt.drop {
				assert.NotContains(t, md, w)
			}
		})
	}
}

func TestPrune_LoneWrapperIsPageLevel(t *testing.T) {
	md := renderWith(t, `<html><body><div id="wrapper">
		<header><h1>Site name</h1></header>
		<main><p>Content</p></main>
		<div role="contentinfo"><p>Legal</p></div>
	</div><script>x()</script></body></html>`, NavigationExclusionExplicit)
	assert.Contains(t, md, "Content")
	assert.NotContains(t, md, "Site name")
	assert.NotContains(t, md, "Legal")

	// With two wrappers neither is page level.
	md = renderWith(t, `<html><body>
		<div><header><h1>Kept header</h1></header></div>
		<div><p>Content</p></div>
	</body></html>`, NavigationExclusionExplicit)
	assert.Contains(t, md, "Kept header")
}

func TestPrune_InertAndComments(t *testing.T) {
	md := renderWith(t, `<html><head><style>p{color:red}</style></head><body>
		<script>var hidden = 1;</script>
		<!-- internal note -->
		<template><p>Later</p></template>
		<p>Visible</p>
	</body></html>`, NavigationExclusionNone)
	assert.Equal(t, "Visible", md)
}

func TestNamedBoilerplate(t *testing.T) {
	tests := []struct {
		attr, value string
		want        bool
	}{
		{"class", "nav", true},
		{"class", "top-nav", true},
		{"class", "nav-bar", true},
		{"class", "main navbar", true},
		{"class", "breadcrumb", true},
		{"id", "TopNav", true},
		{"id", "footer", true},
		{"class", "widget-area", true},
		{"class", "navigator", false},
		{"class", "mynavigationsystem", false},
		{"class", "content", false},
		{"title", "nav", false},
	}
	for _, tt := range tests {
		n := &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: tt.attr, Val: tt.value}}}
		assert.Equal(t, tt.want, namedBoilerplate(n), "%s=%q", tt.attr, tt.value)
	}
}

func TestLinkHeavy(t *testing.T) {
	first := func(src string) *html.Node {
		doc, err := html.Parse(strings.NewReader(src))
		require.NoError(t, err)
		return findElement(doc, "body").FirstChild
	}

	menu := first(`<ul><li><a href="1">Alpha</a></li><li><a href="2">Beta</a></li>` +
		`<li><a href="3">Gamma</a></li><li><a href="4">Delta</a></li></ul>`)
	assert.True(t, linkHeavy(menu))

	few := first(`<div><a href="1">Alpha</a> <a href="2">Beta</a></div>`)
	assert.False(t, linkHeavy(few), "fewer than four links")

	prose := first(`<div>A long paragraph of ordinary writing that mentions <a href="1">a</a>, ` +
		`<a href="2">b</a>, <a href="3">c</a> and <a href="4">d</a> in passing.</div>`)
	assert.False(t, linkHeavy(prose))

	span := first(`<span><a href="1">a</a><a href="2">b</a><a href="3">c</a><a href="4">d</a></span>`)
	assert.False(t, linkHeavy(span), "inline elements are never menus")
}

func TestKebab(t *testing.T) {
	assert.Equal(t, "site-footer", kebab("siteFooter"))
	assert.Equal(t, "top-nav", kebab("TopNav"))
	assert.Equal(t, "plain", kebab("plain"))
}

func TestParseNavigationMode(t *testing.T) {
	for m := NavigationExclusionNone; m <= NavigationExclusionAggressive; m++ {
		got, ok := ParseNavigationMode(m.String())
		require.True(t, ok)
		assert.Equal(t, m, got)
	}
	got, ok := ParseNavigationMode("bogus")
	assert.False(t, ok)
	assert.Equal(t, NavigationExclusionStandard, got)
}
