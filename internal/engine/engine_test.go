package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yklcs/areum/internal/errors"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const heroPage = `package main

import "areum/el"

func Title() string { return "Home" }

func Page() el.Node {
	return el.Component("hero", ".x{color:red}",
		el.H("h1", el.Attrs{"class": "x"}, "hello"),
	)
}

func Script() string { return "console.log('hi')" }
`

const plainPage = `package main

import "areum/el"

func Page() el.Node {
	return el.H("p", nil, "plain")
}
`

func TestRunScriptPage(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "index.gsx", heroPage)

	eng, err := New(dir)
	require.NoError(t, err)

	p, err := eng.Run(path, "/")
	require.NoError(t, err)

	out, err := p.RenderString()
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, "hello</h1>")
	assert.Contains(t, out, "console.log")

	// Component CSS is scoped against the hero component's scope class.
	assert.Contains(t, out, ".x.s")
	assert.Contains(t, out, `class="x s`)
}

func TestRunScriptOmittedEntryPointsReset(t *testing.T) {
	// A page without Title or Script must not observe the previous page's
	// definitions.
	dir := t.TempDir()
	hero := writeSource(t, dir, "hero.gsx", heroPage)
	plain := writeSource(t, dir, "plain.gsx", plainPage)

	eng, err := New(dir)
	require.NoError(t, err)

	_, err = eng.Run(hero, "/hero")
	require.NoError(t, err)

	p, err := eng.Run(plain, "/plain")
	require.NoError(t, err)

	out, err := p.RenderString()
	require.NoError(t, err)
	assert.NotContains(t, out, "Home")
	assert.NotContains(t, out, "console.log")
	assert.Empty(t, p.Script)
}

func TestRunScriptRepeatedly(t *testing.T) {
	// Rebuilding pages through one engine must keep working: each script
	// carries its own import of areum/el, so evaluation scopes must not be
	// shared between runs.
	dir := t.TempDir()
	hero := writeSource(t, dir, "hero.gsx", heroPage)
	plain := writeSource(t, dir, "plain.gsx", plainPage)

	eng, err := New(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = eng.Run(hero, "/hero")
		require.NoError(t, err)
		_, err = eng.Run(plain, "/plain")
		require.NoError(t, err)
	}
}

func TestRunScriptErrors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name   string
		source string
	}{
		{
			name:   "syntax error",
			source: "package main\n\nfunc Page( {",
		},
		{
			name:   "missing page entry point",
			source: "package main\n\nfunc Other() int { return 1 }",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eng, err := New(dir)
			require.NoError(t, err)

			path := writeSource(t, dir, "bad.gsx", tc.source)
			_, err = eng.Run(path, "/bad")

			var srcErr *errors.SourceError
			require.ErrorAs(t, err, &srcErr)
		})
	}
}

func TestRunMarkdownPage(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "post.md", "---\ntitle: A Post\n---\n# Heading\n\nbody text\n")

	eng, err := New(dir)
	require.NoError(t, err)

	p, err := eng.Run(path, "/post")
	require.NoError(t, err)

	out, err := p.RenderString()
	require.NoError(t, err)
	assert.Contains(t, out, "<title>A Post</title>")
	assert.Contains(t, out, "<article>")
	assert.Contains(t, out, "<h1>Heading</h1>")
	assert.Contains(t, out, "<p>body text</p>")
}

func TestRunMarkdownWithoutFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "note.md", "just *text*\n")

	eng, err := New(dir)
	require.NoError(t, err)

	p, err := eng.Run(path, "/note")
	require.NoError(t, err)

	out, err := p.RenderString()
	require.NoError(t, err)
	assert.NotContains(t, out, "<title>")
	assert.Contains(t, out, "<em>text</em>")
}

func TestBundleAccumulates(t *testing.T) {
	dir := t.TempDir()
	hero := writeSource(t, dir, "hero.gsx", heroPage)

	eng, err := New(dir)
	require.NoError(t, err)

	empty, err := eng.Bundle()
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = eng.Run(hero, "/hero")
	require.NoError(t, err)

	bundle, err := eng.Bundle()
	require.NoError(t, err)
	assert.Contains(t, bundle, "console.log")
}

func TestRunRejectsNonPageSource(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "style.css", ".a{}")

	eng, err := New(dir)
	require.NoError(t, err)

	_, err = eng.Run(path, "/style.css")
	var srcErr *errors.SourceError
	require.ErrorAs(t, err, &srcErr)
}
