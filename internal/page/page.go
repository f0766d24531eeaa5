// Package page assembles one built page: the arena node tree produced by
// the engine, the aggregated scoped stylesheet, and the client bundle
// reference, and serializes the result to HTML.
package page

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/yklcs/areum/internal/dom"
	"github.com/yklcs/areum/internal/styles"
)

// Page is the result of building one source file. A page owns its arena;
// the arena and all its node ids are discarded with the page.
type Page struct {
	Arena *dom.Arena
	Root  dom.NodeID
	Sheet *styles.Sheet

	// ID is the stable page identifier: a short hash of the page's site
	// path, used to cross-reference the page's exports in the client
	// bundle.
	ID string

	// SitePath is the logical site path the page is served under ("/",
	// "/posts/hello").
	SitePath string

	// Script is an inline client bundle embedded into the page, used by
	// the dev server. ScriptRef is a URL reference to a shared bundle,
	// used for deployed pages. At most one of the two is set.
	Script    string
	ScriptRef string
}

// ID returns the stable page identifier for a site path: the first eight
// hex digits of its SHA-256 hash.
func ID(sitePath string) string {
	sum := sha256.Sum256([]byte(sitePath))
	return hex.EncodeToString(sum[:])[:8]
}

// FromTree runs the render pipeline over an engine-produced node value:
// tree building, scope assignment, and style collection. Serialization is
// deferred to Render.
func FromTree(raw *dom.RawNode, sitePath string) (*Page, error) {
	arena, root, err := dom.Build(raw)
	if err != nil {
		return nil, err
	}
	if err := dom.AssignScopes(arena, root); err != nil {
		return nil, err
	}

	sheet := styles.NewSheet()
	if err := sheet.Collect(arena, root); err != nil {
		return nil, err
	}

	return &Page{
		Arena:    arena,
		Root:     root,
		Sheet:    sheet,
		ID:       ID(sitePath),
		SitePath: sitePath,
	}, nil
}

// Render serializes the page to HTML: a doctype, the arena subtree, then a
// streaming rewrite that injects the aggregated stylesheet before </head>
// and the client bundle before </body>.
func (p *Page) Render(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>")
	sb.WriteString(dom.Render(p.Arena, p.Root))

	script := ""
	switch {
	case p.ScriptRef != "":
		script = `<script type="module" src="` + p.ScriptRef + `"></script>`
	case p.Script != "":
		script = `<script type="module">` + p.Script + `</script>`
	}

	style := ""
	if css := p.Sheet.CSS(); css != "" {
		style = "<style>" + css + "</style>"
	}

	return Inject(w, sb.String(), style, script)
}

// RenderString renders the page to a string.
func (p *Page) RenderString() (string, error) {
	var sb strings.Builder
	if err := p.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
