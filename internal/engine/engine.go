// Package engine owns the embedded scripting engine that executes page
// sources. Go page scripts (.gsx) are interpreted by yaegi with the
// areum/el construction API in scope; Markdown pages (.md) are rendered by
// goldmark with YAML front matter. The engine also accumulates each built
// page's client script into the site bundle.
//
// An Engine is not safe for concurrent use: it is confined to the single
// environment actor that owns it, and is replaced wholesale on restart
// rather than reset.
package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/tdewolff/minify/v2"
	minjs "github.com/tdewolff/minify/v2/js"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/yklcs/areum/internal/dom"
	"github.com/yklcs/areum/internal/engine/el"
	"github.com/yklcs/areum/internal/errors"
	"github.com/yklcs/areum/internal/page"
)

// Symbols exposes the areum/el construction API to interpreted scripts.
var Symbols = interp.Exports{
	"areum/el/el": {
		"H":         reflect.ValueOf(el.H),
		"Component": reflect.ValueOf(el.Component),
		"Fragment":  reflect.ValueOf(el.Fragment),
		"Text":      reflect.ValueOf(el.Text),
		"Scope":     reflect.ValueOf(el.Scope),
		"Node":      reflect.ValueOf((*el.Node)(nil)),
		"Attrs":     reflect.ValueOf((*el.Attrs)(nil)),
	},
}

var jsMinifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("application/javascript", minjs.Minify)
	return m
}()

// Engine holds the site root and the accumulating client bundle. Page
// scripts each evaluate in their own interpreter instance: yaegi's global
// scope rejects re-imported packages, and a per-page scope also keeps one
// page's definitions from leaking into the next.
type Engine struct {
	root   string
	bundle strings.Builder
}

// New creates an engine rooted at the site source directory and verifies
// the interpreter bootstraps against it. Construction failures are fatal
// to the owning actor only.
func New(root string) (*Engine, error) {
	e := &Engine{root: root}
	if _, err := e.newInterp(); err != nil {
		return nil, err
	}
	return e, nil
}

// newInterp constructs a fresh interpreter with the stdlib and areum/el
// symbols in scope.
func (e *Engine) newInterp() (*interp.Interpreter, error) {
	i := interp.New(interp.Options{GoPath: e.root})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("loading el symbols: %w", err)
	}
	return i, nil
}

// Run builds the page at path, served under sitePath. It executes the
// source, materializes the returned tree through the render pipeline, and
// contributes the page's client script to the bundle.
func (e *Engine) Run(path, sitePath string) (*page.Page, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw *dom.RawNode
	var script string

	switch filepath.Ext(path) {
	case ".gsx":
		raw, script, err = e.runScript(path, source)
	case ".md":
		raw, err = e.runMarkdown(source)
	default:
		err = &errors.SourceError{Path: path, Cause: fmt.Errorf("not a page source")}
	}
	if err != nil {
		return nil, err
	}

	p, err := page.FromTree(raw, sitePath)
	if err != nil {
		return nil, err
	}

	if script != "" {
		minified, err := jsMinifier.String("application/javascript", script)
		if err != nil {
			return nil, &errors.SourceError{Path: path, Cause: fmt.Errorf("minifying client script: %w", err)}
		}
		p.Script = minified
		fmt.Fprintf(&e.bundle, "// page %s\n%s\n", p.ID, minified)
	}

	return p, nil
}

// Bundle returns the accumulated client bundle for all pages built so far,
// minified.
func (e *Engine) Bundle() (string, error) {
	code := e.bundle.String()
	if code == "" {
		return "", nil
	}
	minified, err := jsMinifier.String("application/javascript", code)
	if err != nil {
		return "", fmt.Errorf("minifying bundle: %w", err)
	}
	return minified, nil
}

// runScript evaluates a .gsx page script in a fresh interpreter and calls
// its Page entry point.
func (e *Engine) runScript(path string, source []byte) (*dom.RawNode, string, error) {
	i, err := e.newInterp()
	if err != nil {
		return nil, "", err
	}

	if _, err := i.Eval(string(source)); err != nil {
		return nil, "", &errors.SourceError{Path: path, Cause: err}
	}

	pageVal, err := i.Eval("main.Page")
	if err != nil {
		return nil, "", &errors.SourceError{Path: path, Cause: fmt.Errorf("script does not define Page")}
	}
	pageFn, ok := pageVal.Interface().(func() el.Node)
	if !ok {
		return nil, "", &errors.SourceError{
			Path:  path,
			Cause: fmt.Errorf("Page has type %T, want func() el.Node", pageVal.Interface()),
		}
	}

	body := pageFn()
	if body == nil {
		return nil, "", &errors.SourceError{Path: path, Cause: fmt.Errorf("Page returned nil")}
	}

	title := evalString(i, "main.Title")
	script := evalString(i, "main.Script")

	return document(title, body), script, nil
}

// evalString calls a nullary string entry point, returning "" when it is
// absent or has the wrong type.
func evalString(i *interp.Interpreter, symbol string) string {
	v, err := i.Eval(symbol)
	if err != nil {
		return ""
	}
	fn, ok := v.Interface().(func() string)
	if !ok {
		return ""
	}
	return fn()
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// runMarkdown renders a Markdown page: optional YAML front matter, body
// converted to HTML inside an article element.
func (e *Engine) runMarkdown(source []byte) (*dom.RawNode, error) {
	meta, body := splitFrontMatter(source)

	var fm frontMatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	article := &dom.RawNode{
		Kind:     dom.RawKindIntrinsic,
		Tag:      "article",
		Children: buf.String(),
	}
	return document(fm.Title, article), nil
}

// document wraps page content in the standard document shell.
func document(title string, body *dom.RawNode) *dom.RawNode {
	head := []any{
		&dom.RawNode{
			Kind:  dom.RawKindIntrinsic,
			Tag:   "meta",
			Props: map[string]any{"charset": "utf-8"},
		},
	}
	if title != "" {
		head = append(head, &dom.RawNode{
			Kind:     dom.RawKindIntrinsic,
			Tag:      "title",
			Children: title,
		})
	}

	return &dom.RawNode{
		Kind: dom.RawKindIntrinsic,
		Tag:  "html",
		Children: []any{
			&dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "head", Children: head},
			&dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "body", Children: body},
		},
	}
}

// splitFrontMatter splits a leading "---"-delimited YAML block from the
// document body.
func splitFrontMatter(source []byte) (meta, body []byte) {
	const delim = "---\n"
	if !bytes.HasPrefix(source, []byte(delim)) {
		return nil, source
	}
	rest := source[len(delim):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, source
	}
	meta = rest[:end]
	body = rest[end+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\n"))
	return meta, body
}
