// Package builder performs the static site build: every page is rendered
// through the environment, the client bundle is collected into a shared
// file, and assets are copied through verbatim.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yklcs/areum/internal/engine"
	"github.com/yklcs/areum/internal/env"
	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
	"github.com/yklcs/areum/internal/srcfs"
)

// BundlePath is the site path of the shared client bundle.
const BundlePath = "/index.js"

// Builder writes a static rendition of a source tree into an output
// directory.
type Builder struct {
	fs  *srcfs.FS
	env *env.Manager
	out string
	log logging.Logger
}

// Report summarizes a completed build.
type Report struct {
	Pages    int
	Assets   int
	Duration time.Duration
}

// New prepares a build of the source tree at root into out.
func New(root, out string, log logging.Logger) (*Builder, error) {
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("builder")

	fs, err := srcfs.New(root)
	if err != nil {
		return nil, err
	}

	factory := func() (env.Engine, error) {
		eng, err := engine.New(root)
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
	manager, err := env.NewManager(factory, log)
	if err != nil {
		return nil, err
	}

	return &Builder{fs: fs, env: manager, out: out, log: log}, nil
}

// Close releases the build environment.
func (b *Builder) Close() {
	b.env.Stop()
}

// Build scans the source tree and writes the full site. The first page
// that fails to build aborts the whole build; partially written output is
// left in place for inspection.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()

	if err := b.fs.Scan(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.out, 0o755); err != nil {
		return nil, err
	}

	pages, err := b.buildPages(ctx)
	if err != nil {
		return nil, err
	}

	bundle, err := b.env.BundleJS(ctx)
	if err != nil {
		return nil, err
	}
	if bundle != "" {
		if err := b.writeBundle(bundle); err != nil {
			return nil, err
		}
	}

	for _, p := range pages {
		// Deployed pages reference the shared bundle instead of carrying
		// inline scripts.
		if p.Script != "" {
			p.Script = ""
			p.ScriptRef = BundlePath
		}
		if err := b.writePage(p); err != nil {
			return nil, err
		}
	}

	assets, err := b.copyAssets()
	if err != nil {
		return nil, err
	}

	report := &Report{Pages: len(pages), Assets: assets, Duration: time.Since(start)}
	b.log.Info(ctx, "build finished",
		"pages", report.Pages, "assets", report.Assets, "elapsed", report.Duration)
	return report, nil
}

func (b *Builder) buildPages(ctx context.Context) ([]*page.Page, error) {
	var pages []*page.Page
	for _, f := range b.fs.Pages() {
		sitePath, err := b.fs.SitePath(f)
		if err != nil {
			return nil, err
		}
		p, err := b.env.Build(ctx, f.Path, sitePath)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", sitePath, err)
		}
		b.log.Debug(ctx, "built page", "path", sitePath, "id", p.ID)
		pages = append(pages, p)
	}
	return pages, nil
}

func (b *Builder) writePage(p *page.Page) error {
	out := filepath.Join(b.out, filepath.FromSlash(p.SitePath), "index.html")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := p.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (b *Builder) writeBundle(bundle string) error {
	out := filepath.Join(b.out, filepath.FromSlash(BundlePath))
	return os.WriteFile(out, []byte(bundle), 0o644)
}

func (b *Builder) copyAssets() (int, error) {
	n := 0
	for _, f := range b.fs.Assets() {
		if f.Underscore {
			continue
		}
		if err := b.fs.Copy(f, b.out); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
