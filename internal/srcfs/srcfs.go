// Package srcfs scans and resolves the site source tree. It classifies
// sources by kind, honors the .areumignore ignore-file convention, maps
// sources to logical site paths and output paths, and copies static assets
// byte-for-byte.
package srcfs

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile is the ignore-file convention honored during scans, with
// gitignore pattern semantics.
const IgnoreFile = ".areumignore"

// Kind classifies a source file.
type Kind int

const (
	KindOther Kind = iota
	// KindPage is an interpreted Go page script.
	KindPage
	// KindMarkdown is a Markdown page.
	KindMarkdown
	// KindScript is a client-side script source.
	KindScript
	// KindStyle is a stylesheet source.
	KindStyle
)

// KindOf classifies a path by extension.
func KindOf(p string) Kind {
	switch filepath.Ext(p) {
	case ".gsx":
		return KindPage
	case ".md":
		return KindMarkdown
	case ".js", ".ts":
		return KindScript
	case ".css":
		return KindStyle
	default:
		return KindOther
	}
}

// File is one scanned source file.
type File struct {
	// Path is the absolute filesystem path.
	Path string
	Kind Kind
	// Underscore marks files whose name starts with "_": never served or
	// built as pages, available as imports/partials.
	Underscore bool
	// Generator marks the special "_" fallback generator page ("_.gsx").
	Generator bool
}

// IsPage reports whether the file builds into an HTML page.
func (f File) IsPage() bool {
	return (f.Kind == KindPage || f.Kind == KindMarkdown) && !f.Underscore
}

// IsAsset reports whether the file is copied/served as-is.
func (f File) IsAsset() bool {
	return f.Kind != KindPage && f.Kind != KindMarkdown
}

// FS is a scanned snapshot of the site source tree. Scan may be called
// again to refresh; reads and scans may race from different goroutines.
type FS struct {
	mu      sync.RWMutex
	root    string
	entries []File
}

// New creates an FS rooted at root and performs an initial scan.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s := &FS{root: abs}
	if err := s.Scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the absolute source root.
func (s *FS) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Scan walks the source tree and replaces the entry snapshot. Hidden
// entries and .areumignore matches are skipped.
func (s *FS) Scan() error {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()

	var ignore *gitignore.GitIgnore
	if _, err := os.Stat(filepath.Join(root, IgnoreFile)); err == nil {
		ignore, err = gitignore.CompileIgnoreFile(filepath.Join(root, IgnoreFile))
		if err != nil {
			return err
		}
	}

	var entries []File
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		hidden := strings.HasPrefix(d.Name(), ".")
		ignored := ignore != nil && ignore.MatchesPath(rel)

		if d.IsDir() {
			if hidden || ignored {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || ignored {
			return nil
		}

		name := d.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		entries = append(entries, File{
			Path:       p,
			Kind:       KindOf(p),
			Underscore: strings.HasPrefix(name, "_"),
			Generator:  stem == "_",
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Entries returns the current snapshot.
func (s *FS) Entries() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, len(s.entries))
	copy(out, s.entries)
	return out
}

// Pages returns all buildable page sources.
func (s *FS) Pages() []File {
	var out []File
	for _, f := range s.Entries() {
		if f.IsPage() {
			out = append(out, f)
		}
	}
	return out
}

// Assets returns all non-page sources.
func (s *FS) Assets() []File {
	var out []File
	for _, f := range s.Entries() {
		if f.IsAsset() {
			out = append(out, f)
		}
	}
	return out
}

// Find resolves a request path to a source file. Resolution order: exact
// file, extensionless page match (/x -> /x.gsx, /x.md), index page match
// (/x -> /x/index.gsx), and finally the "_" generator page of the parent
// directory.
func (s *FS) Find(requestPath string) (File, bool) {
	resolved := filepath.Join(s.Root(), filepath.FromSlash(strings.TrimPrefix(requestPath, "/")))

	entries := s.Entries()

	for _, f := range entries {
		if f.Path == resolved {
			return f, true
		}
	}
	for _, f := range entries {
		if f.IsPage() && withoutExt(f.Path) == resolved {
			return f, true
		}
	}
	for _, f := range entries {
		if f.IsPage() && withoutExt(f.Path) == filepath.Join(resolved, "index") {
			return f, true
		}
	}
	for _, f := range entries {
		if f.Generator && withoutExt(f.Path) == filepath.Join(filepath.Dir(resolved), "_") {
			return f, true
		}
	}
	return File{}, false
}

// SitePath returns the logical site path a source is served under:
// /index.gsx -> /, /dir/index.gsx -> /dir, /dir.gsx -> /dir. Assets map to
// their relative path.
func (s *FS) SitePath(f File) (string, error) {
	rel, err := filepath.Rel(s.Root(), f.Path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if f.IsAsset() {
		return "/" + rel, nil
	}

	trimmed := strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(trimmed) == "index" {
		trimmed = path.Dir(trimmed)
		if trimmed == "." {
			trimmed = ""
		}
	}
	return "/" + trimmed, nil
}

// OutPath returns the output location of a source under outDir: pages land
// at <sitePath>/index.html, assets at their relative source path.
func (s *FS) OutPath(f File, outDir string) (string, error) {
	sitePath, err := s.SitePath(f)
	if err != nil {
		return "", err
	}
	if f.IsAsset() {
		return filepath.Join(outDir, filepath.FromSlash(sitePath)), nil
	}
	return filepath.Join(outDir, filepath.FromSlash(sitePath), "index.html"), nil
}

// Copy copies an asset byte-for-byte to its output location, creating
// parent directories as needed.
func (s *FS) Copy(f File, outDir string) error {
	out, err := s.OutPath(f, outDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

func withoutExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}
