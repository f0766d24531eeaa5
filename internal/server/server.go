// Package server is the development server: it resolves request paths
// against the source tree, builds pages on demand through the
// environment, serves assets directly, and live-reloads connected pages
// when sources change.
package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"path"
	"path/filepath"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
	"github.com/yklcs/areum/internal/srcfs"
	"github.com/yklcs/areum/internal/watcher"
)

// Environment is the build backend the server routes page requests
// through.
type Environment interface {
	Build(ctx context.Context, path, sitePath string) (*page.Page, error)
	Restart() error
}

// Options configures the dev server.
type Options struct {
	Host string
	Port int
	// Debounce is the quiet period before a change batch triggers a
	// rebuild.
	Debounce time.Duration
	// Ignore holds extra gitignore-style patterns excluded from watching.
	Ignore []string
}

// Server serves a source tree in development mode.
type Server struct {
	fs   *srcfs.FS
	env  Environment
	hub  *reloadHub
	opts Options
	log  logging.Logger
}

// New creates a dev server over the scanned source tree at root.
func New(root string, environment Environment, opts Options, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("server")

	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	fs, err := srcfs.New(root)
	if err != nil {
		return nil, err
	}
	if err := fs.Scan(); err != nil {
		return nil, err
	}

	return &Server{
		fs:   fs,
		env:  environment,
		hub:  newReloadHub(log),
		opts: opts,
		log:  log,
	}, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ReloadPath, s.hub.handle)
	mux.HandleFunc("/", s.serve)
	return mux
}

// Serve runs the server until ctx is cancelled, watching the source tree
// for changes. A change batch rescans the tree, restarts the environment
// so module caches are dropped, and reloads connected pages.
func (s *Server) Serve(ctx context.Context) error {
	w, err := watcher.New(s.opts.Debounce, s.log)
	if err != nil {
		return err
	}
	w.AddFilter(watcher.SourceFilter)
	w.AddFilter(watcher.NoHiddenFilter)
	if len(s.opts.Ignore) > 0 {
		ign := gitignore.CompileIgnoreLines(s.opts.Ignore...)
		root := s.fs.Root()
		w.AddFilter(func(p string) bool {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return true
			}
			return !ign.MatchesPath(rel)
		})
	}
	w.AddHandler(func(events []watcher.Event) {
		s.log.Info(ctx, "source changed", "files", len(events))
		if err := s.fs.Scan(); err != nil {
			s.log.Error(ctx, err, "rescan failed")
		}
		if err := s.env.Restart(); err != nil {
			s.log.Error(ctx, err, "environment restart failed")
			return
		}
		s.hub.broadcast(ctx)
	})
	if err := w.AddRecursive(s.fs.Root()); err != nil {
		return err
	}
	w.Start(ctx)
	defer w.Stop()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
		s.hub.closeAll()
	}()

	s.log.Info(ctx, "serving", "addr", "http://"+addr)
	err = httpSrv.ListenAndServe()
	<-done
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	requestPath := path.Clean(r.URL.Path)

	f, ok := s.fs.Find(requestPath)
	if !ok {
		s.notFound(w, requestPath)
		return
	}

	if f.IsAsset() {
		http.ServeFile(w, r, f.Path)
		return
	}

	sitePath := requestPath
	if !f.Generator {
		resolved, err := s.fs.SitePath(f)
		if err == nil {
			sitePath = resolved
		}
	}

	p, err := s.env.Build(r.Context(), f.Path, sitePath)
	if err != nil {
		s.buildError(w, r, sitePath, err)
		return
	}

	// Dev pages carry their script inline plus the reload client.
	if p.Script != "" {
		p.Script += "\n" + reloadClient
	} else {
		p.Script = reloadClient
	}
	p.ScriptRef = ""

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.Render(w); err != nil {
		s.log.Error(r.Context(), err, "render failed", "path", sitePath)
	}
}

func (s *Server) notFound(w http.ResponseWriter, requestPath string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>404</h1><p>no source for %s</p></body></html>", html.EscapeString(requestPath))
}

func (s *Server) buildError(w http.ResponseWriter, r *http.Request, sitePath string, err error) {
	s.log.Error(r.Context(), err, "build failed", "path", sitePath)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>build error</h1><pre>%s</pre><script>%s</script></body></html>",
		html.EscapeString(err.Error()), reloadClient)
}
