package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yklcs/areum/internal/dom"
	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/page"
)

// stubEnv satisfies Environment without a real scripting engine.
type stubEnv struct {
	restarts atomic.Int32
	fail     bool
	lastPath string
	lastSite string
}

func (e *stubEnv) Build(_ context.Context, path, sitePath string) (*page.Page, error) {
	e.lastPath = path
	e.lastSite = sitePath
	if e.fail {
		return nil, fmt.Errorf("script blew up")
	}

	raw := &dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "html", Children: []any{
		&dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "head", Children: []any{
			&dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "title", Children: "stub"},
		}},
		&dom.RawNode{Kind: dom.RawKindIntrinsic, Tag: "body", Children: "rendered " + sitePath},
	}}
	return page.FromTree(raw, sitePath)
}

func (e *stubEnv) Restart() error {
	e.restarts.Add(1)
	return nil
}

func newTestServer(t *testing.T, env Environment) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.gsx"), []byte("// page"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "about.gsx"), []byte("// page"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("body{margin:0}"), 0o644))

	s, err := New(root, env, Options{}, logging.Discard())
	require.NoError(t, err)
	return s, root
}

func TestServePage(t *testing.T) {
	env := &stubEnv{}
	s, root := newTestServer(t, env)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/about")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readAll(t, resp)
	assert.Contains(t, body, "rendered /about")
	// Dev pages carry the live reload client inline.
	assert.Contains(t, body, "WebSocket")
	assert.Equal(t, filepath.Join(root, "about.gsx"), env.lastPath)
	assert.Equal(t, "/about", env.lastSite)
}

func TestServeIndex(t *testing.T) {
	env := &stubEnv{}
	s, _ := newTestServer(t, env)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "rendered /")
}

func TestServeAsset(t *testing.T) {
	env := &stubEnv{}
	s, _ := newTestServer(t, env)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/style.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{margin:0}", readAll(t, resp))
}

func TestServeGeneratorFallback(t *testing.T) {
	env := &stubEnv{}
	s, root := newTestServer(t, env)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "posts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "posts", "_.gsx"), []byte("// generator"), 0o644))
	require.NoError(t, s.fs.Scan())

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/posts/hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The generator builds under the requested path, not its own.
	assert.Equal(t, filepath.Join(root, "posts", "_.gsx"), env.lastPath)
	assert.Equal(t, "/posts/hello", env.lastSite)
}

func TestServeNotFound(t *testing.T) {
	env := &stubEnv{}
	s, _ := newTestServer(t, env)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeBuildError(t *testing.T) {
	env := &stubEnv{fail: true}
	s, _ := newTestServer(t, env)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/about")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := readAll(t, resp)
	assert.Contains(t, body, "script blew up")
	// Error pages still reconnect and reload once the source is fixed.
	assert.Contains(t, body, "WebSocket")
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	buf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(buf)
}
