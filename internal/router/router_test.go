package router

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axivo/mcp-lsp/internal/config"
	"github.com/axivo/mcp-lsp/internal/lspsession"
)

var fakeLSPBinary string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "fakelsp-bin")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	fakeLSPBinary = filepath.Join(dir, "fakelsp")
	build := exec.Command("go", "build", "-o", fakeLSPBinary, "../lspsession/testdata/fakelsp")
	if out, err := build.CombinedOutput(); err != nil {
		println("failed to build fakelsp fixture:", string(out))
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newRunningManager(t *testing.T, languageID, projectPath string) (*lspsession.Manager, *lspsession.Session) {
	t.Helper()
	doc := map[string]any{
		"servers": map[string]any{
			languageID: map[string]any{
				"command":    fakeLSPBinary,
				"args":       []string{},
				"extensions": []string{".py"},
				"projects": []map[string]any{
					{"name": "demo", "path": projectPath},
				},
			},
		},
	}
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lsp.json")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	store, err := config.Load(path)
	require.NoError(t, err)
	mgr := lspsession.NewManager(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := mgr.Start(ctx, languageID, "")
	require.NoError(t, err)
	return mgr, session
}

func TestRouterSendRequestNotRunning(t *testing.T) {
	store, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	mgr := lspsession.NewManager(store)
	r := New(mgr)

	_, err = r.SendRequest(context.Background(), "py", "", "textDocument/hover", nil)
	require.ErrorAs(t, err, &ErrNotRunning{})
}

func TestRouterSendFileRequestRoutesAndWarmsUp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("b"), 0o644))

	mgr, session := newRunningManager(t, "py", dir)
	defer mgr.Stop(context.Background(), "py")

	r := New(mgr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	file := filepath.Join(dir, "a.py")
	_, err := r.SendFileRequest(ctx, file, "textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": "file://" + file},
		"position":     map[string]any{"line": 0, "character": 0},
	})
	require.NoError(t, err)
	require.Equal(t, 2, session.OpenFileCount())
}

func TestRouterSendFileRequestUnowned(t *testing.T) {
	dir := t.TempDir()
	mgr, _ := newRunningManager(t, "py", dir)
	defer mgr.Stop(context.Background(), "py")

	r := New(mgr)
	_, err := r.SendFileRequest(context.Background(), "/tmp/other/x.py", "textDocument/hover", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not belong to running language server")
}

func TestRouterRateLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("a"), 0o644))
	doc := map[string]any{
		"servers": map[string]any{
			"py": map[string]any{
				"command":    fakeLSPBinary,
				"args":       []string{},
				"extensions": []string{".py"},
				"projects": []map[string]any{
					{"name": "demo", "path": dir},
				},
				"settings": map[string]any{
					"rateLimitMaxRequests": 1,
					"rateLimitWindowMs":    60000,
				},
			},
		},
	}
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lsp.json")
	require.NoError(t, os.WriteFile(path, body, 0o644))
	store, err := config.Load(path)
	require.NoError(t, err)
	mgr := lspsession.NewManager(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = mgr.Start(ctx, "py", "")
	require.NoError(t, err)
	defer mgr.Stop(ctx, "py")

	r := New(mgr)
	file := filepath.Join(dir, "a.py")
	params := map[string]any{
		"textDocument": map[string]any{"uri": "file://" + file},
		"position":     map[string]any{"line": 0, "character": 0},
	}
	_, err = r.SendFileRequest(ctx, file, "textDocument/hover", params)
	require.NoError(t, err)
	_, err = r.SendFileRequest(ctx, file, "textDocument/hover", params)
	require.ErrorAs(t, err, &ErrRateLimited{})
}
