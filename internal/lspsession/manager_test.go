package lspsession

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
)

var fakeLSPBinary string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "fakelsp-bin")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	fakeLSPBinary = filepath.Join(dir, "fakelsp")
	build := exec.Command("go", "build", "-o", fakeLSPBinary, "./testdata/fakelsp")
	build.Dir = "."
	if out, err := build.CombinedOutput(); err != nil {
		println("failed to build fakelsp fixture:", string(out))
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// writeTestConfig renders a single-server configuration document to a temp
// file and loads it through the real config.Load path, matching how the
// config package's own tests are written.
func writeTestConfig(t *testing.T, languageID, projectPath string, settings map[string]any) *config.Store {
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
				"settings": settings,
			},
		},
	}
	body, err := json.Marshal(doc)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "lsp.json")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	store, err := config.Load(path)
	require.NoError(t, err)
	return store
}

func newTestStore(t *testing.T, languageID, projectPath string) *config.Store {
	return writeTestConfig(t, languageID, projectPath, nil)
}

func TestManagerStartStopRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))

	store := newTestStore(t, "py", dir)
	mgr := NewManager(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := mgr.Start(ctx, "py", "")
	require.NoError(t, err)
	require.True(t, session.Initialized())
	require.Equal(t, "demo", session.Project.Name)

	status := mgr.Status("py")
	require.Equal(t, StatusReady, status.Status)
	require.Equal(t, "demo", status.Project)
	require.Greater(t, status.PID, 0)

	require.Error(t, func() error {
		_, err := mgr.Start(ctx, "py", "")
		return err
	}())

	require.NoError(t, mgr.Stop(ctx, "py"))
	require.Equal(t, StatusStopped, mgr.Status("py").Status)

	session2, err := mgr.Start(ctx, "py", "")
	require.NoError(t, err)
	require.True(t, session2.Initialized())
	require.NoError(t, mgr.Stop(ctx, "py"))
}

func TestManagerStopNotRunning(t *testing.T) {
	store := newTestStore(t, "py", t.TempDir())
	mgr := NewManager(store)
	err := mgr.Stop(context.Background(), "py")
	require.Error(t, err)
}

func TestManagerStatusUnconfigured(t *testing.T) {
	store := newTestStore(t, "py", t.TempDir())
	mgr := NewManager(store)
	status := mgr.Status("rust")
	require.Equal(t, StatusUnconfigured, status.Status)
}

func TestManagerRateLimit(t *testing.T) {
	dir := t.TempDir()
	store := writeTestConfig(t, "py", dir, map[string]any{
		"rateLimitMaxRequests": 2,
		"rateLimitWindowMs":    60000,
	})
	mgr := NewManager(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := mgr.Start(ctx, "py", "")
	require.NoError(t, err)
	defer mgr.Stop(ctx, "py")

	require.True(t, mgr.AllowRequest(session))
	require.True(t, mgr.AllowRequest(session))
	require.False(t, mgr.AllowRequest(session))
}
