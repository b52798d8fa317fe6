package shutdown

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

func TestShutdownAllStopsEverySession(t *testing.T) {
	doc := map[string]any{
		"servers": map[string]any{
			"py": map[string]any{
				"command":    fakeLSPBinary,
				"args":       []string{},
				"extensions": []string{".py"},
				"projects":   []map[string]any{{"name": "demo", "path": t.TempDir()}},
			},
			"go": map[string]any{
				"command":    fakeLSPBinary,
				"args":       []string{},
				"extensions": []string{".go"},
				"projects":   []map[string]any{{"name": "demo", "path": t.TempDir()}},
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
	_, err = mgr.Start(ctx, "go", "")
	require.NoError(t, err)

	require.Len(t, mgr.Sessions(), 2)

	New(mgr).ShutdownAll(ctx)

	require.Empty(t, mgr.Sessions())
}
