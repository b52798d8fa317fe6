package mcpbridge

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axivo/mcp-lsp/internal/config"
	"github.com/axivo/mcp-lsp/internal/lspsession"
	"github.com/axivo/mcp-lsp/internal/router"
	"github.com/axivo/mcp-lsp/internal/tools"
)

func newTestDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	store, _ := config.Load("/nonexistent/lsp.json")
	mgr := lspsession.NewManager(store)
	return tools.New(router.New(mgr), mgr)
}

func TestNewServerBuildsWithoutError(t *testing.T) {
	s := NewServer(newTestDispatcher(t))
	assert.NotNil(t, s)
}

func TestBuildToolCarriesCatalogNameAndDescription(t *testing.T) {
	for _, name := range []string{"get_hover", "start_server", "get_project_files"} {
		def, ok := tools.Lookup(name)
		require.Truef(t, ok, "expected %q in the catalog", name)
		tool := buildTool(def)
		assert.Equal(t, def.Name, tool.Name)
		assert.Equal(t, def.Description, tool.Description)
	}
}

func TestHandlerRoutesThroughDispatcher(t *testing.T) {
	d := newTestDispatcher(t)
	h := handlerFor(d, "get_hover")

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_hover"
	req.Params.Arguments = map[string]any{"file_path": "/tmp/a.py"}

	result, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Missing required arguments: character, line", text.Text)
}
