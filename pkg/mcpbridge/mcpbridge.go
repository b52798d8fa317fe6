// Package mcpbridge adapts the tool dispatcher (internal/tools) onto
// mark3labs/mcp-go's server.MCPServer, the concrete outer-protocol
// transport this bridge runs over stdio. It is the one
// place the domain logic's tool catalog is declared as MCP tool schemas.
package mcpbridge

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/axivo/mcp-lsp/internal/tools"
)

const (
	serverName    = "mcp-lsp-bridge"
	serverVersion = "1.0.0"
)

// NewServer builds an MCP server exposing every tool in the dispatcher's
// catalog, each call routed through d.
func NewServer(d *tools.Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))
	for _, name := range tools.Names() {
		def, ok := tools.Lookup(name)
		if !ok {
			continue
		}
		s.AddTool(buildTool(def), handlerFor(d, name))
	}
	return s
}

// buildTool declares one catalog entry's input schema using mcp-go's
// schema builders.
func buildTool(def tools.ToolDef) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, f := range def.Fields {
		var propOpts []mcp.PropertyOption
		if f.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch f.Kind {
		case tools.FieldString, tools.FieldQuery:
			opts = append(opts, mcp.WithString(f.Name, propOpts...))
		case tools.FieldNumber:
			opts = append(opts, mcp.WithNumber(f.Name, propOpts...))
		case tools.FieldBool:
			opts = append(opts, mcp.WithBoolean(f.Name, propOpts...))
		case tools.FieldObject:
			opts = append(opts, mcp.WithObject(f.Name, propOpts...))
		}
	}
	return mcp.NewTool(def.Name, opts...)
}

func handlerFor(d *tools.Dispatcher, name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := d.Call(ctx, name, req.GetArguments())
		return toMCPResult(result), nil
	}
}

// toMCPResult renders a tools.Result as an MCP tool result. The envelope's
// structured Data (used directly by non-MCP callers and tests) is already
// folded into Content[0].Text as JSON by the dispatcher, so the MCP
// binding only needs the text.
func toMCPResult(result tools.Result) *mcp.CallToolResult {
	if len(result.Content) == 0 {
		return mcp.NewToolResultText("")
	}
	return mcp.NewToolResultText(result.Content[0].Text)
}
