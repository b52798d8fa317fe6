// Command mcp-lsp-bridge runs the LSP multiplexing bridge: it spawns and
// supervises configured language servers and exposes their capabilities as
// a fixed MCP tool catalog over stdio.
package main

import "github.com/axivo/mcp-lsp/cmd/mcp-lsp-bridge/commands"

func main() {
	commands.Execute()
}
