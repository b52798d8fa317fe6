package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/axivo/mcp-lsp/internal/config"
	"github.com/axivo/mcp-lsp/internal/event"
	"github.com/axivo/mcp-lsp/internal/logging"
	"github.com/axivo/mcp-lsp/internal/lspsession"
	"github.com/axivo/mcp-lsp/internal/router"
	"github.com/axivo/mcp-lsp/internal/shutdown"
	"github.com/axivo/mcp-lsp/internal/tools"
	"github.com/axivo/mcp-lsp/pkg/mcpbridge"

	"github.com/mark3labs/mcp-go/server"
)

const envConfigPath = "LSP_FILE_PATH"

// runServe is the bridge's sole operating mode: load the configured
// server catalog, wire the manager/router/dispatcher stack, and serve the
// MCP tool catalog over stdio until signaled to stop.
func runServe(cmd *cobra.Command, args []string) error {
	path := os.Getenv(envConfigPath)
	if path == "" {
		return fmt.Errorf("%s is not set", envConfigPath)
	}

	store, err := config.Load(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("starting with an empty server catalog")
	}

	manager := lspsession.NewManager(store)

	watcher, err := config.NewWatcher(path, store)
	if err != nil {
		logging.Warn().Err(err).Msg("config hot-reload disabled: failed to start watcher")
	} else {
		unsubscribe := event.Subscribe(event.ConfigReloaded, func(event.Event) {
			manager.SetStore(watcher.Current())
			logging.Info().Str("path", path).Msg("configuration reloaded")
		})
		defer unsubscribe()
		watcher.Start()
		defer watcher.Stop()
	}

	r := router.New(manager)
	dispatcher := tools.New(r, manager)
	mcpServer := mcpbridge.NewServer(dispatcher)
	coordinator := shutdown.New(manager)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ServeStdio(mcpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			logging.Warn().Err(err).Msg("stdio transport closed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	coordinator.ShutdownAll(ctx)
	if err := event.Close(); err != nil {
		logging.Warn().Err(err).Msg("event bus close failed")
	}
	return nil
}
