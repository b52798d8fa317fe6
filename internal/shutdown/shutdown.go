// Package shutdown implements the shutdown coordinator:
// on SIGINT/SIGTERM it runs the process supervisor's graceful stop
// sequence across every live session in parallel, tolerating and logging
// per-session failures independently.
package shutdown

import (
	"context"
	"sync"

	"github.com/axivo/mcp-lsp/internal/logging"
	"github.com/axivo/mcp-lsp/internal/lspsession"
)

// Coordinator drains every live session on shutdown.
type Coordinator struct {
	manager *lspsession.Manager
}

// New builds a Coordinator over manager.
func New(manager *lspsession.Manager) *Coordinator {
	return &Coordinator{manager: manager}
}

// ShutdownAll stops every live session in parallel. A failure stopping one
// session is logged and does not prevent the others from draining.
func (c *Coordinator) ShutdownAll(ctx context.Context) {
	sessions := c.manager.Sessions()
	var wg sync.WaitGroup
	for _, s := range sessions {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.manager.Stop(ctx, s.LanguageID); err != nil {
				logging.WithLanguage(s.LanguageID).Warn().Err(err).Msg("shutdown: failed to stop session cleanly")
			}
		}()
	}
	wg.Wait()
}
