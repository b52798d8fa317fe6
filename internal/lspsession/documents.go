package lspsession

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/axivo/mcp-lsp/internal/logging"
)

// openFile sends textDocument/didOpen for absPath on session s if it is not
// already open. Idempotent: a second call for the same path, or a call
// racing a concurrent opener for the same path, sends at most one
// didOpen — tryClaimOpen arbitrates the race as a single locked
// operation. ctx is checked first so a file whose open has already been
// abandoned (scoped-cancellation token expired) never starts late.
func (m *Manager) openFile(ctx context.Context, s *Session, absPath string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	uri := "file://" + absPath
	if !s.tryClaimOpen(uri) {
		return nil
	}
	text, err := os.ReadFile(absPath)
	if err != nil {
		s.releaseClaim(uri)
		return fmt.Errorf("reading %s: %w", absPath, err)
	}
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": s.LanguageID,
			"version":    1,
			"text":       string(text),
		},
	}
	if err := s.Channel.Notify("textDocument/didOpen", params); err != nil {
		s.releaseClaim(uri)
		return fmt.Errorf("didOpen %s: %w", absPath, err)
	}
	s.markOpened(uri)
	return nil
}

// openFiles opens paths concurrently, bounded by
// Settings.MaxConcurrentFileReads, behind a scoped cancellation token
// shared by every concurrent open. If timeout elapses first, the token is
// fired — no goroutine started by the abandoned background run claims a
// new file afterward — and a fallback opens at most the first 10 paths,
// then a timeout error is returned. tryClaimOpen (types.go) guarantees
// the fallback and any still-in-flight background open can never both
// send didOpen for the same path.
func (m *Manager) openFiles(ctx context.Context, s *Session, paths []string, timeout time.Duration) error {
	if timeout <= 0 {
		return m.openFilesFallback(ctx, s, paths)
	}

	boundedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.openFilesBounded(boundedCtx, s, paths); err != nil && boundedCtx.Err() == nil {
			logFailedOpen(s.LanguageID, "(batch)", err)
		}
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-time.After(timeout):
		cancel()
		if err := m.openFilesFallback(ctx, s, paths); err != nil {
			return err
		}
		return fmt.Errorf("opening project files timed out after %s, opened first %d files", timeout, min(len(paths), 10))
	}
}

func (m *Manager) openFilesFallback(ctx context.Context, s *Session, paths []string) error {
	limit := min(len(paths), 10)
	var firstErr error
	for _, p := range paths[:limit] {
		if err := m.openFile(ctx, s, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openFilesBounded opens paths concurrently, bounded by
// Settings.MaxConcurrentFileReads, and returns the first error encountered
// (every attempt still runs; this is best-effort reporting, not abort-on-
// first-failure). It stops scheduling new opens as soon as ctx is
// canceled, though opens already dispatched to a worker still run to
// completion.
func (m *Manager) openFilesBounded(ctx context.Context, s *Session, paths []string) error {
	max := s.Settings.MaxConcurrentFileReads
	if max <= 0 {
		max = 1
	}
	sem := make(chan struct{}, max)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			wg.Wait()
			return firstErr
		default:
		}
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.openFile(ctx, s, p); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// EnsureProjectFilesOpened opens every discovered project file on session
// s, idempotently, once per Session lifetime — the router's "project
// warm-up" guard for document-centric requests.
func (m *Manager) EnsureProjectFilesOpened(ctx context.Context, s *Session) error {
	files, _ := s.cachedProjectFiles()
	if len(files) == 0 {
		return nil
	}
	return m.openFilesBounded(ctx, s, files)
}

// EnsureWorkspaceFoldersAnnounced sends workspace/didChangeWorkspaceFolders
// exactly once per Session, before the first workspace/symbol-shaped
// request.
func (m *Manager) EnsureWorkspaceFoldersAnnounced(s *Session) error {
	if !s.needsWorkspaceFoldersAnnouncement() {
		return nil
	}
	uri := "file://" + s.Project.Path
	params := map[string]any{
		"event": map[string]any{
			"added":   []map[string]any{{"name": s.Project.Name, "uri": uri}},
			"removed": []map[string]any{},
		},
	}
	return s.Channel.Notify("workspace/didChangeWorkspaceFolders", params)
}

func logFailedOpen(languageID, path string, err error) {
	logging.WithLanguage(languageID).Warn().Err(err).Str("file", path).Msg("failed to open project file")
}
