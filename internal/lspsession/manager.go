package lspsession

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/axivo/mcp-lsp/internal/config"
	"github.com/axivo/mcp-lsp/internal/event"
	"github.com/axivo/mcp-lsp/internal/logging"
	"github.com/axivo/mcp-lsp/internal/procsup"
	"github.com/axivo/mcp-lsp/internal/rpc"
)

const (
	clientName    = "mcp-lsp-bridge"
	clientVersion = "1.0.0"
)

// Manager owns the live Session set: at most one per configured language,
// the FileIndex used by the router's fast path, and
// the config Store used to resolve server specs on start.
type Manager struct {
	store *config.Store

	mu         sync.RWMutex
	byLanguage map[string]*Session
	fileIndex  map[string]string // absolute path -> language_id
}

// NewManager builds a Manager backed by store. Swap the store with
// SetStore when the configuration is hot-reloaded.
func NewManager(store *config.Store) *Manager {
	return &Manager{
		store:      store,
		byLanguage: make(map[string]*Session),
		fileIndex:  make(map[string]string),
	}
}

// SetStore swaps the config store consulted by Start, used after a
// successful config reload. Already-running sessions are unaffected.
func (m *Manager) SetStore(store *config.Store) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// Session returns the live session for a language, if any.
func (m *Manager) Session(languageID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byLanguage[languageID]
	return s, ok
}

// Sessions returns a snapshot of all live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.byLanguage))
	for _, s := range m.byLanguage {
		out = append(out, s)
	}
	return out
}

// SessionForFile resolves file to its owning Session via the FileIndex fast
// path, falling back to a scan of live sessions whose project path prefixes
// file and whose server handles one of its extensions.
func (m *Manager) SessionForFile(file string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if lang, ok := m.fileIndex[file]; ok {
		if s, ok := m.byLanguage[lang]; ok {
			return s, true
		}
	}
	for _, s := range m.byLanguage {
		if !pathHasPrefix(file, s.Project.Path) {
			continue
		}
		if hasAnyExtension(file, s.Spec.Extensions) {
			return s, true
		}
	}
	return nil, false
}

func pathHasPrefix(file, root string) bool {
	if file == root {
		return true
	}
	if len(file) <= len(root) {
		return false
	}
	if file[:len(root)] != root {
		return false
	}
	return file[len(root)] == '/'
}

// ServerConfig returns the configured spec for languageID, used by the
// tool dispatcher's get_server_projects.
func (m *Manager) ServerConfig(languageID string) (config.ServerSpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.ServerConfig(languageID)
}

// Status returns the observable state for one language.
func (m *Manager) Status(languageID string) StatusRecord {
	m.mu.RLock()
	spec, configured := m.store.ServerConfig(languageID)
	session, running := m.byLanguage[languageID]
	m.mu.RUnlock()

	if !configured {
		return StatusRecord{Status: StatusUnconfigured, LanguageID: languageID}
	}
	if !running {
		return StatusRecord{Status: StatusStopped, LanguageID: languageID}
	}

	rec := StatusRecord{
		LanguageID: languageID,
		Project:    session.Project.Name,
		PID:        session.Process.PID(),
		UptimeMs:   time.Since(session.StartedAt()).Milliseconds(),
	}
	switch {
	case session.LastErr() != nil:
		rec.Status = StatusError
		rec.Error = session.LastErr().Error()
	case session.Initialized():
		rec.Status = StatusReady
	default:
		rec.Status = StatusStarting
	}
	_ = spec
	return rec
}

// StatusAll returns Status for every configured language.
func (m *Manager) StatusAll() map[string]StatusRecord {
	m.mu.RLock()
	ids := make([]string, 0, len(m.store.Servers()))
	for id := range m.store.Servers() {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make(map[string]StatusRecord, len(ids))
	for _, id := range ids {
		out[id] = m.Status(id)
	}
	return out
}

// Start spawns and initializes a Session for languageID, optionally pinned
// to a named project (the first configured project otherwise). It refuses
// a second start while one is already live for the language.
func (m *Manager) Start(ctx context.Context, languageID, projectName string) (*Session, error) {
	m.mu.Lock()
	spec, configured := m.store.ServerConfig(languageID)
	if !configured {
		m.mu.Unlock()
		return nil, fmt.Errorf("language server %q is not configured", languageID)
	}
	if _, running := m.byLanguage[languageID]; running {
		m.mu.Unlock()
		return nil, fmt.Errorf("language server %q is already running", languageID)
	}
	project, ok := spec.Project(projectName)
	if !ok {
		m.mu.Unlock()
		if projectName == "" {
			return nil, fmt.Errorf("language server %q has no configured projects", languageID)
		}
		return nil, fmt.Errorf("language server %q has no project named %q", languageID, projectName)
	}
	settings := spec.Settings.ResolveDefaults()
	session := newSession(languageID, project, spec, settings)
	m.byLanguage[languageID] = session
	m.mu.Unlock()

	publishState(session, StatusStarting, "")

	proc, err := procsup.Spawn(ctx, spec.Command, spec.Args, project.Path)
	if err != nil {
		m.cleanup(session)
		publishState(session, StatusError, err.Error())
		return nil, fmt.Errorf("spawning %q: %w", languageID, err)
	}
	session.Process = proc
	session.setStartedAt(time.Now())

	ch := rpc.NewChannel(proc.Stdin, proc.Stdout)
	session.Channel = ch
	registerServerRequestHandlers(ch, session)
	ch.OnClose(func(transportErr error) {
		if transportErr != nil {
			session.setLastErr(transportErr)
			logging.WithLanguage(languageID).Warn().Err(transportErr).Msg("lsp transport closed unexpectedly")
		}
		m.cleanup(session)
		publishState(session, StatusError, errString(transportErr))
	})
	ch.Start()

	go func() {
		<-proc.Done()
		if proc.WaitErr() != nil {
			session.setLastErr(proc.WaitErr())
		}
		m.cleanup(session)
		publishState(session, StatusStopped, "")
	}()

	if err := m.initializeSession(ctx, session); err != nil {
		session.setLastErr(err)
		m.cleanup(session)
		publishState(session, StatusError, err.Error())
		return nil, err
	}

	publishState(session, StatusReady, "")
	return session, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m *Manager) initializeSession(ctx context.Context, s *Session) error {
	caps := defaultClientCapabilities()
	if s.Spec.Capabilities != nil {
		caps = deepMerge(caps, s.Spec.Capabilities)
	}
	initOptions := s.Spec.Configuration
	if initOptions == nil {
		initOptions = map[string]any{}
	}
	rootURI := "file://" + s.Project.Path

	params := map[string]any{
		"processId": os.Getpid(),
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
		"rootPath": s.Project.Path,
		"rootUri":  rootURI,
		"workspaceFolders": []map[string]any{
			{"name": s.Project.Name, "uri": rootURI},
		},
		"initializationOptions": initOptions,
		"capabilities":          caps,
	}

	var result struct {
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := s.Channel.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	s.setCapabilities(result.Capabilities)

	if err := s.Channel.Notify("initialized", map[string]any{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}

	files, err := discoverProjectFiles(s.Project, s.Spec.Extensions)
	if err != nil {
		logging.WithLanguage(s.LanguageID).Warn().Err(err).Msg("project file discovery failed")
		files = nil
	}
	s.setProjectFiles(files)
	m.mu.Lock()
	for _, f := range files {
		m.fileIndex[f] = s.LanguageID
	}
	m.mu.Unlock()

	if len(files) > 0 {
		if err := m.openFile(ctx, s, files[0]); err != nil {
			logging.WithLanguage(s.LanguageID).Warn().Err(err).Str("file", files[0]).Msg("warm-up didOpen failed")
		}
	}

	skipProbe := len(files) > 0 && !s.Settings.Workspace
	if !skipProbe {
		if err := s.Channel.Call(ctx, "workspace/symbol", map[string]any{"query": ""}, nil); err != nil {
			return fmt.Errorf("readiness probe: %w", err)
		}
	}
	s.setInitialized(true)
	return nil
}

// Stop runs the graceful stop sequence and removes the Session.
func (m *Manager) Stop(ctx context.Context, languageID string) error {
	m.mu.Lock()
	session, ok := m.byLanguage[languageID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("language server %q is not running", languageID)
	}
	procsup.StopSequence(ctx, session.Channel, session.Process, time.Duration(session.Settings.ShutdownGracePeriodMs)*time.Millisecond)
	m.cleanup(session)
	publishState(session, StatusStopped, "")
	return nil
}

// Restart stops then starts languageID against the same project.
func (m *Manager) Restart(ctx context.Context, languageID string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.byLanguage[languageID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("language server %q is not running", languageID)
	}
	project := session.Project.Name
	if err := m.Stop(ctx, languageID); err != nil {
		return nil, err
	}
	return m.Start(ctx, languageID, project)
}

// AllowRequest applies the per-language rate limit to an
// incoming LSP request for a running session, returning false without
// mutating state if the window's budget is already exhausted.
func (m *Manager) AllowRequest(s *Session) bool {
	return s.rate.allow(time.Now().UnixMilli())
}

// ProjectFiles returns the cached discovery result for a running session,
// discovering it on demand if Start has not populated it yet.
func (m *Manager) ProjectFiles(ctx context.Context, s *Session) ([]string, error) {
	if files, loaded := s.cachedProjectFiles(); loaded {
		return files, nil
	}
	files, err := discoverProjectFiles(s.Project, s.Spec.Extensions)
	if err != nil {
		return nil, err
	}
	s.setProjectFiles(files)
	m.mu.Lock()
	for _, f := range files {
		m.fileIndex[f] = s.LanguageID
	}
	m.mu.Unlock()
	return files, nil
}

// LoadProjectFiles opens every discovered project file on s, honoring the
// timed fallback to at most 10 files. A
// timeout of 0 or less exercises the fallback branch directly.
func (m *Manager) LoadProjectFiles(ctx context.Context, s *Session, timeout time.Duration) error {
	files, err := m.ProjectFiles(ctx, s)
	if err != nil {
		return err
	}
	return m.openFiles(ctx, s, files, timeout)
}

// cleanup idempotently removes every map entry referencing session,
// so a stopped session is never mistaken for a live one.
func (m *Manager) cleanup(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.byLanguage[session.LanguageID]; ok && current == session {
		delete(m.byLanguage, session.LanguageID)
	}
	for path, lang := range m.fileIndex {
		if lang == session.LanguageID {
			delete(m.fileIndex, path)
		}
	}
}

func publishState(s *Session, status Status, errMsg string) {
	event.Publish(event.Event{
		Type: event.SessionStateChanged,
		Data: event.SessionStateChangedData{
			LanguageID: s.LanguageID,
			Project:    s.Project.Name,
			Status:     string(status),
			PID:        s.pid(),
			Error:      errMsg,
		},
	})
}
