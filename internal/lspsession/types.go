// Package lspsession runs the LSP initialization handshake, tracks one live
// session per language, and owns the project file-discovery cache and
// per-language rate limiting. The Session is the owning record; the Manager
// indexes it by language id only (there is no separate project index), and
// the Manager's FileIndex maps each discovered file path to the language id
// of the Session that discovered it.
package lspsession

import (
	"sync"
	"time"

	"github.com/axivo/mcp-lsp/internal/config"
	"github.com/axivo/mcp-lsp/internal/procsup"
	"github.com/axivo/mcp-lsp/internal/rpc"
)

// Status is the observable lifecycle state of a Session, driving the state
// machine get_server_status reports.
type Status string

const (
	StatusUnconfigured Status = "unconfigured"
	StatusStopped      Status = "stopped"
	StatusStarting     Status = "starting"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

// Session is one live (language_id, project) pair: a child process, its
// JSON-RPC channel, and the bookkeeping the router and tool dispatcher need.
type Session struct {
	LanguageID string
	Project    config.ProjectSpec
	Spec       config.ServerSpec
	Settings   config.Resolved

	Process *procsup.Process
	Channel *rpc.Channel

	mu                        sync.Mutex
	capabilities              map[string]any
	initialized               bool
	startedAt                 time.Time
	openFiles                 map[string]int // uri -> didOpen notifications sent (0 while claimed)
	projectFiles              []string       // cached discovery result
	projectFilesLoaded        bool
	workspaceFoldersAnnounced bool
	lastErr                   error

	rate *rateLimiter
}

// newSession builds an empty Session for the given language/project/spec.
func newSession(languageID string, project config.ProjectSpec, spec config.ServerSpec, settings config.Resolved) *Session {
	return &Session{
		LanguageID: languageID,
		Project:    project,
		Spec:       spec,
		Settings:   settings,
		openFiles:  make(map[string]int),
		rate:       newRateLimiter(settings.RateLimitMaxRequests, settings.RateLimitWindowMs),
	}
}

// Capabilities returns the negotiated server capabilities from initialize.
func (s *Session) Capabilities() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities
}

func (s *Session) setCapabilities(caps map[string]any) {
	s.mu.Lock()
	s.capabilities = caps
	s.mu.Unlock()
}

// Initialized reports whether the handshake and readiness probe succeeded.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Session) setInitialized(v bool) {
	s.mu.Lock()
	s.initialized = v
	s.mu.Unlock()
}

// StartedAt returns the time the Session's process was spawned.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) setStartedAt(t time.Time) {
	s.mu.Lock()
	s.startedAt = t
	s.mu.Unlock()
}

// LastErr returns the most recent terminal error observed by the Session,
// if any (populated on unexpected process exit or transport failure).
func (s *Session) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// tryClaimOpen atomically tests-and-sets uri into the didOpen set,
// returning true only for the caller that wins the race to open it. A
// losing caller must not send didOpen for uri. This is check-then-act as
// a single locked operation, not two, so two concurrent openers (e.g. a
// fallback racing an abandoned background open) can never both claim the
// same file.
func (s *Session) tryClaimOpen(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.openFiles[uri]; ok {
		return false
	}
	s.openFiles[uri] = 0
	return true
}

// releaseClaim undoes tryClaimOpen after a claimed open failed before
// didOpen was actually sent, letting a later attempt retry uri.
func (s *Session) releaseClaim(uri string) {
	s.mu.Lock()
	delete(s.openFiles, uri)
	s.mu.Unlock()
}

func (s *Session) markOpened(uri string) {
	s.mu.Lock()
	s.openFiles[uri]++
	s.mu.Unlock()
}

// OpenFileCount returns how many distinct URIs have been didOpen-ed.
func (s *Session) OpenFileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.openFiles)
}

func (s *Session) cachedProjectFiles() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectFiles, s.projectFilesLoaded
}

func (s *Session) setProjectFiles(files []string) {
	s.mu.Lock()
	s.projectFiles = files
	s.projectFilesLoaded = true
	s.mu.Unlock()
}

// needsWorkspaceFoldersAnnouncement reports and flips the one-shot flag
// atomically: the first caller gets true, every later caller gets false.
func (s *Session) needsWorkspaceFoldersAnnouncement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspaceFoldersAnnounced {
		return false
	}
	s.workspaceFoldersAnnounced = true
	return true
}

// pid returns 0 instead of panicking when the process hasn't been assigned
// yet (e.g. the "starting" event published before Spawn returns).
func (s *Session) pid() int {
	if s.Process == nil {
		return 0
	}
	return s.Process.PID()
}

// StatusRecord is the shape get_server_status reports for one language.
type StatusRecord struct {
	Status     Status `json:"status"`
	UptimeMs   int64  `json:"uptime_ms"`
	LanguageID string `json:"language_id"`
	Project    string `json:"project,omitempty"`
	PID        int    `json:"pid,omitempty"`
	Error      string `json:"error,omitempty"`
}
