package config

// ServerSpec describes one configured language server: how to spawn it,
// which file extensions it owns, and the projects it may run against.
type ServerSpec struct {
	LanguageID    string         `json:"-"`
	Command       string         `json:"command"`
	Args          []string       `json:"args"`
	Extensions    []string       `json:"extensions"`
	Projects      []ProjectSpec  `json:"projects"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Capabilities  map[string]any `json:"capabilities,omitempty"`
	Settings      Settings       `json:"settings,omitempty"`
}

// ProjectSpec names one root a server can run against.
type ProjectSpec struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Patterns    *Patterns `json:"patterns,omitempty"`
}

// Patterns narrows file discovery beyond the server's extension list.
type Patterns struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Settings holds per-server behavior knobs. All fields are optional in the
// source document; ResolveDefaults fills in the documented defaults.
type Settings struct {
	ConfigurationRequest *bool `json:"configurationRequest,omitempty"`
	MessageRequest       *bool `json:"messageRequest,omitempty"`
	RegistrationRequest  *bool `json:"registrationRequest,omitempty"`
	Workspace            *bool `json:"workspace,omitempty"`

	MaxConcurrentFileReads *int `json:"maxConcurrentFileReads,omitempty"`
	RateLimitMaxRequests   *int `json:"rateLimitMaxRequests,omitempty"`
	RateLimitWindowMs      *int `json:"rateLimitWindowMs,omitempty"`
	ShutdownGracePeriodMs  *int `json:"shutdownGracePeriodMs,omitempty"`
}

// Resolved is a Settings view with every field defaulted, handed to callers
// that need concrete values rather than optional pointers.
type Resolved struct {
	ConfigurationRequest bool
	MessageRequest       bool
	RegistrationRequest  bool
	Workspace            bool

	MaxConcurrentFileReads int
	RateLimitMaxRequests   int
	RateLimitWindowMs      int
	ShutdownGracePeriodMs  int
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// ResolveDefaults applies the documented defaults to an optional Settings.
func (s Settings) ResolveDefaults() Resolved {
	return Resolved{
		ConfigurationRequest:   boolOr(s.ConfigurationRequest, false),
		MessageRequest:         boolOr(s.MessageRequest, true),
		RegistrationRequest:    boolOr(s.RegistrationRequest, true),
		Workspace:              boolOr(s.Workspace, true),
		MaxConcurrentFileReads: intOr(s.MaxConcurrentFileReads, 10),
		RateLimitMaxRequests:   intOr(s.RateLimitMaxRequests, 100),
		RateLimitWindowMs:      intOr(s.RateLimitWindowMs, 60000),
		ShutdownGracePeriodMs:  intOr(s.ShutdownGracePeriodMs, 100),
	}
}
