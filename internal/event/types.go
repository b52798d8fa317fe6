package event

// SessionStateChangedData is published whenever a Session's lifecycle state
// transitions (stopped/starting/ready/error).
type SessionStateChangedData struct {
	LanguageID string `json:"languageId"`
	Project    string `json:"project,omitempty"`
	Status     string `json:"status"`
	PID        int    `json:"pid,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConfigReloadedData is published after the config file is re-read and
// successfully parsed.
type ConfigReloadedData struct {
	Path string `json:"path"`
}

// ConfigReloadFailedData is published when a watched config file changed
// but failed to parse; the previous Store remains in effect.
type ConfigReloadFailedData struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
