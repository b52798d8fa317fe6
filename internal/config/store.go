// Package config loads and validates the bridge's server catalog: which
// language servers exist, how to spawn them, and which projects they serve.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/axivo/mcp-lsp/internal/logging"
)

// document is the top-level shape of the configuration file.
type document struct {
	Servers map[string]ServerSpec `json:"servers"`
}

// Store is the validated, in-memory configuration catalog. A Store is
// immutable once returned by Load; reloads produce a new Store.
type Store struct {
	servers map[string]ServerSpec
	raw     []byte
}

// Load reads and validates the configuration file at path. Any I/O error,
// parse error, or schema violation yields an empty Store rather than a
// propagated error: callers treat "no server configured" identically to
// "server not in config". The returned error is non-nil only to let callers
// log the reason; it is never fatal on its own.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("config read failed, treating as empty catalog")
		return &Store{servers: map[string]ServerSpec{}}, err
	}
	store, err := parse(data)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("config validation failed, treating as empty catalog")
		return &Store{servers: map[string]ServerSpec{}}, err
	}
	return store, nil
}

// parse validates raw bytes into a Store, rejecting the whole document on
// any schema violation.
func parse(data []byte) (*Store, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: invalid JSON: %w", err)
	}
	if len(doc.Servers) == 0 {
		return nil, fmt.Errorf("config: %q must be a non-empty object", "servers")
	}
	for id, spec := range doc.Servers {
		if err := validateServer(id, spec); err != nil {
			return nil, err
		}
		spec.LanguageID = id
		doc.Servers[id] = spec
	}
	return &Store{servers: doc.Servers, raw: data}, nil
}

func validateServer(id string, spec ServerSpec) error {
	if spec.Command == "" {
		return fmt.Errorf("config: server %q: command must be a non-empty string", id)
	}
	if spec.Args == nil {
		return fmt.Errorf("config: server %q: args must be an array", id)
	}
	if len(spec.Extensions) == 0 {
		return fmt.Errorf("config: server %q: extensions must be a non-empty array", id)
	}
	for _, ext := range spec.Extensions {
		if ext == "" {
			return fmt.Errorf("config: server %q: extensions must not contain empty strings", id)
		}
	}
	if len(spec.Projects) == 0 {
		return fmt.Errorf("config: server %q: projects must be a non-empty array", id)
	}
	seen := make(map[string]bool, len(spec.Projects))
	for _, p := range spec.Projects {
		if p.Name == "" {
			return fmt.Errorf("config: server %q: each project requires a non-empty name", id)
		}
		if p.Path == "" {
			return fmt.Errorf("config: server %q: project %q requires a non-empty path", id, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: server %q: duplicate project name %q", id, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// HasServerConfig reports whether languageID has a configured server.
func (s *Store) HasServerConfig(languageID string) bool {
	_, ok := s.servers[languageID]
	return ok
}

// ServerConfig returns the spec for languageID.
func (s *Store) ServerConfig(languageID string) (ServerSpec, bool) {
	spec, ok := s.servers[languageID]
	return spec, ok
}

// Servers enumerates all configured language IDs.
func (s *Store) Servers() map[string]ServerSpec {
	out := make(map[string]ServerSpec, len(s.servers))
	for k, v := range s.servers {
		out[k] = v
	}
	return out
}

// Project returns the named project for a server, or the first configured
// project when name is empty.
func (spec ServerSpec) Project(name string) (ProjectSpec, bool) {
	if name == "" {
		if len(spec.Projects) == 0 {
			return ProjectSpec{}, false
		}
		return spec.Projects[0], true
	}
	for _, p := range spec.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return ProjectSpec{}, false
}

// Equal reports whether two Stores were loaded from byte-identical source
// documents, used to detect no-op reloads.
func (s *Store) Equal(other *Store) bool {
	if s == nil || other == nil {
		return s == other
	}
	return string(s.raw) == string(other.raw)
}
