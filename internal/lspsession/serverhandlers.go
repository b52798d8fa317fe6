package lspsession

import (
	"encoding/json"

	"github.com/axivo/mcp-lsp/internal/rpc"
)

// registerServerRequestHandlers wires the server-initiated requests a
// Session answers. Which methods get a handler at all is
// decided once, from the Session's resolved Settings, rather than by
// installing/uninstalling handlers per connection; a method
// left without a registered handler falls through to the Channel's "no
// reply" default, which is the documented LSP-default behavior for these
// settings.
func registerServerRequestHandlers(ch *rpc.Channel, s *Session) {
	if s.Settings.ConfigurationRequest {
		ch.OnRequest("workspace/configuration", func(json.RawMessage) (any, error) {
			cfg := s.Spec.Configuration
			if cfg == nil {
				cfg = map[string]any{}
			}
			return []any{cfg}, nil
		})
	}

	if !s.Settings.MessageRequest {
		ch.OnRequest("window/showMessageRequest", func(json.RawMessage) (any, error) {
			return nil, nil
		})
	}

	if !s.Settings.RegistrationRequest {
		accept := func(json.RawMessage) (any, error) { return map[string]any{}, nil }
		ch.OnRequest("client/registerCapability", accept)
		ch.OnRequest("client/unregisterCapability", accept)
	}
}
