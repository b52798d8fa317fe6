package tools

import "sort"

// CapabilityBucket is one entry of the capability-to-tool mapping returned
// by get_server_capabilities: whether the running server
// advertised the capability, and which catalog tools exercise it.
type CapabilityBucket struct {
	Supported bool     `json:"supported"`
	Tools     []string `json:"tools"`
}

// capabilityTruthy reports whether caps advertises key as supported. LSP
// server capabilities are either a bare bool or a descriptor object; both
// a non-false bool and a present non-bool value count as supported.
func capabilityTruthy(caps map[string]any, key string) bool {
	v, ok := caps[key]
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return true
}

// capabilityTools groups the catalog by declaring LSP capability, computed
// once at package init as a static table rather than a string-keyed
// handler map.
var capabilityTools = func() map[string][]string {
	out := map[string][]string{}
	var serverOps []string
	for name, def := range catalog {
		if def.admin {
			serverOps = append(serverOps, name)
			continue
		}
		if def.capability == "" {
			continue
		}
		out[def.capability] = append(out[def.capability], name)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	sort.Strings(serverOps)
	out[serverOperations] = serverOps
	return out
}()

// BuildCapabilityToolMap reports, for every capability any catalog tool
// declares, whether the running server (described by caps) advertises it
// and which tools exercise it. serverOperations is always reported
// supported, regardless of what the server advertises.
func BuildCapabilityToolMap(caps map[string]any) map[string]CapabilityBucket {
	out := make(map[string]CapabilityBucket, len(capabilityTools))
	for capability, tools := range capabilityTools {
		if capability == serverOperations {
			out[capability] = CapabilityBucket{Supported: true, Tools: tools}
			continue
		}
		out[capability] = CapabilityBucket{Supported: capabilityTruthy(caps, capability), Tools: tools}
	}
	return out
}
