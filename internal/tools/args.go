package tools

import (
	"sort"
	"strings"
)

// validate checks args against def's field schema, applying defaults for
// absent optional fields in place. It returns the sorted names of any
// required fields that are missing or fail their type check (numbers
// must be numeric, strings non-empty, objects non-empty; query is
// special-cased to accept any string including empty).
func validate(def ToolDef, args map[string]any) []string {
	var missing []string
	for _, f := range def.Fields {
		v, present := args[f.Name]
		if !present {
			if f.Required {
				missing = append(missing, f.Name)
			} else if f.Default != nil {
				args[f.Name] = f.Default
			}
			continue
		}
		if !validField(f, v) {
			if f.Required {
				missing = append(missing, f.Name)
			} else if f.Default != nil {
				args[f.Name] = f.Default
			}
		}
	}
	sort.Strings(missing)
	return missing
}

func validField(f Field, v any) bool {
	switch f.Kind {
	case FieldQuery:
		_, ok := v.(string)
		return ok
	case FieldString:
		s, ok := v.(string)
		return ok && s != ""
	case FieldNumber:
		_, ok := asNumber(v)
		return ok
	case FieldBool:
		_, ok := v.(bool)
		return ok
	case FieldObject:
		m, ok := v.(map[string]any)
		return ok && len(m) > 0
	default:
		return true
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func missingArgsError(missing []string) string {
	return "Missing required arguments: " + strings.Join(missing, ", ")
}

// buildParams translates validated args into the LSP request params shape,
// following the argument→LSP mapping rules.
func buildParams(def ToolDef, args map[string]any) any {
	if def.forward == forwardItem {
		return args["item"]
	}

	params := map[string]any{}

	if fp, ok := args["file_path"].(string); ok && fp != "" {
		params["textDocument"] = map[string]any{"uri": fileURI(fp)}
	}

	if def.selectionRangePositions {
		if line, lok := asNumber(args["line"]); lok {
			if ch, cok := asNumber(args["character"]); cok {
				params["positions"] = []map[string]any{{"line": line, "character": ch}}
			}
		}
	} else if line, lok := asNumber(args["line"]); lok {
		if ch, cok := asNumber(args["character"]); cok {
			params["position"] = map[string]any{"line": line, "character": ch}
		}
	}

	if sl, slok := asNumber(args["start_line"]); slok {
		if sc, scok := asNumber(args["start_character"]); scok {
			if el, elok := asNumber(args["end_line"]); elok {
				if ec, ecok := asNumber(args["end_character"]); ecok {
					params["range"] = map[string]any{
						"start": map[string]any{"line": sl, "character": sc},
						"end":   map[string]any{"line": el, "character": ec},
					}
				}
			}
		}
	}

	if def.needsFormattingOptions {
		params["options"] = map[string]any{"tabSize": 2, "insertSpaces": true}
	}

	if def.referencesDefaultTrue {
		include := true
		if b, ok := args["include_declaration"].(bool); ok {
			include = b
		}
		params["context"] = map[string]any{"includeDeclaration": include}
	}

	if nn, ok := args["new_name"].(string); ok {
		params["newName"] = nn
	}

	if def.isQueryTool {
		if q, ok := args["query"].(string); ok {
			params["query"] = q
		}
	}

	return params
}

// fileURI builds the file:// URI required for file_path.
func fileURI(absPath string) string {
	return "file://" + absPath
}

// fileFromURI strips the file:// prefix from a URI recovered from an
// opaque item. Non-file URIs are rejected rather than guessed at.
func fileFromURI(uri string) (string, bool) {
	const prefix = "file://"
	if !strings.HasPrefix(uri, prefix) {
		return "", false
	}
	return strings.TrimPrefix(uri, prefix), true
}

// itemURI extracts the "uri" field from an opaque item object.
func itemURI(item any) (string, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return "", false
	}
	uri, ok := m["uri"].(string)
	return uri, ok
}
