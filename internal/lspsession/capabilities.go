package lspsession

// defaultClientCapabilities builds the client capability set advertised on
// every initialize request.
func defaultClientCapabilities() map[string]any {
	symbolKinds := make([]int, 26)
	for i := range symbolKinds {
		symbolKinds[i] = i + 1
	}

	return map[string]any{
		"general": map[string]any{
			"positionEncodings": []string{"utf-8", "utf-16"},
		},
		"textDocument": map[string]any{
			"hover": map[string]any{
				"dynamicRegistration": false,
				"contentFormat":       []string{"markdown", "plaintext"},
			},
			"completion": map[string]any{
				"dynamicRegistration": false,
				"completionItem": map[string]any{
					"snippetSupport":        true,
					"insertReplaceSupport":  true,
					"deprecatedSupport":     true,
					"tagSupport":            map[string]any{"valueSet": []int{1}},
					"resolveSupport":        map[string]any{"properties": []string{"additionalTextEdits", "detail", "documentation"}},
				},
			},
			"codeAction": map[string]any{
				"dynamicRegistration": false,
				"codeActionLiteralSupport": map[string]any{
					"codeActionKind": map[string]any{"valueSet": []string{}},
				},
				"dataSupport":        true,
				"disabledSupport":    true,
				"isPreferredSupport": true,
				"resolveSupport":     map[string]any{"properties": []string{"edit"}},
			},
			"signatureHelp": map[string]any{
				"dynamicRegistration": false,
				"contextSupport":      true,
				"signatureInformation": map[string]any{
					"activeParameterSupport":  true,
					"parameterInformation":    map[string]any{"labelOffsetSupport": true},
					"documentationFormat":     []string{"markdown", "plaintext"},
				},
			},
			"synchronization": map[string]any{
				"dynamicRegistration": false,
				"didSave":             true,
				"willSave":            true,
				"willSaveWaitUntil":   true,
			},
			"callHierarchy":        map[string]any{"dynamicRegistration": false},
			"typeHierarchy":        map[string]any{"dynamicRegistration": false},
			"inlayHint":            map[string]any{"dynamicRegistration": false},
			"foldingRange":         map[string]any{"dynamicRegistration": false},
			"documentSymbol":       map[string]any{"dynamicRegistration": false},
			"definition":           map[string]any{"dynamicRegistration": false},
			"typeDefinition":       map[string]any{"dynamicRegistration": false},
			"implementation":       map[string]any{"dynamicRegistration": false},
			"references":           map[string]any{"dynamicRegistration": false},
			"rename":               map[string]any{"dynamicRegistration": false},
			"selectionRange":       map[string]any{"dynamicRegistration": false},
			"documentLink":         map[string]any{"dynamicRegistration": false},
			"linkedEditingRange":   map[string]any{"dynamicRegistration": false},
			"formatting":           map[string]any{"dynamicRegistration": false},
			"rangeFormatting":      map[string]any{"dynamicRegistration": false},
			"colorProvider":        map[string]any{"dynamicRegistration": false},
		},
		"workspace": map[string]any{
			"applyEdit":             true,
			"configuration":         true,
			"workspaceFolders":      true,
			"executeCommand":        map[string]any{"dynamicRegistration": false},
			"didChangeConfiguration": map[string]any{"dynamicRegistration": false},
			"didChangeWatchedFiles": map[string]any{"dynamicRegistration": false},
			"symbol": map[string]any{
				"dynamicRegistration": false,
				"symbolKind":          map[string]any{"valueSet": symbolKinds},
			},
			"workspaceEdit": map[string]any{
				"documentChanges":  true,
				"failureHandling":  "textOnlyTransactional",
				"resourceOperations": []string{"create", "delete", "rename"},
			},
		},
	}
}

// deepMerge recursively merges override into base: leaf
// values in override replace the default, object (map) values merge
// key-wise, and array values are replaced wholesale. base is mutated and
// returned.
func deepMerge(base, override map[string]any) map[string]any {
	for k, ov := range override {
		bv, exists := base[k]
		if !exists {
			base[k] = ov
			continue
		}
		bm, bIsMap := bv.(map[string]any)
		om, oIsMap := ov.(map[string]any)
		if bIsMap && oIsMap {
			base[k] = deepMerge(bm, om)
			continue
		}
		base[k] = ov
	}
	return base
}
