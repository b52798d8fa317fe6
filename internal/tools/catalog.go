package tools

// FieldKind is the validation shape of one tool argument.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldNumber
	FieldBool
	FieldObject
	// FieldQuery is special-cased to accept any string, including empty.
	FieldQuery
)

// Field describes one named tool argument.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  any
}

// forwardKind selects how a tool's validated arguments become LSP params.
type forwardKind int

const (
	// forwardGeneric builds params from the argument→LSP mapping rules
	// (file_path, line/character, range, options, ...).
	forwardGeneric forwardKind = iota
	// forwardItem sends args["item"] unchanged as the LSP params.
	forwardItem
)

// serverOperations is the synthetic capability bucket for lifecycle/admin
// tools that have no corresponding LSP server capability.
const serverOperations = "serverOperations"

// ToolDef is one catalog entry: its schema, how it maps to an LSP request
// (or to an admin operation), and the capability it is bucketed under for
// get_server_capabilities.
type ToolDef struct {
	Name        string
	Description string
	Fields      []Field

	// Method is the LSP method this tool invokes. Empty for admin tools
	// and for get_project_files, which never reaches an LSP server.
	Method string

	forward forwardKind

	// recoverFileFromItem is set for the call-hierarchy/type-hierarchy
	// traversal tools, whose item.uri (not file_path) names the owning
	// file.
	recoverFileFromItem bool

	// byLanguage routes by language_id/project rather than by file_path
	// (get_project_symbols, get_project_files).
	byLanguage bool

	// admin tools are handled by dedicated dispatcher methods rather than
	// the generic LSP-proxy path.
	admin bool

	needsFormattingOptions bool
	selectionRangePositions bool
	isQueryTool              bool
	referencesDefaultTrue    bool

	paginated  bool
	capability string // "" => serverOperations
}

func strField(name string, required bool) Field { return Field{Name: name, Kind: FieldString, Required: required} }
func numField(name string, required bool) Field { return Field{Name: name, Kind: FieldNumber, Required: required} }
func objField(name string, required bool) Field { return Field{Name: name, Kind: FieldObject, Required: required} }

var positionFields = []Field{strField("file_path", true), numField("line", true), numField("character", true)}

var rangeFields = []Field{
	strField("file_path", true),
	numField("start_line", true), numField("start_character", true),
	numField("end_line", true), numField("end_character", true),
}

var paginationFields = []Field{
	{Name: "limit", Kind: FieldNumber, Required: false, Default: float64(250)},
	{Name: "offset", Kind: FieldNumber, Required: false, Default: float64(0)},
}

// catalog is the fixed, enumerable tool registry; the names
// here are part of the external contract and must not change.
var catalog = buildCatalog()

func buildCatalog() map[string]ToolDef {
	defs := []ToolDef{
		{
			Name: "get_call_hierarchy", Description: "Prepare a call hierarchy item at a position",
			Fields: positionFields, Method: "textDocument/prepareCallHierarchy", capability: "callHierarchyProvider",
		},
		{
			Name: "get_code_actions", Description: "List available code actions over a range",
			Fields: rangeFields, Method: "textDocument/codeAction", capability: "codeActionProvider",
		},
		{
			Name: "get_code_resolves", Description: "Resolve a code action item's edit",
			Fields: append(append([]Field{}, strField("file_path", true)), objField("item", true)),
			Method: "codeAction/resolve", forward: forwardItem, capability: "codeActionProvider",
		},
		{
			Name: "get_colors", Description: "List document colors",
			Fields: []Field{strField("file_path", true)}, Method: "textDocument/documentColor", capability: "colorProvider",
		},
		{
			Name: "get_completions", Description: "Get completion items at a position",
			Fields: positionFields, Method: "textDocument/completion", capability: "completionProvider",
		},
		{
			Name: "get_folding_ranges", Description: "List folding ranges in a document",
			Fields: []Field{strField("file_path", true)}, Method: "textDocument/foldingRange", capability: "foldingRangeProvider",
		},
		{
			Name: "get_format", Description: "Format an entire document",
			Fields: []Field{strField("file_path", true)}, Method: "textDocument/formatting",
			needsFormattingOptions: true, capability: "documentFormattingProvider",
		},
		{
			Name: "get_highlights", Description: "List document highlights at a position",
			Fields: positionFields, Method: "textDocument/documentHighlight", capability: "documentHighlightProvider",
		},
		{
			Name: "get_hover", Description: "Get hover information at a position",
			Fields: positionFields, Method: "textDocument/hover", capability: "hoverProvider",
		},
		{
			Name: "get_implementations", Description: "Find implementations of a symbol",
			Fields: positionFields, Method: "textDocument/implementation", capability: "implementationProvider",
		},
		{
			Name: "get_incoming_calls", Description: "List incoming calls for a call hierarchy item",
			Fields: []Field{objField("item", true)}, Method: "callHierarchy/incomingCalls",
			forward: forwardItem, recoverFileFromItem: true, capability: "callHierarchyProvider",
		},
		{
			Name: "get_inlay_hint", Description: "Resolve an inlay hint",
			Fields: append(append([]Field{}, strField("file_path", true)), objField("item", true)),
			Method: "inlayHint/resolve", forward: forwardItem, capability: "inlayHintProvider",
		},
		{
			Name: "get_inlay_hints", Description: "List inlay hints over a range",
			Fields: rangeFields, Method: "textDocument/inlayHint", capability: "inlayHintProvider",
		},
		{
			Name: "get_linked_editing_range", Description: "Get the linked editing range at a position",
			Fields: positionFields, Method: "textDocument/linkedEditingRange", capability: "linkedEditingRangeProvider",
		},
		{
			Name: "get_link_resolves", Description: "Resolve a document link's target",
			Fields: append(append([]Field{}, strField("file_path", true)), objField("item", true)),
			Method: "documentLink/resolve", forward: forwardItem, capability: "documentLinkProvider",
		},
		{
			Name: "get_links", Description: "List document links",
			Fields: []Field{strField("file_path", true)}, Method: "textDocument/documentLink", capability: "documentLinkProvider",
		},
		{
			Name: "get_outgoing_calls", Description: "List outgoing calls for a call hierarchy item",
			Fields: []Field{objField("item", true)}, Method: "callHierarchy/outgoingCalls",
			forward: forwardItem, recoverFileFromItem: true, capability: "callHierarchyProvider",
		},
		{
			Name: "get_project_files", Description: "List files discovered for a language server's active project",
			Fields: append(append([]Field{strField("language_id", true), strField("project", false)}, paginationFields...)),
			byLanguage: true, admin: true, paginated: true,
		},
		{
			Name: "get_project_symbols", Description: "Search workspace symbols by query",
			Fields: append(append([]Field{strField("language_id", true), strField("project", false), {Name: "query", Kind: FieldQuery, Required: true}}, paginationFields...)),
			Method: "workspace/symbol", byLanguage: true, isQueryTool: true, paginated: true, capability: "workspaceSymbolProvider",
		},
		{
			Name: "get_range_format", Description: "Format a range of a document",
			Fields: rangeFields, Method: "textDocument/rangeFormatting",
			needsFormattingOptions: true, capability: "documentRangeFormattingProvider",
		},
		{
			Name: "get_resolves", Description: "Resolve a completion item's additional detail",
			Fields: append(append([]Field{}, strField("file_path", true)), objField("item", true)),
			Method: "completionItem/resolve", forward: forwardItem, capability: "completionProvider",
		},
		{
			Name: "get_selection_range", Description: "Get the selection range at a position",
			Fields: positionFields, Method: "textDocument/selectionRange",
			selectionRangePositions: true, capability: "selectionRangeProvider",
		},
		{
			Name: "get_semantic_tokens", Description: "Get full-document semantic tokens",
			Fields: []Field{strField("file_path", true)}, Method: "textDocument/semanticTokens/full", capability: "semanticTokensProvider",
		},
		{
			Name: "get_server_capabilities", Description: "Get a running server's negotiated capabilities and supported tools",
			Fields: []Field{strField("language_id", true)}, admin: true,
		},
		{
			Name: "get_server_projects", Description: "List a configured server's projects",
			Fields: []Field{strField("language_id", true)}, admin: true,
		},
		{
			Name: "get_server_status", Description: "Get the lifecycle status of one or every configured language server",
			Fields: []Field{strField("language_id", false)}, admin: true,
		},
		{
			Name: "get_signature", Description: "Get signature help at a position",
			Fields: positionFields, Method: "textDocument/signatureHelp", capability: "signatureHelpProvider",
		},
		{
			Name: "get_subtypes", Description: "List subtypes of a type hierarchy item",
			Fields: []Field{objField("item", true)}, Method: "typeHierarchy/subtypes",
			forward: forwardItem, recoverFileFromItem: true, capability: "typeHierarchyProvider",
		},
		{
			Name: "get_supertypes", Description: "List supertypes of a type hierarchy item",
			Fields: []Field{objField("item", true)}, Method: "typeHierarchy/supertypes",
			forward: forwardItem, recoverFileFromItem: true, capability: "typeHierarchyProvider",
		},
		{
			Name: "get_symbol_definitions", Description: "Find the definition of the symbol at a position",
			Fields: positionFields, Method: "textDocument/definition", capability: "definitionProvider",
		},
		{
			Name: "get_symbol_references", Description: "Find references to the symbol at a position",
			Fields: append(append([]Field{}, positionFields...), Field{Name: "include_declaration", Kind: FieldBool, Required: false, Default: true}),
			Method: "textDocument/references", referencesDefaultTrue: true, capability: "referencesProvider",
		},
		{
			Name: "get_symbol_renames", Description: "Compute a workspace edit renaming the symbol at a position",
			Fields: append(append([]Field{}, positionFields...), strField("new_name", true)),
			Method: "textDocument/rename", capability: "renameProvider",
		},
		{
			Name: "get_symbols", Description: "List document symbols",
			Fields: append(append([]Field{strField("file_path", true)}, paginationFields...)),
			Method: "textDocument/documentSymbol", paginated: true, capability: "documentSymbolProvider",
		},
		{
			Name: "get_type_definitions", Description: "Find the type definition of the symbol at a position",
			Fields: positionFields, Method: "textDocument/typeDefinition", capability: "typeDefinitionProvider",
		},
		{
			Name: "get_type_hierarchy", Description: "Prepare a type hierarchy item at a position",
			Fields: positionFields, Method: "textDocument/prepareTypeHierarchy", capability: "typeHierarchyProvider",
		},
		{
			Name: "load_project_files", Description: "Open every discovered project file on a running server",
			Fields: []Field{strField("language_id", true), strField("project", false), {Name: "timeout_ms", Kind: FieldNumber, Required: false, Default: float64(30000)}},
			admin: true,
		},
		{
			Name: "restart_server", Description: "Stop and restart a running language server",
			Fields: []Field{strField("language_id", true)}, admin: true,
		},
		{
			Name: "start_server", Description: "Start a configured language server",
			Fields: []Field{strField("language_id", true), strField("project", false)}, admin: true,
		},
		{
			Name: "stop_server", Description: "Stop a running language server",
			Fields: []Field{strField("language_id", true)}, admin: true,
		},
	}

	out := make(map[string]ToolDef, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}

// Names returns every tool name in the catalog, for enumeration by the
// outer-protocol binding.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	return out
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (ToolDef, bool) {
	d, ok := catalog[name]
	return d, ok
}
