// Package tools implements the tool dispatcher: the fixed,
// enumerable tool catalog, argument validation, LSP argument mapping,
// pagination, and the capability-to-tool mapping. It has no outer-protocol
// transport dependency; pkg/mcpbridge is the one concrete binding.
package tools

import "encoding/json"

// ContentItem is one entry of a Result's content array, matching the
// outer-protocol envelope.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the response envelope every tool call produces:
// {content:[{type:"text", text}], data?}.
type Result struct {
	Content []ContentItem `json:"content"`
	Data    any           `json:"data,omitempty"`
}

// Pagination is the metadata attached to paginated results.
type Pagination struct {
	More   bool `json:"more"`
	Offset int  `json:"offset"`
	Total  int  `json:"total"`
}

// textResult builds a short diagnostic-sentence response with no
// structured data: validation errors, lifecycle messages, status text.
func textResult(text string) Result {
	return Result{Content: []ContentItem{{Type: "text", Text: text}}}
}

// jsonResult builds a response whose text is the JSON-stringified payload
// and whose data carries the same payload structured.
func jsonResult(data any) Result {
	body, err := json.Marshal(data)
	if err != nil {
		return textResult("internal error: " + err.Error())
	}
	return Result{Content: []ContentItem{{Type: "text", Text: string(body)}}, Data: data}
}
