// Package router resolves a tool call's target Session — by explicit
// language/project or by file path — applies the rate limit, performs the
// lazy document warm-ups, and forwards the LSP request.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/axivo/mcp-lsp/internal/lspsession"
)

// documentCentricMethods triggers the project warm-up guard: before the
// first such request on a session's lifetime, every discovered project
// file must have been didOpen-ed.
var documentCentricMethods = map[string]bool{
	"textDocument/prepareCallHierarchy": true,
	"callHierarchy/incomingCalls":       true,
	"callHierarchy/outgoingCalls":       true,
	"textDocument/codeAction":           true,
	"textDocument/completion":           true,
	"textDocument/definition":           true,
	"textDocument/documentColor":        true,
	"textDocument/formatting":           true,
	"textDocument/documentLink":         true,
	"textDocument/rangeFormatting":      true,
	"textDocument/documentSymbol":       true,
	"textDocument/foldingRange":         true,
	"textDocument/hover":                true,
	"textDocument/implementation":       true,
	"textDocument/inlayHint":            true,
	"textDocument/linkedEditingRange":   true,
	"textDocument/references":           true,
	"textDocument/rename":               true,
	"textDocument/selectionRange":       true,
	"textDocument/signatureHelp":        true,
	"textDocument/typeDefinition":       true,
	"textDocument/prepareTypeHierarchy": true,
	"typeHierarchy/subtypes":            true,
	"typeHierarchy/supertypes":          true,
	"workspace/symbol":                  true,
}

// Router is the request router component.
type Router struct {
	manager *lspsession.Manager
}

// New builds a Router over manager.
func New(manager *lspsession.Manager) *Router {
	return &Router{manager: manager}
}

// ErrRateLimited is returned when a language's request budget for the
// current window is exhausted.
type ErrRateLimited struct{ LanguageID string }

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("Rate limit exceeded for '%s' language server.", e.LanguageID)
}

// ErrNotRunning is returned when a requested language has no live session.
type ErrNotRunning struct{ LanguageID string }

func (e ErrNotRunning) Error() string {
	return fmt.Sprintf("Language server '%s' is not running.", e.LanguageID)
}

// ErrWrongProject is returned when a caller names a project that does not
// match the language's currently running session.
type ErrWrongProject struct {
	LanguageID, Requested, Running string
}

func (e ErrWrongProject) Error() string {
	return fmt.Sprintf("Language server '%s' is running project '%s', not '%s'.", e.LanguageID, e.Running, e.Requested)
}

// ErrFileNotOwned is returned by SendFileRequest when no running session
// owns file.
type ErrFileNotOwned struct{ File string }

func (e ErrFileNotOwned) Error() string {
	return fmt.Sprintf("File '%s' does not belong to running language server.", e.File)
}

// SendRequest routes a call by explicit language (and optional project).
func (r *Router) SendRequest(ctx context.Context, languageID, project, method string, params any) (json.RawMessage, error) {
	session, ok := r.manager.Session(languageID)
	if !ok {
		return nil, ErrNotRunning{LanguageID: languageID}
	}
	if project != "" && session.Project.Name != project {
		return nil, ErrWrongProject{LanguageID: languageID, Requested: project, Running: session.Project.Name}
	}
	return r.send(ctx, session, method, params)
}

// SendFileRequest routes a call by file path, resolving the owning session
// via the Manager's FileIndex or a path-prefix/extension scan.
func (r *Router) SendFileRequest(ctx context.Context, file, method string, params any) (json.RawMessage, error) {
	session, ok := r.manager.SessionForFile(file)
	if !ok {
		if len(r.manager.Sessions()) == 0 {
			return nil, fmt.Errorf("no language servers are running")
		}
		return nil, ErrFileNotOwned{File: file}
	}
	return r.send(ctx, session, method, params)
}

func (r *Router) send(ctx context.Context, session *lspsession.Session, method string, params any) (json.RawMessage, error) {
	if !r.manager.AllowRequest(session) {
		return nil, ErrRateLimited{LanguageID: session.LanguageID}
	}

	if method == "workspace/symbol" {
		if err := r.manager.EnsureWorkspaceFoldersAnnounced(session); err != nil {
			return nil, fmt.Errorf("announcing workspace folders: %w", err)
		}
	}

	if documentCentricMethods[method] {
		if err := r.manager.EnsureProjectFilesOpened(ctx, session); err != nil {
			return nil, fmt.Errorf("opening project files: %w", err)
		}
	}

	var raw json.RawMessage
	if err := session.Channel.Call(ctx, method, params, &raw); err != nil {
		return nil, fmt.Errorf("language server transport error: %w", err)
	}
	return raw, nil
}
