package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/axivo/mcp-lsp/internal/lspsession"
	"github.com/axivo/mcp-lsp/internal/router"
)

// Dispatcher is the tool dispatcher: it validates arguments
// against the catalog, maps them onto LSP requests, and shapes the
// response envelope. It depends only on the router and session manager —
// no outer-protocol transport.
type Dispatcher struct {
	router  *router.Router
	manager *lspsession.Manager
}

// New builds a Dispatcher over r and m.
func New(r *router.Router, m *lspsession.Manager) *Dispatcher {
	return &Dispatcher{router: r, manager: m}
}

// Call validates args against the named tool's schema and executes it,
// never returning an error: every failure mode is represented inside the
// Result envelope, following a consistent error-propagation policy.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) Result {
	def, ok := Lookup(name)
	if !ok {
		return textResult(fmt.Sprintf("Unknown tool: %s", name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if missing := validate(def, args); len(missing) > 0 {
		return textResult(missingArgsError(missing))
	}

	switch {
	case def.admin:
		return d.dispatchAdmin(ctx, def, args)
	case def.byLanguage:
		return d.dispatchByLanguage(ctx, def, args)
	default:
		return d.dispatchByFile(ctx, def, args)
	}
}

func resolveSession(m *lspsession.Manager, languageID, project string) (*lspsession.Session, error) {
	s, ok := m.Session(languageID)
	if !ok {
		return nil, fmt.Errorf("Language server '%s' is not running.", languageID)
	}
	if project != "" && s.Project.Name != project {
		return nil, fmt.Errorf("Language server '%s' is running project '%s', not '%s'.", languageID, s.Project.Name, project)
	}
	return s, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// resolveFile determines the file path a by-file tool's request targets:
// either the file_path argument directly, or — for the call/type-hierarchy
// traversal tools — the owning file recovered from item.uri.
func resolveFile(def ToolDef, args map[string]any) (string, error) {
	if def.recoverFileFromItem {
		uri, ok := itemURI(args["item"])
		if !ok {
			return "", fmt.Errorf("item.uri is required to route this request")
		}
		file, ok := fileFromURI(uri)
		if !ok {
			return "", fmt.Errorf("item.uri %q is not a file:// URI", uri)
		}
		return file, nil
	}
	return stringArg(args, "file_path"), nil
}

func (d *Dispatcher) dispatchByFile(ctx context.Context, def ToolDef, args map[string]any) Result {
	file, err := resolveFile(def, args)
	if err != nil {
		return textResult(err.Error())
	}
	params := buildParams(def, args)
	raw, err := d.router.SendFileRequest(ctx, file, def.Method, params)
	if err != nil {
		return textResult(err.Error())
	}

	var payload any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return textResult(fmt.Sprintf("decoding language server response: %v", err))
		}
	}

	if !def.paginated {
		return jsonResult(payload)
	}

	items, _ := payload.([]any)
	limit := intArg(args, "limit", 250)
	offset := intArg(args, "offset", 0)
	page, pagination := paginate(items, limit, offset)
	return jsonResult(map[string]any{
		"file_path":  file,
		"items":      page,
		"pagination": pagination,
	})
}

func (d *Dispatcher) dispatchByLanguage(ctx context.Context, def ToolDef, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	project := stringArg(args, "project")

	if _, err := resolveSession(d.manager, languageID, project); err != nil {
		return textResult(err.Error())
	}

	params := buildParams(def, args)
	raw, err := d.router.SendRequest(ctx, languageID, project, def.Method, params)
	if err != nil {
		return textResult(err.Error())
	}

	var payload any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return textResult(fmt.Sprintf("decoding language server response: %v", err))
		}
	}

	items, _ := payload.([]any)
	limit := intArg(args, "limit", 250)
	offset := intArg(args, "offset", 0)
	page, pagination := paginate(items, limit, offset)
	return jsonResult(map[string]any{
		"language_id": languageID,
		"project":     project,
		"items":       page,
		"pagination":  pagination,
	})
}

func (d *Dispatcher) dispatchAdmin(ctx context.Context, def ToolDef, args map[string]any) Result {
	switch def.Name {
	case "start_server":
		return d.startServer(ctx, args)
	case "stop_server":
		return d.stopServer(ctx, args)
	case "restart_server":
		return d.restartServer(ctx, args)
	case "load_project_files":
		return d.loadProjectFiles(ctx, args)
	case "get_server_status":
		return d.getServerStatus(args)
	case "get_server_projects":
		return d.getServerProjects(args)
	case "get_server_capabilities":
		return d.getServerCapabilities(args)
	case "get_project_files":
		return d.getProjectFiles(ctx, args)
	default:
		return textResult(fmt.Sprintf("Unknown tool: %s", def.Name))
	}
}

func (d *Dispatcher) startServer(ctx context.Context, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	project := stringArg(args, "project")
	session, err := d.manager.Start(ctx, languageID, project)
	if err != nil {
		return textResult(err.Error())
	}
	return jsonResult(map[string]any{
		"message":     fmt.Sprintf("Successfully started '%s'.", languageID),
		"language_id": languageID,
		"project":     session.Project.Name,
		"pid":         session.Process.PID(),
	})
}

func (d *Dispatcher) stopServer(ctx context.Context, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	if err := d.manager.Stop(ctx, languageID); err != nil {
		return textResult(err.Error())
	}
	return textResult(fmt.Sprintf("Successfully stopped '%s'.", languageID))
}

func (d *Dispatcher) restartServer(ctx context.Context, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	session, err := d.manager.Restart(ctx, languageID)
	if err != nil {
		return textResult(err.Error())
	}
	return jsonResult(map[string]any{
		"message":     fmt.Sprintf("Successfully restarted '%s'.", languageID),
		"language_id": languageID,
		"project":     session.Project.Name,
		"pid":         session.Process.PID(),
	})
}

func (d *Dispatcher) loadProjectFiles(ctx context.Context, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	project := stringArg(args, "project")
	session, err := resolveSession(d.manager, languageID, project)
	if err != nil {
		return textResult(err.Error())
	}
	timeoutMs := intArg(args, "timeout_ms", 30000)
	if err := d.manager.LoadProjectFiles(ctx, session, time.Duration(timeoutMs)*time.Millisecond); err != nil {
		return textResult(err.Error())
	}
	return jsonResult(map[string]any{
		"message":     fmt.Sprintf("Loaded project files for '%s'.", languageID),
		"language_id": languageID,
		"opened":      session.OpenFileCount(),
	})
}

func (d *Dispatcher) getServerStatus(args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	if languageID == "" {
		return jsonResult(d.manager.StatusAll())
	}
	return jsonResult(d.manager.Status(languageID))
}

func (d *Dispatcher) getServerProjects(args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	spec, ok := d.manager.ServerConfig(languageID)
	if !ok {
		return textResult(fmt.Sprintf("Language server '%s' is not configured.", languageID))
	}
	return jsonResult(map[string]any{
		"language_id": languageID,
		"projects":    spec.Projects,
	})
}

func (d *Dispatcher) getServerCapabilities(args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	session, err := resolveSession(d.manager, languageID, "")
	if err != nil {
		return textResult(err.Error())
	}
	caps := session.Capabilities()
	return jsonResult(map[string]any{
		"language_id":  languageID,
		"project":      session.Project.Name,
		"capabilities": caps,
		"tools":        BuildCapabilityToolMap(caps),
	})
}

func (d *Dispatcher) getProjectFiles(ctx context.Context, args map[string]any) Result {
	languageID := stringArg(args, "language_id")
	project := stringArg(args, "project")
	session, err := resolveSession(d.manager, languageID, project)
	if err != nil {
		return textResult(err.Error())
	}
	files, err := d.manager.ProjectFiles(ctx, session)
	if err != nil {
		return textResult(err.Error())
	}
	limit := intArg(args, "limit", 250)
	offset := intArg(args, "offset", 0)
	page, pagination := paginate(files, limit, offset)
	return jsonResult(map[string]any{
		"language_id": languageID,
		"project":     session.Project.Name,
		"files":       page,
		"pagination":  pagination,
	})
}
