package bridge

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"scenebridge/internal/logbuffer"
	"scenebridge/internal/mirror"
)

// RegisterMCP registers the façade's three operations as MCP tools.
func (f *Facade) RegisterMCP(srv *mcp.Server) {
	f.registerSnapshotTool(srv)
	f.registerExecuteTool(srv)
	f.registerLogsTool(srv)
}

// objectSchema builds a JSON schema for tool input and output. Output
// schemas must always be explicit: the SDK's inference cannot handle the
// recursive scene-tree type and panics on it.
func objectSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- snapshot ---

type snapshotArgs struct {
	View string `json:"view,omitempty"`
}

type snapshotPayload struct {
	Snapshot mirror.Snapshot `json:"snapshot"`
}

func (f *Facade) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bridge_snapshot",
		Description: "Fetch the mirrored host state. View selects full state, only the scripts asset category, or everything except scripts.",
		InputSchema: objectSchema(map[string]any{
			"view": map[string]any{
				"type":        "string",
				"enum":        []string{string(ViewFull), string(ViewScriptsOnly), string(ViewNoScripts)},
				"description": "Response shape (default full)",
			},
		}, nil),
		OutputSchema: objectSchema(map[string]any{
			"snapshot": map[string]any{
				"type":        "object",
				"description": "Mirrored host state: entities, selection, run mode, scene tree, assets",
			},
		}, []string{"snapshot"}),
	}

	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, args snapshotArgs) (*mcp.CallToolResult, snapshotPayload, error) {
		snap, err := f.GetSnapshot(SnapshotView(args.View))
		if err != nil {
			return nil, snapshotPayload{}, err
		}
		return nil, snapshotPayload{Snapshot: snap}, nil
	})
}

// --- execute ---

type executeArgs struct {
	Code string `json:"code"`
}

type executePayload struct {
	Result        string   `json:"result"`
	Logs          []string `json:"logs"`
	ElapsedMillis int64    `json:"elapsedMillis"`
}

func (f *Facade) registerExecuteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bridge_execute",
		Description: "Run a code fragment in the host's execution context and return the result plus the log lines captured during the run.",
		InputSchema: objectSchema(map[string]any{
			"code": map[string]any{"type": "string", "description": "Non-empty code fragment"},
		}, []string{"code"}),
		OutputSchema: objectSchema(map[string]any{
			"result":        map[string]any{"type": "string"},
			"logs":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"elapsedMillis": map[string]any{"type": "integer"},
		}, []string{"result", "logs", "elapsedMillis"}),
	}

	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, args executeArgs) (*mcp.CallToolResult, executePayload, error) {
		outcome, err := f.ExecuteCommand(ctx, args.Code)
		if err != nil {
			return nil, executePayload{}, err
		}
		lines := make([]string, 0, len(outcome.Logs))
		for _, event := range outcome.Logs {
			lines = append(lines, event.Message)
		}
		return nil, executePayload{
			Result:        outcome.Result,
			Logs:          lines,
			ElapsedMillis: outcome.Elapsed.Milliseconds(),
		}, nil
	})
}

// --- logs ---

type logsArgs struct {
	Severities      []string `json:"severities,omitempty"`
	MessageContains string   `json:"messageContains,omitempty"`
	StackContains   string   `json:"stackContains,omitempty"`
	After           int64    `json:"after,omitempty"`
	Before          int64    `json:"before,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	Fields          []string `json:"fields,omitempty"`
}

type logsPayload struct {
	Events []map[string]any `json:"events"`
}

func (f *Facade) registerLogsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bridge_logs",
		Description: "Query the buffered host log events with optional severity, substring, time-bound, limit, and field-projection filters.",
		InputSchema: objectSchema(map[string]any{
			"severities": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []string{"info", "warning", "error", "fatal"}},
			},
			"messageContains": map[string]any{"type": "string", "description": "Case-sensitive substring match on the message"},
			"stackContains":   map[string]any{"type": "string", "description": "Case-sensitive substring match on the stack text"},
			"after":           map[string]any{"type": "integer", "description": "Inclusive lower bound, unix milliseconds"},
			"before":          map[string]any{"type": "integer", "description": "Inclusive upper bound, unix milliseconds"},
			"limit":           map[string]any{"type": "integer", "description": "Keep only the most recent N matches"},
			"fields": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []string{logbuffer.FieldMessage, logbuffer.FieldStack, logbuffer.FieldSeverity, logbuffer.FieldTimestamp}},
			},
		}, nil),
		OutputSchema: objectSchema(map[string]any{
			"events": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		}, []string{"events"}),
	}

	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, args logsArgs) (*mcp.CallToolResult, logsPayload, error) {
		events, err := f.QueryLogs(LogQuery{
			Severities:      args.Severities,
			MessageContains: args.MessageContains,
			StackContains:   args.StackContains,
			After:           args.After,
			Before:          args.Before,
			Limit:           args.Limit,
			Fields:          args.Fields,
		})
		if err != nil {
			return nil, logsPayload{}, err
		}
		return nil, logsPayload{Events: events}, nil
	})
}
