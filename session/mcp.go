package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tabctl/tabctl/kit"
	"github.com/tabctl/tabctl/observability"
)

// RegisterMCP registers the browser tools on an MCP server.
func (s *Session) RegisterMCP(srv *mcp.Server) {
	s.registerNavigateTool(srv)
	s.registerSnapshotTool(srv)
	s.registerClickTool(srv)
	s.registerTypeTool(srv)
	s.registerSelectOptionTool(srv)
	s.registerPressKeyTool(srv)
	s.registerHoverTool(srv)
	s.registerWaitForTool(srv)
	s.registerTabsTool(srv)
	s.registerExtractTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// instrument wraps an endpoint with audit recording: one row per invocation
// with outcome and duration. The ref function extracts the token being acted
// on, if any.
func (s *Session) instrument(tool string, ref func(req any) string, endpoint kit.Endpoint) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		start := time.Now()
		resp, err := endpoint(ctx, req)
		if s.audit != nil {
			inv := observability.Invocation{
				Tool:     tool,
				Duration: time.Since(start),
				Success:  err == nil,
			}
			if ref != nil {
				inv.Ref = ref(req)
			}
			if t, terr := s.ActiveTab(); terr == nil {
				inv.TabID = t.ID
				inv.Generation = t.store.Generation()
			}
			if err != nil {
				inv.Error = err.Error()
			}
			s.audit.Record(ctx, inv)
		}
		return resp, err
	}
}

func decodeJSON[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// refProperty is the shared schema for reference token parameters.
var refProperty = map[string]any{
	"type":        "string",
	"description": "Element reference from the latest snapshot, e.g. s3e7 or f1s3e7",
}

// --- browser_navigate ---

type navigateRequest struct {
	URL string `json:"url"`
}

func (s *Session) registerNavigateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_navigate",
		Description: "Navigate the active tab to a URL (opens a tab if none exists). Returns the page snapshot with element refs.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute URL to load"},
		}, []string{"url"}),
	}

	endpoint := s.instrument(tool.Name, nil, func(ctx context.Context, req any) (any, error) {
		r := req.(*navigateRequest)
		return s.Navigate(ctx, r.URL)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[navigateRequest])
}

// --- browser_snapshot ---

type snapshotRequest struct{}

func (s *Session) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_snapshot",
		Description: "Capture a fresh accessibility snapshot of the active tab. Invalidates all refs from earlier snapshots.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := s.instrument(tool.Name, nil, func(ctx context.Context, req any) (any, error) {
		return s.Snapshot(ctx)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[snapshotRequest])
}

// --- browser_click ---

type clickRequest struct {
	Ref string `json:"ref"`
}

func (s *Session) registerClickTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_click",
		Description: "Click the element behind a reference token, then return the post-click snapshot.",
		InputSchema: inputSchema(map[string]any{
			"ref": refProperty,
		}, []string{"ref"}),
	}

	endpoint := s.instrument(tool.Name,
		func(req any) string { return req.(*clickRequest).Ref },
		func(ctx context.Context, req any) (any, error) {
			r := req.(*clickRequest)
			return s.Click(ctx, r.Ref)
		})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[clickRequest])
}

// --- browser_type ---

type typeRequest struct {
	Ref    string `json:"ref"`
	Text   string `json:"text"`
	Submit bool   `json:"submit,omitempty"`
}

func (s *Session) registerTypeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_type",
		Description: "Replace the text of an input element, optionally pressing Enter afterwards.",
		InputSchema: inputSchema(map[string]any{
			"ref":    refProperty,
			"text":   map[string]any{"type": "string", "description": "Text to type"},
			"submit": map[string]any{"type": "boolean", "description": "Press Enter after typing"},
		}, []string{"ref", "text"}),
	}

	endpoint := s.instrument(tool.Name,
		func(req any) string { return req.(*typeRequest).Ref },
		func(ctx context.Context, req any) (any, error) {
			r := req.(*typeRequest)
			return s.Type(ctx, r.Ref, r.Text, r.Submit)
		})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[typeRequest])
}

// --- browser_select_option ---

type selectOptionRequest struct {
	Ref    string   `json:"ref"`
	Values []string `json:"values"`
}

func (s *Session) registerSelectOptionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_select_option",
		Description: "Select one or more options in a select element, by visible label or value attribute.",
		InputSchema: inputSchema(map[string]any{
			"ref":    refProperty,
			"values": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Option labels or values"},
		}, []string{"ref", "values"}),
	}

	endpoint := s.instrument(tool.Name,
		func(req any) string { return req.(*selectOptionRequest).Ref },
		func(ctx context.Context, req any) (any, error) {
			r := req.(*selectOptionRequest)
			return s.SelectOption(ctx, r.Ref, r.Values)
		})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[selectOptionRequest])
}

// --- browser_press_key ---

type pressKeyRequest struct {
	Key string `json:"key"`
	Ref string `json:"ref,omitempty"`
}

func (s *Session) registerPressKeyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_press_key",
		Description: "Press a key (Enter, Tab, ArrowDown, a single character, ...) on a referenced element or the focused one.",
		InputSchema: inputSchema(map[string]any{
			"key": map[string]any{"type": "string", "description": "Key name, e.g. Enter or ArrowDown"},
			"ref": refProperty,
		}, []string{"key"}),
	}

	endpoint := s.instrument(tool.Name,
		func(req any) string { return req.(*pressKeyRequest).Ref },
		func(ctx context.Context, req any) (any, error) {
			r := req.(*pressKeyRequest)
			return s.PressKey(ctx, r.Key, r.Ref)
		})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[pressKeyRequest])
}

// --- browser_hover ---

type hoverRequest struct {
	Ref string `json:"ref"`
}

func (s *Session) registerHoverTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_hover",
		Description: "Hover over the element behind a reference token (opens menus, reveals tooltips).",
		InputSchema: inputSchema(map[string]any{
			"ref": refProperty,
		}, []string{"ref"}),
	}

	endpoint := s.instrument(tool.Name,
		func(req any) string { return req.(*hoverRequest).Ref },
		func(ctx context.Context, req any) (any, error) {
			r := req.(*hoverRequest)
			return s.Hover(ctx, r.Ref)
		})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[hoverRequest])
}

// --- browser_wait_for ---

type waitForRequest struct {
	Text     string  `json:"text,omitempty"`
	TextGone string  `json:"text_gone,omitempty"`
	Time     float64 `json:"time,omitempty"`
}

func (s *Session) registerWaitForTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_wait_for",
		Description: "Wait until text appears or disappears on the page, or for a fixed number of seconds, then resnapshot.",
		InputSchema: inputSchema(map[string]any{
			"text":      map[string]any{"type": "string", "description": "Wait until this text is visible"},
			"text_gone": map[string]any{"type": "string", "description": "Wait until this text is gone"},
			"time":      map[string]any{"type": "number", "description": "Seconds to wait unconditionally"},
		}, nil),
	}

	endpoint := s.instrument(tool.Name, nil, func(ctx context.Context, req any) (any, error) {
		r := req.(*waitForRequest)
		return s.WaitFor(ctx, r.Text, r.TextGone, r.Time)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[waitForRequest])
}

// --- browser_tabs ---

type tabsRequest struct {
	Action string `json:"action"`
	TabID  string `json:"tab_id,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (s *Session) registerTabsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_tabs",
		Description: "Manage tabs: list, new, select, close. Each tab keeps its own snapshot generation.",
		InputSchema: inputSchema(map[string]any{
			"action": map[string]any{"type": "string", "enum": []any{"list", "new", "select", "close"}, "description": "Tab operation"},
			"tab_id": map[string]any{"type": "string", "description": "Target tab for select/close"},
			"url":    map[string]any{"type": "string", "description": "URL for new"},
		}, []string{"action"}),
	}

	endpoint := s.instrument(tool.Name, nil, func(ctx context.Context, req any) (any, error) {
		r := req.(*tabsRequest)
		return s.tabsAction(ctx, r)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[tabsRequest])
}

// --- extract_content ---

type extractRequest struct {
	Selector string `json:"selector,omitempty"`
}

func (s *Session) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extract_content",
		Description: "Convert the current page (or one CSS-selected region) to sanitized markdown.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "Optional simple CSS selector scoping the extraction"},
		}, nil),
	}

	endpoint := s.instrument(tool.Name, nil, func(ctx context.Context, req any) (any, error) {
		r := req.(*extractRequest)
		return s.ExtractContent(ctx, r.Selector)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, decodeJSON[extractRequest])
}
