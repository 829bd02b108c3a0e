// Package mcpserver exposes the Approval Queue as an MCP tool surface,
// grounded on the teacher's internal/controlplane/mcpserver package. It is
// an additive, optional surface: every tool call goes through the same
// internal/approval.Queue methods used by the file inbox and Telegram
// adapter, so no invariant differs between surfaces.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/0ld3ull/operator/internal/approval"
)

const implVersion = "1.0.0"

// MCPServer wraps the Approval Queue behind an MCP tool surface.
type MCPServer struct {
	queue  *approval.Queue
	logger *zap.Logger

	server  *mcp.Server
	handler http.Handler
}

// New builds an MCPServer over queue and registers its tools.
func New(queue *approval.Queue, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MCPServer{
		queue:  queue,
		logger: logger,
	}
	m.server = mcp.NewServer(&mcp.Implementation{Name: "operator", Version: implVersion}, nil)
	m.registerTools()
	m.handler = mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server { return m.server }, nil)
	return m
}

// Handler returns the HTTP handler serving the MCP SSE transport.
func (m *MCPServer) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

func (m *MCPServer) registerTools() {
	mcp.AddTool(m.server, &mcp.Tool{
		Name:        "approval_get_pending",
		Description: "List pending approval requests, optionally filtered by project",
	}, m.handleGetPending)

	mcp.AddTool(m.server, &mcp.Tool{
		Name:        "approval_approve",
		Description: "Approve a pending approval request by id",
	}, m.handleApprove)

	mcp.AddTool(m.server, &mcp.Tool{
		Name:        "approval_reject",
		Description: "Reject a pending approval request by id",
	}, m.handleReject)
}

type getPendingInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to filter by; empty returns all projects"`
}

func (m *MCPServer) handleGetPending(ctx context.Context, _ *mcp.CallToolRequest, input getPendingInput) (*mcp.CallToolResult, any, error) {
	pending, err := m.queue.GetPending(ctx, input.Project)
	if err != nil {
		m.logger.Warn("mcp approval_get_pending failed", zap.Error(err))
		return nil, nil, err
	}
	return jsonToolResult(pending)
}

type approveInput struct {
	ID    int64  `json:"id" jsonschema:"Approval request id"`
	Notes string `json:"notes,omitempty" jsonschema:"Operator notes recorded with the decision"`
}

func (m *MCPServer) handleApprove(ctx context.Context, _ *mcp.CallToolRequest, input approveInput) (*mcp.CallToolResult, any, error) {
	result, err := m.queue.Approve(ctx, input.ID, input.Notes)
	if err != nil {
		m.logger.Warn("mcp approval_approve failed", zap.Int64("id", input.ID), zap.Error(err))
		return nil, nil, err
	}
	return jsonToolResult(result)
}

type rejectInput struct {
	ID     int64  `json:"id" jsonschema:"Approval request id"`
	Reason string `json:"reason,omitempty" jsonschema:"Reason for rejection"`
}

func (m *MCPServer) handleReject(ctx context.Context, _ *mcp.CallToolRequest, input rejectInput) (*mcp.CallToolResult, any, error) {
	result, err := m.queue.Reject(ctx, input.ID, input.Reason)
	if err != nil {
		m.logger.Warn("mcp approval_reject failed", zap.Int64("id", input.ID), zap.Error(err))
		return nil, nil, err
	}
	return jsonToolResult(result)
}

func jsonToolResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return textToolResult(string(data)), nil, nil
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
