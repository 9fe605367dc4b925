// Package mcpserver exposes the gateways and the playbook engine as MCP
// tools over stdio, so assistants and other MCP clients can drive
// remediation through the same policy checks as the CLI.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/opsgate/opsgate/internal/gateway"
	"github.com/opsgate/opsgate/internal/nlp"
	"github.com/opsgate/opsgate/internal/playbook"
	"github.com/opsgate/opsgate/internal/provider"
)

// Server bundles the MCP surface over the gateways and playbook engine.
type Server struct {
	mcp      *server.MCPServer
	gateways map[provider.Kind]*gateway.Gateway
	executor *playbook.Executor
	catalog  map[string]*playbook.Playbook
	interp   *nlp.Interpreter
}

// New assembles the MCP server and registers every tool. catalog maps
// playbook IDs to loaded playbooks.
func New(version string, gateways map[provider.Kind]*gateway.Gateway, executor *playbook.Executor, catalog []*playbook.Playbook) *Server {
	s := &Server{
		mcp:      server.NewMCPServer("opsgate", version, server.WithToolCapabilities(false)),
		gateways: gateways,
		executor: executor,
		catalog:  make(map[string]*playbook.Playbook, len(catalog)),
		interp:   nlp.New(),
	}
	for _, p := range catalog {
		s.catalog[p.ID()] = p
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Execute a cloud CLI command or natural-language request through the provider gateway. Policy validation, pipeline checks, and context injection all apply."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Cloud provider: aws, gcp, or azure")),
		mcp.WithString("command", mcp.Required(), mcp.Description("CLI command (e.g. 'aws s3 ls') or natural language (e.g. 'list my buckets')")),
	), s.handleExecuteCommand)

	s.mcp.AddTool(mcp.NewTool("interpret",
		mcp.WithDescription("Translate a natural-language request into the provider CLI command that would run, without executing it."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Cloud provider: aws, gcp, or azure")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Natural-language request")),
	), s.handleInterpret)

	s.mcp.AddTool(mcp.NewTool("list_playbooks",
		mcp.WithDescription("List the available remediation playbooks."),
	), s.handleListPlaybooks)

	s.mcp.AddTool(mcp.NewTool("run_playbook",
		mcp.WithDescription("Start a remediation playbook against a finding. Playbooks that require approval park until approve_execution is called."),
		mcp.WithString("playbook_id", mcp.Required(), mcp.Description("Playbook to run")),
		mcp.WithString("finding_id", mcp.Required(), mcp.Description("Finding being remediated")),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Affected resource identifier")),
		mcp.WithString("initiator", mcp.Required(), mcp.Description("Who requested the run")),
		mcp.WithString("category", mcp.Description("Finding category, e.g. storage or network")),
		mcp.WithString("severity", mcp.Description("Finding severity, e.g. high")),
		mcp.WithBoolean("dry_run", mcp.Description("Preview actions without executing them")),
	), s.handleRunPlaybook)

	s.mcp.AddTool(mcp.NewTool("approve_execution",
		mcp.WithDescription("Approve an execution awaiting approval; its actions run before this returns."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("Execution to approve")),
		mcp.WithString("approver", mcp.Required(), mcp.Description("Who approved")),
	), s.handleApprove)

	s.mcp.AddTool(mcp.NewTool("reject_execution",
		mcp.WithDescription("Reject an execution awaiting approval. No action runs."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("Execution to reject")),
		mcp.WithString("approver", mcp.Required(), mcp.Description("Who rejected")),
		mcp.WithString("reason", mcp.Description("Why it was rejected")),
	), s.handleReject)

	s.mcp.AddTool(mcp.NewTool("rollback_execution",
		mcp.WithDescription("Roll back a completed execution by replaying recorded rollback commands in reverse order."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("Execution to roll back")),
	), s.handleRollback)

	s.mcp.AddTool(mcp.NewTool("execution_history",
		mcp.WithDescription("List retained playbook executions, newest first."),
		mcp.WithString("playbook_id", mcp.Description("Filter to one playbook")),
		mcp.WithString("finding_id", mcp.Description("Filter to one finding")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return")),
	), s.handleHistory)
}

func (s *Server) gatewayFor(name string) (*gateway.Gateway, error) {
	kind, ok := provider.ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (expected aws, gcp, or azure)", name)
	}
	gw, ok := s.gateways[kind]
	if !ok || gw == nil {
		return nil, fmt.Errorf("no %s gateway configured", kind)
	}
	return gw, nil
}

func (s *Server) handleExecuteCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerName, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gw, err := s.gatewayFor(providerName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := gw.ExecuteCommand(ctx, command)
	return jsonResult(res)
}

func (s *Server) handleInterpret(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerName, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	kind, ok := provider.ParseKind(providerName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown provider %q (expected aws, gcp, or azure)", providerName)), nil
	}

	interpreted, ok := s.interp.Interpret(kind, text)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("cannot interpret %q for %s", text, kind)), nil
	}
	return mcp.NewToolResultText(interpreted), nil
}

func (s *Server) handleListPlaybooks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type summary struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		Description      string `json:"description"`
		Category         string `json:"category"`
		Severity         string `json:"severity"`
		RequiresApproval bool   `json:"requires_approval"`
		RollbackEnabled  bool   `json:"rollback_enabled"`
		Actions          int    `json:"actions"`
	}

	out := make([]summary, 0, len(s.catalog))
	for _, p := range s.catalog {
		out = append(out, summary{
			ID:               p.ID(),
			Name:             p.Name(),
			Description:      p.Description(),
			Category:         p.Category(),
			Severity:         p.Severity(),
			RequiresApproval: p.RequiresApproval(),
			RollbackEnabled:  p.RollbackEnabled(),
			Actions:          len(p.Actions()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return jsonResult(out)
}

func (s *Server) handleRunPlaybook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	playbookID, err := req.RequireString("playbook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	findingID, err := req.RequireString("finding_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	initiator, err := req.RequireString("initiator")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, ok := s.catalog[playbookID]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown playbook %q", playbookID)), nil
	}

	finding := playbook.Finding{
		ID:       findingID,
		Resource: resource,
		Category: req.GetString("category", p.Category()),
		Severity: req.GetString("severity", p.Severity()),
	}

	ex, err := s.executor.Execute(ctx, p, finding, initiator, req.GetBool("dry_run", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ex)
}

func (s *Server) handleApprove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	approver, err := req.RequireString("approver")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ex, err := s.executor.Approve(ctx, executionID, approver)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ex)
}

func (s *Server) handleReject(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	approver, err := req.RequireString("approver")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ex, err := s.executor.Reject(executionID, approver, req.GetString("reason", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ex)
}

func (s *Server) handleRollback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ex, err := s.executor.Rollback(ctx, executionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ex)
}

func (s *Server) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := playbook.HistoryFilter{
		PlaybookID: req.GetString("playbook_id", ""),
		FindingID:  req.GetString("finding_id", ""),
	}
	limit := req.GetInt("limit", 0)
	return jsonResult(s.executor.History(filter, limit))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
