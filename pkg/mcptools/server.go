// Package mcptools exposes the portfolio tools over the Model Context
// Protocol.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"divvy/pkg/portfolio"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName    = "divvy"
	serverVersion = "1.0.0"

	ToolGetBalance      = "get-balance"
	ToolCreateAllowance = "create-allowance"
	ToolRemoveAllowance = "remove-allowance"
)

// Tools serves the portfolio tools
type Tools struct {
	portfolio *portfolio.Portfolio
	mcpServer *server.MCPServer
	log       *zap.Logger
}

// New registers the tools on a fresh MCP server
func New(p *portfolio.Portfolio, log *zap.Logger) *Tools {
	if log == nil {
		log = zap.NewNop()
	}

	t := &Tools{
		portfolio: p,
		mcpServer: server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
		log:       log,
	}

	t.mcpServer.AddTool(mcp.NewTool(ToolGetBalance,
		mcp.WithDescription("Returns current balance of supported tokens and their USD value"),
		mcp.WithString("accountId", mcp.Description("NEAR account to echo back")),
		mcp.WithString("evmAddress", mcp.Description("EVM address to echo back")),
	), t.getBalance)

	t.mcpServer.AddTool(mcp.NewTool(ToolCreateAllowance,
		mcp.WithDescription("Setup a new recurring allowance with target growth rate"),
		mcp.WithString("targetGrowthRate", mcp.Required(), mcp.Description("Portfolio growth in percent that triggers the allowance")),
		mcp.WithString("allowanceAmount", mcp.Required(), mcp.Description("Amount converted into the stablecoin")),
		mcp.WithString("frequency", mcp.Required(), mcp.Description("How often the allowance may run")),
		mcp.WithString("stablecoin", mcp.Required(), mcp.Enum(portfolio.Stablecoins...)),
	), t.createAllowance)

	t.mcpServer.AddTool(mcp.NewTool(ToolRemoveAllowance,
		mcp.WithDescription("Remove an existing allowance configuration"),
	), t.removeAllowance)

	return t
}

// Handler returns the streamable HTTP transport
func (t *Tools) Handler() http.Handler {
	return server.NewStreamableHTTPServer(t.mcpServer)
}

func (t *Tools) getBalance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var identity *portfolio.Identity
	accountID := req.GetString("accountId", "")
	evmAddress := req.GetString("evmAddress", "")
	if accountID != "" || evmAddress != "" {
		identity = &portfolio.Identity{AccountID: accountID, EVMAddress: evmAddress}
	}

	return jsonResult(t.portfolio.Balance(identity))
}

func (t *Tools) createAllowance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := req.GetArguments()
	if arguments == nil {
		arguments = map[string]interface{}{}
	}
	args, err := json.Marshal(arguments)
	if err != nil {
		return mcp.NewToolResultError(portfolio.ErrCreateFailed.Error()), nil
	}

	cfg, err := portfolio.DecodeAllowance(args)
	if err != nil {
		t.log.Error("Error creating allowance", zap.Error(err))
		return mcp.NewToolResultError(portfolio.ErrCreateFailed.Error()), nil
	}

	message, err := t.portfolio.CreateAllowance(cfg)
	if err != nil {
		if !errors.Is(err, portfolio.ErrMissingFields) {
			t.log.Error("Error creating allowance", zap.Error(err))
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !portfolio.IsKnownStablecoin(string(cfg.Stablecoin)) {
		t.log.Warn("Allowance uses an unlisted stablecoin", zap.String("stablecoin", string(cfg.Stablecoin)))
	}

	return jsonResult(map[string]interface{}{"success": true, "message": message})
}

func (t *Tools) removeAllowance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{"success": true, "message": t.portfolio.RemoveAllowance()})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
