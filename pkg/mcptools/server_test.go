package mcptools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"divvy/pkg/portfolio"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTools() *Tools {
	clock := func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return New(portfolio.New(5, portfolio.WithClock(clock)), nil)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolsList(t *testing.T) {
	msg := newTools().mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))

	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolGetBalance, ToolCreateAllowance, ToolRemoveAllowance}, names)
}

func TestCreateAllowanceToolWithoutArguments(t *testing.T) {
	result, err := newTools().createAllowance(context.Background(), callRequest(ToolCreateAllowance, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Missing required fields", resultText(t, result))
}

func TestGetBalanceTool(t *testing.T) {
	tools := newTools()

	result, err := tools.getBalance(context.Background(), callRequest(ToolGetBalance, nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var balance portfolio.Balance
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &balance))
	assert.Len(t, balance.Prices, 7)
	assert.Equal(t, "800.75", balance.TotalUSDValue)
	assert.Empty(t, balance.AccountID)

	result, err = tools.getBalance(context.Background(), callRequest(ToolGetBalance, map[string]interface{}{
		"accountId": "alice.near",
	}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &balance))
	assert.Equal(t, "alice.near", balance.AccountID)
	assert.Equal(t, portfolio.UnknownAccount, balance.EVMAddress)
}

func TestCreateAllowanceTool(t *testing.T) {
	tools := newTools()

	result, err := tools.createAllowance(context.Background(), callRequest(ToolCreateAllowance, map[string]interface{}{
		"targetGrowthRate": "20",
		"allowanceAmount":  "200",
		"frequency":        "monthly",
		"stablecoin":       "USDT",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Allowance created: 200 USDT when portfolio grows 20% (monthly)", body["message"])
}

func TestCreateAllowanceToolMissingFields(t *testing.T) {
	result, err := newTools().createAllowance(context.Background(), callRequest(ToolCreateAllowance, map[string]interface{}{
		"targetGrowthRate": "20",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Missing required fields", resultText(t, result))
}

func TestRemoveAllowanceTool(t *testing.T) {
	result, err := newTools().removeAllowance(context.Background(), callRequest(ToolRemoveAllowance, nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Allowance removed successfully")
}

func TestCreateAllowanceToolWarnsOnUnlistedStablecoin(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tools := New(portfolio.New(5), zap.New(core))

	result, err := tools.createAllowance(context.Background(), callRequest(ToolCreateAllowance, map[string]interface{}{
		"targetGrowthRate": "5",
		"allowanceAmount":  "10",
		"frequency":        "daily",
		"stablecoin":       "DAI",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	warnings := logs.FilterMessage("Allowance uses an unlisted stablecoin").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "DAI", warnings[0].ContextMap()["stablecoin"])
}
