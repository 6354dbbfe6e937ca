package client

import (
	"context"
	"fmt"
	"strings"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
)

// TokenInfo is the registry view of a token that divvy needs
type TokenInfo struct {
	AssetID         string `json:"asset_id"`
	Symbol          string `json:"symbol"`
	Blockchain      string `json:"blockchain"`
	Decimals        int    `json:"decimals"`
	ContractAddress string `json:"contract_address,omitempty"`
}

// OneClickClient wraps the 1Click SDK token registry
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
}

// NewOneClickClient creates a new 1Click API client
func NewOneClickClient(baseURL, jwtToken string) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}

	return &OneClickClient{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

func (c *OneClickClient) authContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// GetSupportedTokens retrieves all supported tokens
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]TokenInfo, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	tokens := make([]TokenInfo, 0, len(resp))
	for _, token := range resp {
		tokens = append(tokens, TokenInfo{
			AssetID:         token.GetAssetId(),
			Symbol:          token.GetSymbol(),
			Blockchain:      token.GetBlockchain(),
			Decimals:        int(token.GetDecimals()),
			ContractAddress: token.GetContractAddress(),
		})
	}

	return tokens, nil
}

// FindToken searches for a token by symbol across all chains
func (c *OneClickClient) FindToken(ctx context.Context, symbol string) (*TokenInfo, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}
	return findToken(tokens, symbol, "")
}

// FindTokenOnChain searches for a token by symbol on a specific chain
func (c *OneClickClient) FindTokenOnChain(ctx context.Context, symbol, chain string) (*TokenInfo, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}
	return findToken(tokens, symbol, chain)
}

// findToken prefers an exact symbol match and falls back to a partial one
// when no chain is given
func findToken(tokens []TokenInfo, symbol, chain string) (*TokenInfo, error) {
	symbol = strings.ToUpper(symbol)
	chain = strings.ToLower(chain)

	for i := range tokens {
		if strings.ToUpper(tokens[i].Symbol) != symbol {
			continue
		}
		if chain == "" || strings.ToLower(tokens[i].Blockchain) == chain {
			return &tokens[i], nil
		}
	}

	if chain != "" {
		return nil, fmt.Errorf("token '%s' not found on chain '%s'", symbol, chain)
	}

	for i := range tokens {
		if strings.Contains(strings.ToUpper(tokens[i].Symbol), symbol) {
			return &tokens[i], nil
		}
	}

	return nil, fmt.Errorf("token '%s' not found", symbol)
}
