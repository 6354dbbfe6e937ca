package api

import (
	"strings"

	"divvy/pkg/portfolio"

	"github.com/gin-gonic/gin"
)

const (
	assistantName        = "Divvy"
	assistantDescription = "Divvy is an AI agent that helps users automatically secure profits by converting crypto gains into stablecoins based on portfolio growth targets. It monitors your portfolio value and executes trades when conditions are met."
)

// AssistantInstructions tells the assistant how to use the tools
const AssistantInstructions = `Divvy helps users set up and monitor automated profit-taking through portfolio allowances. Here are the key functions:

1. Portfolio Monitoring: Check current balances and USD values of supported tokens using /get-balance. Use charts to visualize portfolio growth over time.

2. Allowance Setup: Help users create allowances with clear parameters:
   - Target growth rate (e.g., "Convert when portfolio grows 20%")
   - Allowance amount (e.g., "$200 in USDC")
   - Frequency (e.g., "every two weeks")
   
3. Allowance Management: Users can remove their current allowance setup if needed.

When users inquire about their portfolio or allowances:
- Show current portfolio value and recent growth trends using charts
- Explain allowance settings in clear terms
- Confirm actions before executing transactions
- Provide status updates on existing allowances

Remember: Focus on helping users understand their portfolio growth and automate profit-taking. Don't provide financial advice - stick to executing user-defined strategies.`

func stringSchema() gin.H {
	return gin.H{"type": "string"}
}

// Manifest builds the OpenAPI plugin document advertised to the assistant
// runtime.
func Manifest(pluginURL, accountID string) gin.H {
	pluginURL = strings.TrimRight(pluginURL, "/")

	return gin.H{
		"openapi": "3.0.0",
		"info": gin.H{
			"title":       "DivvyWealth",
			"description": "...",
			"version":     "1.0.0",
		},
		"servers": []gin.H{
			{"url": pluginURL},
		},
		"x-mb": gin.H{
			"account-id": accountID,
			"assistant": gin.H{
				"name":         assistantName,
				"description":  assistantDescription,
				"image":        pluginURL + "/icon.svg",
				"instructions": AssistantInstructions,
				"tools": []gin.H{
					{"type": "render-chart"},
					{"type": "generate-transaction"},
				},
			},
		},
		"paths": gin.H{
			"/api/tools/get-balance": gin.H{
				"get": gin.H{
					"summary":     "Get portfolio balance",
					"description": "Returns current balance of supported tokens and their USD value",
					"operationId": "getBalance",
					"responses": gin.H{
						"200": gin.H{
							"description": "Successful response",
							"content": gin.H{
								"application/json": gin.H{
									"schema": gin.H{
										"type": "object",
										"properties": gin.H{
											"tokens": gin.H{
												"type": "array",
												"items": gin.H{
													"type": "object",
													"properties": gin.H{
														"symbol":   stringSchema(),
														"balance":  stringSchema(),
														"usdValue": stringSchema(),
													},
												},
											},
											"totalUsdValue": stringSchema(),
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/tools/create-allowance": gin.H{
				"post": gin.H{
					"summary":     "Create new allowance",
					"description": "Setup a new recurring allowance with target growth rate",
					"operationId": "createAllowance",
					"requestBody": gin.H{
						"required": true,
						"content": gin.H{
							"application/json": gin.H{
								"schema": gin.H{
									"type": "object",
									"properties": gin.H{
										"targetGrowthRate": stringSchema(),
										"allowanceAmount":  stringSchema(),
										"frequency":        stringSchema(),
										"stablecoin":       gin.H{"type": "string", "enum": portfolio.Stablecoins},
									},
									"required": []string{"targetGrowthRate", "allowanceAmount", "frequency", "stablecoin"},
								},
							},
						},
					},
					"responses": gin.H{
						"200": gin.H{"description": "Allowance created successfully"},
					},
				},
			},
			"/api/tools/remove-allowance": gin.H{
				"post": gin.H{
					"summary":     "Remove allowance",
					"description": "Remove an existing allowance configuration",
					"operationId": "removeAllowance",
					"responses": gin.H{
						"200": gin.H{"description": "Allowance removed successfully"},
					},
				},
			},
		},
	}
}
