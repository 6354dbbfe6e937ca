package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/client"
)

var (
	filterChain  string
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List tokens known to the intents network",
	Long: `List the tokens of the 1Click token registry together with their asset
ids, which can be used with divvy quote --in/--out.

Examples:
  divvy list-tokens
  divvy list-tokens --chain near
  divvy list-tokens --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by blockchain")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	apiClient, err := a.oneClick()
	exitOnError(err)

	asJSON := jsonOutput(cmd)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !asJSON {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	tokens, err := apiClient.GetSupportedTokens(ctx)
	if !asJSON {
		s.Stop()
	}
	exitOnError(err)

	filtered := filterTokens(tokens, filterChain, filterSymbol)

	if asJSON {
		printJSON(filtered)
	} else {
		displayTokens(filtered)
	}
}

func filterTokens(tokens []client.TokenInfo, chain, symbol string) []client.TokenInfo {
	filtered := make([]client.TokenInfo, 0, len(tokens))
	for _, token := range tokens {
		if chain != "" && !strings.EqualFold(token.Blockchain, chain) {
			continue
		}
		if symbol != "" && !strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(symbol)) {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

func displayTokens(tokens []client.TokenInfo) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by blockchain
	tokensByChain := make(map[string][]client.TokenInfo)
	for _, token := range tokens {
		tokensByChain[token.Blockchain] = append(tokensByChain[token.Blockchain], token)
	}

	chains := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range tokensByChain[chain] {
			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				color.HiBlackString(truncateString(token.AssetID, 64)))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
