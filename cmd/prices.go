package cmd

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"divvy/pkg/allocation"
	"divvy/pkg/parser"
	"divvy/pkg/portfolio"
	"divvy/pkg/price"
	"divvy/pkg/quote"
)

var (
	pricesSolver   bool
	suggestTarget  string
	suggestBalance []string
	suggestSeed    int64
)

var pricesCmd = &cobra.Command{
	Use:   "prices <symbol...>",
	Short: "Show spot USD prices",
	Long: `Show USD prices from Coinbase, falling back to CoinGecko.

With --solver the price of one unit of the configured swap input in the
configured swap output is also derived from the best solver quote.

Examples:
  divvy prices NEAR ETH
  divvy prices NEAR --solver`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPrices,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest token amounts worth a USD target",
	Long: `Suggest quantities of the held tokens whose value is within 0.01% of a
USD target. With several tokens at most a third of each balance is used so
the allowance draws from all of them.

Balances default to the portfolio holdings.

Examples:
  divvy suggest --target 200
  divvy suggest --target 50 --balance NEAR=20 --balance ETH=0.05`,
	Args: cobra.NoArgs,
	Run:  runSuggest,
}

func init() {
	rootCmd.AddCommand(pricesCmd, suggestCmd)

	pricesCmd.Flags().BoolVar(&pricesSolver, "solver", false, "Also derive a price from the best solver quote")

	suggestCmd.Flags().StringVar(&suggestTarget, "target", "", "Target value in USD (required)")
	suggestCmd.Flags().StringArrayVar(&suggestBalance, "balance", nil, "Token balance as SYMBOL=amount (repeatable)")
	suggestCmd.Flags().Int64Var(&suggestSeed, "seed", 0, "Seed for reproducible suggestions")
	_ = suggestCmd.MarkFlagRequired("target")
}

func runPrices(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	symbols := make([]string, len(args))
	for i, arg := range args {
		symbols[i] = parser.NormalizeTokenSymbol(arg)
	}

	asJSON := jsonOutput(cmd)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !asJSON {
		s.Suffix = " Fetching prices..."
		s.Start()
	}

	prices := price.DefaultFeed().USDPrices(ctx, symbols)

	var solverPrice *quote.PriceInfo
	var solverErr error
	if pricesSolver {
		req, err := a.builder.QuoteRequest("1")
		exitOnError(err)
		solverPrice, solverErr = quote.NewPricer(a.fetcher).GetPrice(ctx, req, parser.NearDecimals, 6)
	}
	if !asJSON {
		s.Stop()
	}

	if asJSON {
		output := map[string]interface{}{"usd": prices}
		if solverPrice != nil {
			output["solver"] = solverPrice
		}
		printJSON(output)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	color.Green("                  SPOT PRICES")
	fmt.Println(strings.Repeat("=", 50) + "\n")
	for _, symbol := range symbols {
		p, ok := prices[symbol]
		if !ok {
			fmt.Printf("  %-8s  %s\n", symbol, color.RedString("unavailable"))
			continue
		}
		fmt.Printf("  %-8s  %s\n", symbol, color.CyanString("$%s", strconv.FormatFloat(p, 'f', -1, 64)))
	}

	if pricesSolver {
		fmt.Println()
		if solverErr != nil {
			fmt.Printf("  Solver:   %s\n", color.RedString(solverErr.Error()))
		} else {
			fmt.Printf("  Solver:   1 %s = %s %s\n",
				color.YellowString(solverPrice.InputAsset),
				color.CyanString(solverPrice.Price),
				color.YellowString(solverPrice.OutputAsset))
		}
	}
	fmt.Println("\n" + strings.Repeat("=", 50) + "\n")
}

func runSuggest(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	_, err := loadConfig(cmd)
	exitOnError(err)

	target, err := decimal.NewFromString(suggestTarget)
	if err != nil || !target.IsPositive() {
		exitOnError(fmt.Errorf("invalid target '%s'", suggestTarget))
	}

	balances, err := parseBalances(suggestBalance)
	exitOnError(err)

	symbols := make([]string, 0, len(balances))
	for symbol := range balances {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	prices := price.DefaultFeed().USDPrices(ctx, symbols)

	opts := allocation.DefaultOptions()
	if suggestSeed != 0 {
		opts.Rand = rand.New(rand.NewSource(suggestSeed))
	}
	suggestion := allocation.Suggest(balances, target.Shift(6).IntPart(), prices, opts)

	if jsonOutput(cmd) {
		printJSON(map[string]interface{}{
			"target":     target.String(),
			"prices":     prices,
			"suggestion": suggestion,
			"usd_value":  allocation.USDValue(suggestion, prices),
		})
		return
	}

	if len(suggestion) == 0 {
		exitOnError(fmt.Errorf("no combination of %s reaches $%s", strings.Join(symbols, ", "), target))
	}

	fmt.Printf("\n  Target:  %s\n\n", color.CyanString("$%s", target))
	for _, symbol := range symbols {
		quantity, ok := suggestion[symbol]
		if !ok {
			continue
		}
		fmt.Printf("  %-8s  %s  (%s)\n", symbol,
			color.YellowString("%.8f", quantity),
			color.HiBlackString("$%.2f", quantity*prices[symbol]))
	}
	fmt.Printf("\n  Total:   %s\n\n", color.GreenString("$%.6f", allocation.USDValue(suggestion, prices)))
}

// parseBalances reads SYMBOL=amount pairs, defaulting to the portfolio
// holdings
func parseBalances(pairs []string) (map[string]float64, error) {
	balances := make(map[string]float64)
	if len(pairs) == 0 {
		for _, holding := range portfolio.Holdings() {
			amount, err := strconv.ParseFloat(holding.Balance, 64)
			if err != nil {
				return nil, err
			}
			balances[holding.Symbol] = amount
		}
		return balances, nil
	}

	for _, pair := range pairs {
		symbol, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid balance '%s'. Expected SYMBOL=amount", pair)
		}
		if err := parser.ValidateAmount(amount); err != nil {
			return nil, err
		}
		value, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return nil, err
		}
		balances[parser.NormalizeTokenSymbol(symbol)] = value
	}
	return balances, nil
}
