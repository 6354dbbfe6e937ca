package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/parser"
	"divvy/pkg/quote"
	"divvy/pkg/types"
)

var (
	quoteIn          string
	quoteOut         string
	quoteDecimalsIn  int32
	quoteDecimalsOut int32
)

var quoteCmd = &cobra.Command{
	Use:   "quote [amount]",
	Short: "Fetch solver quotes and the best offer",
	Long: `Ask the solver relay for quotes and show every candidate together with
the best one and the price it implies.

--in and --out accept asset ids (nep141:...) or token symbols. Symbols are
resolved through the 1Click token list and require a 1Click JWT.

Examples:
  divvy quote 1
  divvy quote 10 --in nep141:wrap.near --out USDC
  divvy quote 0.5 --json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteIn, "in", "", "Input asset id or symbol (default: configured swap input)")
	quoteCmd.Flags().StringVar(&quoteOut, "out", "", "Output asset id or symbol (default: configured swap output)")
	quoteCmd.Flags().Int32Var(&quoteDecimalsIn, "decimals-in", parser.NearDecimals, "Decimals of the input asset")
	quoteCmd.Flags().Int32Var(&quoteDecimalsOut, "decimals-out", 6, "Decimals of the output asset")
}

func runQuote(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	amount := "1"
	if len(args) == 1 {
		amount = args[0]
	}
	exitOnError(parser.ValidateAmount(amount))

	a, err := newApp(cmd)
	exitOnError(err)

	settings := a.builder.Settings()
	inAsset, err := a.resolveAsset(ctx, cmd, quoteIn, settings.SwapInputAsset, "decimals-in", &quoteDecimalsIn)
	exitOnError(err)
	outAsset, err := a.resolveAsset(ctx, cmd, quoteOut, settings.SwapOutputAsset, "decimals-out", &quoteDecimalsOut)
	exitOnError(err)

	exactIn, err := parser.ParseUnits(amount, quoteDecimalsIn)
	exitOnError(err)

	req := types.QuoteRequest{
		InputAsset:    inAsset,
		OutputAsset:   outAsset,
		ExactAmountIn: exactIn,
		MinDeadlineMs: settings.MinDeadline.Milliseconds(),
	}

	asJSON := jsonOutput(cmd)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !asJSON {
		s.Suffix = " Fetching quotes..."
		s.Start()
	}

	result := a.fetcher.Fetch(ctx, req)
	if !asJSON {
		s.Stop()
	}

	if asJSON {
		printJSON(result)
		if result.Best.IsZero() {
			os.Exit(1)
		}
		return
	}

	if result.Best.IsZero() {
		printError(quote.ErrNoQuote)
		os.Exit(1)
	}

	displayQuotes(result, amount)
}

// resolveAsset returns value when it is an asset id, looks it up in the
// token list when it is a symbol, and falls back to def when empty. The
// decimals flag is filled from the token list unless set explicitly.
func (a *app) resolveAsset(ctx context.Context, cmd *cobra.Command, value, def, decimalsFlag string, decimals *int32) (string, error) {
	if value == "" {
		return def, nil
	}
	if parser.IsAssetID(value) {
		if _, err := parser.ParseAssetID(value); err != nil {
			return "", err
		}
		return value, nil
	}

	oneClick, err := a.oneClick()
	if err != nil {
		return "", err
	}
	token, err := oneClick.FindTokenOnChain(ctx, parser.NormalizeTokenSymbol(value), "near")
	if err != nil {
		return "", err
	}
	if !cmd.Flags().Changed(decimalsFlag) {
		*decimals = int32(token.Decimals)
	}
	return token.AssetID, nil
}

func displayQuotes(result types.QuoteResult, amount string) {
	best := result.Best

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                           SOLVER QUOTES")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  From:       %s %s\n", amount, color.YellowString(best.InputAsset))
	fmt.Printf("  To:         %s\n", color.YellowString(best.OutputAsset))
	fmt.Printf("  Candidates: %d\n\n", len(result.Candidates))

	for _, q := range result.Candidates {
		marker := "  "
		if q.QuoteHash == best.QuoteHash {
			marker = color.GreenString("* ")
		}
		fmt.Printf("  %s%-46s  %s\n", marker, color.HiBlackString(q.QuoteHash), q.AmountOut)
	}

	if price, err := quote.ImpliedPrice(best, quoteDecimalsIn, quoteDecimalsOut); err == nil {
		fmt.Printf("\n  Best Out:   %s\n", color.CyanString(best.AmountOut))
		fmt.Printf("  Price:      %s\n", color.CyanString(price.Price))
	}
	if best.ExpirationTime != "" {
		fmt.Printf("  Expires:    %s\n", best.ExpirationTime)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
