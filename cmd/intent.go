package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/intent"
)

var noConfirm bool

var depositCmd = &cobra.Command{
	Use:   "deposit <amount-near>",
	Short: "Wrap NEAR and deposit it into the intents contract",
	Long: `Wrap NEAR into wNEAR and transfer it to the verifying contract in one
transaction signed by the active account.

Examples:
  divvy deposit 1
  divvy deposit 0.25 --yes`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIntent(cmd, "deposit", args[0], "NEAR", (*intent.Service).Deposit)
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap <amount-near>",
	Short: "Swap wNEAR for the configured output asset",
	Long: `Fetch solver quotes for the amount, pick the best one, sign a token_diff
intent that pays the referral fee and publish it to the relay.

Examples:
  divvy swap 1
  divvy swap 2.5 --yes --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIntent(cmd, "swap", args[0], "NEAR", (*intent.Service).Swap)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Withdraw the configured token from the intents contract",
	Long: `Sign and publish a withdraw intent for the configured token. The amount
is given in the token's smallest unit.

Examples:
  divvy withdraw 1000000`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIntent(cmd, "withdraw", args[0], "", (*intent.Service).Withdraw)
	},
}

func init() {
	for _, c := range []*cobra.Command{depositCmd, swapCmd, withdrawCmd} {
		c.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
		rootCmd.AddCommand(c)
	}
}

type intentOp func(*intent.Service, context.Context, string) intent.Result

func runIntent(cmd *cobra.Command, action, amount, unit string, op intentOp) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	asJSON := jsonOutput(cmd)
	if !asJSON {
		account := a.session.AccountID()
		if account == "" {
			account = color.RedString("(not signed in)")
		}
		fmt.Printf("\n  Action:   %s\n", color.CyanString(action))
		fmt.Printf("  Amount:   %s %s\n", color.YellowString(amount), unit)
		fmt.Printf("  Account:  %s\n", account)

		if !noConfirm && !confirm(fmt.Sprintf("Proceed with %s?", action)) {
			fmt.Printf("\n%s%s cancelled.\n", strings.ToUpper(action[:1]), action[1:])
			return
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !asJSON {
		s.Suffix = fmt.Sprintf(" Submitting %s...", action)
		s.Start()
	}

	result := op(a.intents, ctx, amount)
	if !asJSON {
		s.Stop()
	}

	if asJSON {
		printJSON(result)
		if result.Failed() {
			os.Exit(1)
		}
		return
	}

	displayResult(result)
	if result.Failed() {
		os.Exit(1)
	}
}

func displayResult(result intent.Result) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if result.Failed() {
		color.Red("                  %s FAILED", strings.ToUpper(result.Action))
	} else {
		color.Green("                  %s SUBMITTED", strings.ToUpper(result.Action))
	}
	fmt.Println(strings.Repeat("=", 60))

	if result.Failed() {
		fmt.Printf("\n  Error: %s\n", color.RedString(result.Error))
	} else {
		if hash := result.IntentHash(); hash != "" {
			fmt.Printf("\n  Intent Hash: %s\n", color.CyanString(hash))
			fmt.Println("\nYou can monitor the intent using:")
			color.Cyan("  divvy status %s --watch", hash)
		}
		fmt.Printf("\n  Response: %s\n", color.HiBlackString(string(result.Response)))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
