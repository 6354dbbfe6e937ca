package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/intent"
	"divvy/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <intent-hash>",
	Short: "Check the status of a published intent",
	Long: `Check the relay status of an intent by its hash.

With --watch the relay is polled until the intent settles or is rejected,
and the activity journal is updated with the outcome.

Examples:
  divvy status 5Gk...x2
  divvy status 5Gk...x2 --watch
  divvy status 5Gk...x2 --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the intent is final")
	statusCmd.Flags().IntVar(&watchInterval, "interval", int(intent.DefaultWatchInterval/time.Second), "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	intentHash := args[0]
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	if watchStatus {
		watchIntentStatus(ctx, a, intentHash, jsonOutput(cmd))
	} else {
		checkIntentStatus(ctx, a, intentHash, jsonOutput(cmd))
	}
}

func checkIntentStatus(ctx context.Context, a *app, intentHash string, asJSON bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !asJSON {
		s.Suffix = " Checking intent status..."
		s.Start()
	}

	status, err := a.relay.GetStatus(ctx, intentHash)
	if !asJSON {
		s.Stop()
	}
	exitOnError(err)

	if asJSON {
		printJSON(status)
	} else {
		displayStatus(status, intentHash)
	}
}

func watchIntentStatus(ctx context.Context, a *app, intentHash string, asJSON bool) {
	if !asJSON {
		fmt.Printf("\nWatching intent status (Intent Hash: %s)\n", color.CyanString(intentHash))
		fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)
	}

	watcher := intent.NewWatcher(a.relay, time.Duration(watchInterval)*time.Second, a.journal)

	final, err := watcher.Wait(ctx, intentHash, func(status *types.IntentStatus) {
		if !asJSON {
			displayStatus(status, intentHash)
		}
	})
	if errors.Is(err, context.Canceled) {
		color.Yellow("\nStopped watching.\n")
		return
	}
	exitOnError(err)

	if asJSON {
		printJSON(final)
	}
	if final.Status != "SETTLED" {
		os.Exit(1)
	}
}

func displayStatus(status *types.IntentStatus, intentHash string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        INTENT STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Intent Hash:  %s\n", color.CyanString(intentHash))
	fmt.Printf("  Status:       %s\n", getColoredStatus(status.Status))
	if status.Data.Hash != "" {
		fmt.Printf("  Tx Hash:      %s\n", color.HiBlackString(status.Data.Hash))
	}
	fmt.Printf("  Checked:      %s\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SETTLED":
		return color.GreenString(status)
	case "PENDING", "TX_BROADCASTED":
		return color.YellowString(status)
	case "NOT_FOUND_OR_NOT_VALID":
		return color.RedString(status)
	default:
		return status
	}
}
