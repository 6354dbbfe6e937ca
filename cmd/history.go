package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/activity"
	"divvy/pkg/intent"
)

var (
	historyAction  string
	historyPending bool
	historySync    bool
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded deposits, swaps and withdrawals",
	Long: `Show the activity journal: every deposit, swap, withdraw and key
registration with its outcome.

Examples:
  divvy history
  divvy history --action swap
  divvy history --pending --sync`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyAction, "action", "", "Filter by action (deposit, swap, withdraw, register_key)")
	historyCmd.Flags().BoolVar(&historyPending, "pending", false, "Only show intents waiting for settlement")
	historyCmd.Flags().BoolVar(&historySync, "sync", false, "Check pending intents against the relay first")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show only the most recent entries (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	if historySync {
		syncPending(ctx, a)
	}

	var entries []*activity.Entry
	switch {
	case historyPending:
		entries = a.journal.Pending()
	case historyAction != "":
		entries = a.journal.ListByAction(historyAction)
	default:
		entries = a.journal.List()
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[len(entries)-historyLimit:]
	}

	if jsonOutput(cmd) {
		printJSON(entries)
		return
	}

	if len(entries) == 0 {
		color.Yellow("\nNo activity recorded yet.\n")
		return
	}

	displayHistory(entries, a.journal.GetStorage().GetFilePath())
}

// syncPending checks each pending intent once and records final outcomes
func syncPending(ctx context.Context, a *app) {
	watcher := intent.NewWatcher(a.relay, intent.DefaultWatchInterval, a.journal)
	for _, entry := range a.journal.Pending() {
		if _, err := watcher.Check(ctx, entry.IntentHash); err != nil {
			color.Red("Error checking %s: %v", entry.IntentHash, err)
		}
	}
}

func displayHistory(entries []*activity.Entry, path string) {
	var settled, failed, pending int
	for _, e := range entries {
		switch e.Status {
		case activity.StatusSettled:
			settled++
		case activity.StatusFailed:
			failed++
		default:
			pending++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 110))
	color.Green("                                        ACTIVITY HISTORY")
	fmt.Println(strings.Repeat("=", 110))

	fmt.Printf("\n  Total:      %s\n", color.CyanString("%d", len(entries)))
	fmt.Printf("  Settled:    %s\n", color.GreenString("%d", settled))
	fmt.Printf("  Submitted:  %s\n", color.YellowString("%d", pending))
	fmt.Printf("  Failed:     %s\n", color.RedString("%d", failed))
	fmt.Printf("  Journal:    %s\n\n", color.HiBlackString(path))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tAMOUNT\tACCOUNT\tSTATUS\tINTENT / TX\tERROR")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, e := range entries {
		ref := e.IntentHash
		if ref == "" {
			ref = e.TxHash
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Created.Local().Format("2006-01-02 15:04"),
			e.Action,
			e.Amount,
			truncateString(e.AccountID, 24),
			getEntryStatusColor(e.Status),
			truncateString(ref, 16),
			truncateString(e.Error, 40))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 110) + "\n")

	if pending > 0 {
		fmt.Println("Refresh pending intents with:")
		color.Cyan("  divvy history --pending --sync\n")
	}
}

func getEntryStatusColor(status activity.Status) string {
	switch status {
	case activity.StatusSettled:
		return color.GreenString(string(status))
	case activity.StatusSubmitted:
		return color.YellowString(string(status))
	case activity.StatusFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
