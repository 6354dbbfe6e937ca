package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/config"
	"divvy/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "divvy",
	Short: "Portfolio allowances and NEAR intents from the command line",
	Long: `divvy signs and publishes NEAR intents (deposit, swap, withdraw) through
the solver relay and serves the Divvy assistant tools.

Examples:
  divvy login --account alice.near --private-key ed25519:...
  divvy quote 1
  divvy swap 1
  divvy status <intent-hash> --watch
  divvy serve`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	defer logger.Sync() //nolint:errcheck
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// loadConfig reads the configuration and sets up logging for cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if err := logger.Init(cfg.Stage, level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// commandContext is cancelled on SIGINT or SIGTERM
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func jsonOutput(cmd *cobra.Command) bool {
	j, _ := cmd.Flags().GetBool("json")
	return j
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func printError(err error) {
	fmt.Printf("\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}

// exitOnError prints err and exits with status 1
func exitOnError(err error) {
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}
