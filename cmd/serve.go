package cmd

import (
	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"divvy/config"
	"divvy/pkg/api"
	"divvy/pkg/logger"
	"divvy/pkg/mcptools"
	"divvy/pkg/portfolio"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant tools and plugin manifest",
	Long: `Start the HTTP server exposing the portfolio tools, the plugin manifest
and the same tools over MCP at /mcp.

Examples:
  divvy serve
  divvy serve --addr :8080`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server_addr)")
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	if a.cfg.Stage == logger.ProdStage {
		gin.SetMode(gin.ReleaseMode)
	}

	// Follow logins and logouts made from other terminals
	unsubscribe := a.session.Subscribe(func(accountID string) {
		logger.Info("Active account changed", zap.String("account", accountID))
	})
	defer unsubscribe()
	config.Watch(func(accountID string) {
		if accountID != a.session.AccountID() {
			a.session.Refresh()
		}
	})

	mock := portfolio.New(a.cfg.MockSeed)
	tools := mcptools.New(mock, logger.Log)
	server := api.New(mock, api.Options{
		PluginURL:   a.cfg.PluginURL,
		AccountID:   a.cfg.PluginAccountID,
		CORSOrigins: a.cfg.CORSOrigins,
		MCP:         tools.Handler(),
		Logger:      logger.Log,
	})

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.ServerAddr
	}

	color.Green("\nDivvy tools listening on %s", addr)
	color.Cyan("  Manifest:  %s/.well-known/ai-plugin.json", a.cfg.PluginURL)
	color.Cyan("  MCP:       %s/mcp", a.cfg.PluginURL)
	color.Yellow("  Press Ctrl+C to stop\n")

	exitOnError(server.ListenAndServe(ctx, addr))
	color.Green("\n✓ Server stopped.\n")
}
