package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web form and JSON API",
	Long: `Serve a browser form for pasting error logs, a JSON API at /api/debug,
a health check at /api/health and Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		o, closeStore, err := buildOrchestrator(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		cmd.Printf("Listening on %s\n", addr)
		return web.NewServer(o, addr, logger).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
}
