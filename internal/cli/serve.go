package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog web UI",
		Long: `Serve starts the two-tab web interface ("Add Book" and "View Library")
and runs until interrupted.

Example:
  shelf serve
  shelf serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.ListenAddr
			}

			svc, err := openCatalog(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("catalog ready", "db", cfg.DBPath(), "addr", addr)
			if err := web.NewServer(svc, cfg.MaxUploadBytes).Run(ctx, addr); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			slog.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config, :8080)")
	return cmd
}
