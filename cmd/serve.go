// File: cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/api"
	"github.com/asolfandco/dispatcher/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP dispatch server.",
	Long: `Starts the HTTP server exposing /send, /send_all, /open_whatsapp and
/health, backed by a single driven browser session against WhatsApp Web.
The first send on a fresh profile requires scanning the QR code in the
server's browser window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		defer observability.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(loadedConfig, logger)
		if err := server.Run(ctx); err != nil {
			logger.Error("Server exited with error.", zap.Error(err))
			return err
		}
		logger.Info("Server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
