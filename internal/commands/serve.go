package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/handler"
)

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			if port == "" {
				port = r.cfg.Server.Port
			}
			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           handler.NewRouter(r.svc, r.metrics, r.logger),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				r.logger.Info("server starting",
					zap.String("port", port),
					zap.String("repo", r.root),
					zap.Bool("auto_commit", r.git != nil),
				)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			r.logger.Info("server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			r.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default from acctree.yaml)")

	return cmd
}
