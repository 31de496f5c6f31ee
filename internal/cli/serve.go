package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsewatch/pulsewatch/internal/api"
	"github.com/pulsewatch/pulsewatch/internal/config"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// apiPrefix is where the REST surface is mounted.
const apiPrefix = "api/v1"

// newServeCmd creates the "serve" subcommand running the HTTP server.
func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sentiment analysis HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return err
			}
			if addr != "" {
				// --addr wins over config and environment.
				cfg.Server.Host, cfg.Server.Port = splitAddr(addr, cfg.Server.Port)
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			api.NewServer(eng, config.ComponentLogger("api")).RegisterHTTPHandlers(apiPrefix, mux)

			srv := &http.Server{
				Addr:              cfg.Server.Addr(),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port), overrides config")
	return cmd
}

// splitAddr parses host:port, keeping the previous port when addr has none.
func splitAddr(addr string, fallbackPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, fallbackPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, fallbackPort
	}
	return host, port
}
