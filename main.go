package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mding5692/videre-server/config"
	"github.com/mding5692/videre-server/domain"
	"github.com/mding5692/videre-server/hub"
	"github.com/mding5692/videre-server/logging"
	"github.com/mding5692/videre-server/protocol"
	ws "github.com/mding5692/videre-server/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "videre-server",
		Short:         "WebSocket signaling relay for peer-to-peer session setup",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			closeLog, err := logging.Setup(os.Stdout, cfg.LogLevel, cfg.DebugLog)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the JSON config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	registry := hub.New()
	handler := protocol.NewHandler(registry)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: newMux(cfg, registry, handler),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting signaller", "addr", server.Addr, "tls", cfg.TLS, "prefix", cfg.Prefix)
		var err error
		if cfg.TLS {
			err = server.ListenAndServeTLS(cfg.Cert, cfg.Key)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newMux serves the signaling protocol on the whole prefix subtree, so raw
// websocket clients dialing <prefix>/websocket land on the same handler.
func newMux(cfg config.Config, registry domain.Registry, handler domain.MessageHandler) *http.ServeMux {
	mux := http.NewServeMux()
	signaling := ws.NewHandler(handler, cfg.AllowedOrigins)
	base := strings.TrimSuffix(cfg.Prefix, "/")
	if base != "" {
		mux.HandleFunc(base, signaling)
	}
	mux.HandleFunc(base+"/", signaling)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := registry.Stats()
		writeJSON(w, map[string]int{"rooms": rooms, "clients": clients})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
