package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/padsync/padsync/internal/config"
	"github.com/padsync/padsync/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the relay server.

Configuration is read from padsync.json in the working directory if it
exists; flags override the file.

Examples:
  padsync serve
  padsync serve --addr=:9000
  padsync serve --config=/etc/padsync/padsync.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, configPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from padsync.json)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runServe(addr, configPath string, verbose bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Keep the /health version in step with the binary's.
	server.Version = version

	srv := server.New(&server.Config{
		Addr:           cfg.Addr,
		BaseURL:        cfg.BaseURL,
		WSBaseURL:      cfg.WSBaseURL,
		AllowedOrigins: cfg.AllowedOrigins,
		ReadTimeout:    time.Duration(cfg.Timeouts.ReadSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.Timeouts.WriteSeconds) * time.Second,
		HistoryCap:     cfg.History.Cap,
		HistoryRetain:  cfg.History.Retain,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
