package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/thisisjab/docquery/api"
	"github.com/thisisjab/docquery/config"
	"github.com/thisisjab/docquery/storage"
	"gopkg.in/alecthomas/kingpin.v2"
)

var flagConfigPath = kingpin.Flag("config", `path to config file`).Default("./.config.yaml").String()

func main() {
	kingpin.Parse()

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*flagConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}

	components, logger, err := cfg.Parse()
	if err != nil {
		if logger != nil {
			logger.Error("cannot parse config file", "error", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "cannot parse config file: %v\n", err)
		os.Exit(1)
	}

	// Setup signal handling to catch Ctrl+C (SIGINT) or Terminate (SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal. shutting down.", "signal", sig)
		cancel()
	}()

	if err := serve(ctx, components, logger); err != nil {
		logger.Error("server error.", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped.")
}

func serve(ctx context.Context, c *config.Components, logger *slog.Logger) error {
	services := api.Services{
		Matcher: c.Matcher,
		Search:  c.Search,
	}

	if c.Storage != nil {
		if err := c.Storage.Connect(ctx); err != nil {
			return fmt.Errorf("cannot connect to storage: %w", err)
		}

		buffered, err := storage.NewBufferedStore(logger, c.Storage, c.StorageBufferSize, c.StorageFlushInterval)
		if err != nil {
			c.Storage.Close(context.WithoutCancel(ctx)) //nolint:errcheck
			return fmt.Errorf("cannot create verdict buffer: %w", err)
		}

		// The buffer outlives ctx: it is stopped only after Serve has waited
		// for in-flight requests, so their verdicts reach the last flush.
		runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			buffered.Run(runCtx)
			close(done)
		}()

		// Run flushes what is left once stopped; the connection must outlive it.
		defer func() {
			stop()
			<-done
			if err := c.Storage.Close(context.WithoutCancel(ctx)); err != nil {
				logger.Error("cannot close storage.", "error", err)
			}
		}()

		services.Recorder = buffered
		services.History = c.Storage
	}

	server, err := api.NewServer(c.API, logger, services)
	if err != nil {
		return fmt.Errorf("cannot create server: %w", err)
	}

	return server.Serve(ctx)
}
