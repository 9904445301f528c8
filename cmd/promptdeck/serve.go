package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/config"
	"github.com/mlorentedev/promptdeck/internal/logger"
	"github.com/mlorentedev/promptdeck/internal/server"
	"github.com/mlorentedev/promptdeck/internal/store"
)

type serveOptions struct {
	configPath string
	mock       bool
	mockDelay  time.Duration
	port       int
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:           "promptdeck",
		Short:         "Prompt playground for Bedrock-hosted models",
		Long:          "Serve a web form that sends prompts to Bedrock foundation models and keeps a history of every invocation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	f.BoolVar(&opts.mock, "mock", false, "answer with the in-process mock runtime instead of Bedrock")
	f.DurationVar(&opts.mockDelay, "mock-delay", 0, "artificial latency for the mock runtime")
	f.IntVar(&opts.port, "port", 0, "override listen port")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if opts.port > 0 {
		cfg.Port = opts.port
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer l.Sync() //nolint:errcheck

	reg, err := adapter.NewRegistry(cfg.Models)
	if err != nil {
		return fmt.Errorf("models: %w", err)
	}

	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		return fmt.Errorf("aws: %w", err)
	}

	rt := buildRuntime(awsCfg, cfg, opts, reg, l)

	records, err := store.Open(store.Options{
		Driver:    cfg.Store.Driver,
		Table:     cfg.Store.Table,
		Path:      cfg.Store.Path,
		RedisAddr: cfg.Store.RedisAddr,
		Endpoint:  cfg.Store.Endpoint,
		AWS:       awsCfg,
	}, l)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer records.Close()
	l.Info("store ready", zap.String("driver", cfg.Store.Driver), zap.String("table", cfg.Store.Table))

	h := server.NewRouter(server.Deps{
		Models:       &adapter.Factory{Runtime: rt, Registry: reg, MaxTokens: cfg.MaxTokens, Logger: l},
		Records:      records,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       l,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		l.Info("promptdeck listening", zap.String("addr", addr), zap.Int("models", len(reg.Models())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	l.Info("server stopped")
	return nil
}

func buildRuntime(awsCfg aws.Config, cfg config.Config, opts *serveOptions, reg *adapter.Registry, l *zap.Logger) adapter.Runtime {
	if opts.mock {
		l.Info("mode: mock runtime enabled", zap.Duration("delay", opts.mockDelay))
		return &adapter.MockRuntime{Registry: reg, Delay: opts.mockDelay}
	}
	l.Info("mode: bedrock", zap.String("region", cfg.Region), zap.String("endpoint", cfg.Endpoint))
	return adapter.NewBedrockRuntime(awsCfg, cfg.Endpoint)
}
