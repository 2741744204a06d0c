package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelgate/internal/breaker"
	"modelgate/internal/config"
	"modelgate/internal/httpapi"
	"modelgate/internal/lifecycle"
	"modelgate/internal/router"
	"modelgate/internal/runtime"
)

func main() {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		flags   config.Config
	)
	root := &cobra.Command{
		Use:           "modelgate",
		Short:         "Intent-routing gateway in front of a local model runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&flags.Addr, "addr", "", "HTTP listen address, e.g. :8080")
	root.PersistentFlags().StringVar(&flags.RuntimeURL, "runtime-url", "", "Base URL of the inference runtime")
	root.PersistentFlags().IntVar(&flags.RAMBudgetMB, "ram-budget-mb", 0, "RAM budget in MB across resident models (0=default)")
	root.PersistentFlags().IntVar(&flags.MaxConcurrent, "max-concurrent", 0, "Maximum non-pinned resident models (0=default)")
	root.PersistentFlags().Float64Var(&flags.RateLimitRPS, "rate-limit-rps", 0, "Routing requests per second (0=unlimited)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().BoolVar(&flags.LogJSON, "log-json", false, "Emit JSON logs instead of console output")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cfgPath, flags, cmd)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.AddCommand(serve)
	root.RunE = serve.RunE
	return root
}

// resolveConfig layers file, environment and flags, flags winning last.
func resolveConfig(path string, flags config.Config, cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)
	if flags.Addr != "" {
		cfg.Addr = flags.Addr
	}
	if flags.RuntimeURL != "" {
		cfg.RuntimeURL = flags.RuntimeURL
	}
	if flags.RAMBudgetMB > 0 {
		cfg.RAMBudgetMB = flags.RAMBudgetMB
	}
	if flags.MaxConcurrent > 0 {
		cfg.MaxConcurrent = flags.MaxConcurrent
	}
	if flags.RateLimitRPS > 0 {
		cfg.RateLimitRPS = flags.RateLimitRPS
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON = flags.LogJSON
	}
	return config.ApplyDefaults(cfg), nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w = os.Stderr
	if cfg.LogJSON {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

func run(cfg config.Config) error {
	log := newLogger(cfg)

	br := breaker.New(breaker.Config{
		FailThreshold:    cfg.BreakerFailThreshold,
		ResetTimeout:     time.Duration(cfg.BreakerResetTimeoutS) * time.Second,
		HalfOpenMaxCalls: cfg.BreakerHalfOpenMax,
	})
	rt := runtime.New(runtime.Config{
		BaseURL:        cfg.RuntimeURL,
		Breaker:        br,
		Logger:         log.With().Str("component", "runtime").Logger(),
		MaxAttempts:    cfg.RetryMaxAttempts,
		BackoffBase:    time.Duration(cfg.RetryBackoffBaseMS) * time.Millisecond,
		BackoffFactor:  cfg.RetryBackoffFactor,
		RequestTimeout: time.Duration(cfg.RequestTimeoutS) * time.Second,
		LoadTimeout:    time.Duration(cfg.LoadTimeoutS) * time.Second,
	})
	mgr := lifecycle.NewWithConfig(lifecycle.ManagerConfig{
		Catalog:       cfg.Catalog(),
		Fallbacks:     cfg.FallbackMap(),
		ModeModels:    cfg.ModeModelMap(),
		Baseline:      cfg.Baseline,
		MaxRAMMB:      cfg.RAMBudgetMB,
		MaxConcurrent: cfg.MaxConcurrent,
		EvictInterval: time.Duration(cfg.EvictIntervalS) * time.Second,
		Runtime:       rt,
		Logger:        log.With().Str("component", "lifecycle").Logger(),
		Publisher:     lifecycle.NewLogPublisher(log.With().Str("component", "events").Logger()),
	})
	rtr := router.New(router.Config{
		Lifecycle: mgr,
		Logger:    log.With().Str("component", "router").Logger(),
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	if err := mgr.Start(baseCtx); err != nil {
		log.Error().Err(err).Msg("manager start failed")
		return err
	}
	defer mgr.Stop()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)

	mux := httpapi.NewMux(&gateway{mgr: mgr, rtr: rtr, rt: rt})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("runtime", cfg.RuntimeURL).Msg("modelgate listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
