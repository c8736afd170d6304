package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pulsefeed/coinpulse/internal/adapters"
	"github.com/pulsefeed/coinpulse/internal/cache"
	"github.com/pulsefeed/coinpulse/internal/config"
	"github.com/pulsefeed/coinpulse/internal/fetch"
	"github.com/pulsefeed/coinpulse/internal/httpclient"
	httpserver "github.com/pulsefeed/coinpulse/internal/interfaces/http"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

const (
	appName = "coinpulse"
	version = "v1.0.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Resilient cryptocurrency market data aggregation service",
		Version: version,
		Long: `CoinPulse aggregates crypto market prices, news, and sentiment from
free-tier HTTP APIs with health-ranked provider rotation, exponential
backoff, and short-TTL response caching, served over REST and WebSocket.`,
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults are compiled in)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the aggregation HTTP server",
		RunE:  runServe,
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Print the configured provider set and exit",
		RunE:  runProviders,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}

	rootCmd.AddCommand(serveCmd, providersCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := provider.NewRegistry(cfg.Descriptors())
	health := provider.NewHealthTracker(registry)

	store, err := buildCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	clientCfg := httpclient.DefaultConfig()
	clientCfg.MaxConcurrency = cfg.HTTPClient.MaxConcurrency
	clientCfg.RequestTimeout = time.Duration(cfg.HTTPClient.RequestTimeoutSecs) * time.Second
	clientCfg.UserAgent = cfg.HTTPClient.UserAgent
	clientCfg.RatePerSecond = cfg.HTTPClient.RatePerSecond
	clientCfg.RateBurst = cfg.HTTPClient.RateBurst
	client := httpclient.New(clientCfg)

	orchestrator := fetch.NewOrchestrator(registry, health, store)
	adapters.Register(orchestrator, client, registry)

	metrics := httpserver.NewMetricsRegistry()
	orchestrator.SetObserver(metrics)
	metrics.RegisterAvailabilityGauge(func() float64 {
		available := 0
		for _, s := range orchestrator.GetProviderStats() {
			if s.Available {
				available++
			}
		}
		return float64(available)
	})

	hub := httpserver.NewHub(orchestrator, time.Duration(cfg.Server.BroadcastIntervalSec)*time.Second)

	serverCfg := httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}
	server := httpserver.NewServer(serverCfg, orchestrator, hub, metrics, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info().
		Str("version", version).
		Int("providers", len(registry.All())).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("coinpulse started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := provider.NewRegistry(cfg.Descriptors())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.All())
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		log.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("using redis cache backend")
		return cache.NewRedisCache(cfg.Cache.Redis), nil
	case "memory", "":
		return cache.NewTTLCache(cfg.Cache.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
