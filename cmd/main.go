package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiorchestrator/nanogpt-proxy/config"
	"github.com/aiorchestrator/nanogpt-proxy/internal/handler"
	"github.com/aiorchestrator/nanogpt-proxy/internal/httpserver"
	"github.com/aiorchestrator/nanogpt-proxy/internal/metrics"
	"github.com/aiorchestrator/nanogpt-proxy/internal/probe"
	"github.com/aiorchestrator/nanogpt-proxy/internal/upstream"
	"github.com/aiorchestrator/nanogpt-proxy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	requestTimeout, err := time.ParseDuration(cfg.Upstream.RequestTimeout)
	if err != nil {
		log.Error("Invalid request timeout", slog.Any("err", err))
		os.Exit(1)
	}

	probeTimeout, err := time.ParseDuration(cfg.Upstream.ProbeTimeout)
	if err != nil {
		log.Error("Invalid probe timeout", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.Upstream.InsecureSkipVerify {
		log.Warn("Upstream certificate verification is disabled")
	}

	collector := metrics.NewCollector(1000, log)
	collector.Start(ctx)

	client := upstream.NewHTTPClient(cfg.Upstream.InsecureSkipVerify)
	resolver := upstream.NewResolver(client, log, collector)

	candidates := buildCandidates(cfg)
	primary := upstream.Candidate{
		BaseURL: cfg.Upstream.BaseURL,
		Path:    upstream.CompletionPath(cfg.Upstream.BaseURL),
	}

	prober := probe.New(resolver, primary, cfg.Upstream.DefaultModel, probeTimeout, log)

	proxyHandler := handler.NewProxyHandler(log, resolver, prober, collector, handler.Options{
		Candidates:        candidates,
		APIKey:            cfg.Upstream.APIKey,
		DefaultModel:      cfg.Upstream.DefaultModel,
		RequestTimeout:    requestTimeout,
		SizeWarnThreshold: cfg.Limits.SizeWarningThreshold,
	})

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(proxyHandler, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting NanoGPT proxy",
		slog.String("address", cfg.Server.Address),
		slog.String("target", cfg.Upstream.BaseURL),
		slog.Int("candidates", len(candidates)))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// buildCandidates turns the configured fallback list into the ordered
// candidate list, falling back to the built-in NanoGPT endpoints when none
// are configured. Fallbacks without an explicit path get the path matching
// their base URL format.
func buildCandidates(cfg *config.Config) []upstream.Candidate {
	if len(cfg.Upstream.Fallbacks) == 0 {
		return upstream.DefaultCandidates()
	}

	candidates := make([]upstream.Candidate, 0, len(cfg.Upstream.Fallbacks))

	for _, fallback := range cfg.Upstream.Fallbacks {
		path := fallback.Path
		if path == "" {
			path = upstream.CompletionPath(fallback.BaseURL)
		}

		candidates = append(candidates, upstream.Candidate{
			BaseURL: fallback.BaseURL,
			Path:    path,
		})
	}

	return candidates
}
