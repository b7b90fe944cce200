package probe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aiorchestrator/nanogpt-proxy/internal/upstream"
)

// Result reports one connectivity check against the primary endpoint.
type Result struct {
	// Reachable is true when the primary endpoint answered with HTTP 200.
	Reachable bool

	// StatusCode is the upstream status, 0 when no response arrived.
	StatusCode int

	// Latency is the measured round-trip time of the check.
	Latency time.Duration

	// Err is set when the check failed at the transport level.
	Err error
}

// Prober runs minimal one-token completions to verify upstream connectivity
// without touching the main request path.
type Prober struct {
	resolver *upstream.Resolver
	primary  upstream.Candidate
	model    string
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a prober bound to a single primary candidate.
func New(resolver *upstream.Resolver, primary upstream.Candidate, model string, timeout time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		resolver: resolver,
		primary:  primary,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check sends a single-token completion to the primary candidate and reports
// whether it answered, with measured latency.
func (p *Prober) Check(ctx context.Context, header http.Header) Result {
	body, err := json.Marshal(map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "user", "content": "Hello"},
		},
		"max_tokens":  1,
		"temperature": 0,
	})
	if err != nil {
		return Result{Err: err}
	}

	start := time.Now()
	outcome, _ := p.resolver.Resolve(ctx, body, []upstream.Candidate{p.primary}, header, p.timeout)
	latency := time.Since(start)

	result := Result{
		Reachable:  outcome.Status == http.StatusOK,
		StatusCode: outcome.Status,
		Latency:    latency,
		Err:        outcome.Err,
	}

	if result.Reachable {
		p.logger.Info("Connectivity check succeeded",
			slog.String("url", p.primary.FullURL()),
			slog.Duration("latency", latency))
	} else {
		p.logger.Warn("Connectivity check failed",
			slog.String("url", p.primary.FullURL()),
			slog.Int("status", outcome.Status),
			slog.String("outcome", outcome.Kind.String()))
	}

	return result
}
