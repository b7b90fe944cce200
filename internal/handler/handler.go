package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aiorchestrator/nanogpt-proxy/internal/metrics"
	"github.com/aiorchestrator/nanogpt-proxy/internal/probe"
	"github.com/aiorchestrator/nanogpt-proxy/internal/upstream"
)

const (
	serviceName = "nanogpt-proxy"
	version     = "1.0"
	userAgent   = "AI-Project-Orchestrator-Proxy/" + version
)

// Options carries the static configuration the handler needs. All fields are
// read-only after construction.
type Options struct {
	Candidates        []upstream.Candidate
	APIKey            string
	DefaultModel      string
	RequestTimeout    time.Duration
	SizeWarnThreshold int
}

// ProxyHandler serves the completion, health, and status endpoints.
type ProxyHandler struct {
	logger           *slog.Logger
	resolver         *upstream.Resolver
	prober           *probe.Prober
	metricsCollector *metrics.Collector
	opts             Options
}

func NewProxyHandler(logger *slog.Logger, resolver *upstream.Resolver, prober *probe.Prober, collector *metrics.Collector, opts Options) *ProxyHandler {
	return &ProxyHandler{
		logger:           logger,
		resolver:         resolver,
		prober:           prober,
		metricsCollector: collector,
		opts:             opts,
	}
}

// ChatCompletions validates the inbound request, resolves an upstream
// endpoint, and relays the classified result.
func (h *ProxyHandler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	h.emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Timestamp: start})

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "No JSON data provided")
		return
	}

	rawMessages, present := payload["messages"]
	messages, isList := rawMessages.([]any)
	if !present || !isList || len(messages) == 0 {
		h.writeError(w, http.StatusBadRequest, "missing_field", "Missing required field: messages")
		return
	}

	if _, ok := payload["model"]; !ok {
		payload["model"] = h.opts.DefaultModel
	}

	// Streaming responses are not relayed.
	payload["stream"] = false

	body, err := json.Marshal(payload)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	h.logger.Info("Incoming completion request",
		slog.String("request_id", RequestIDFrom(r.Context())),
		slog.String("from", extractClientIP(r)),
		slog.Any("model", payload["model"]),
		slog.Int("size_chars", len(body)))

	if h.opts.SizeWarnThreshold > 0 && len(body) > h.opts.SizeWarnThreshold {
		h.logger.Warn("Large request detected, may take longer to process",
			slog.Int("size_chars", len(body)),
			slog.Int("threshold", h.opts.SizeWarnThreshold))
	}

	outcome, used := h.resolver.Resolve(r.Context(), body, h.opts.Candidates, h.upstreamHeader(), h.opts.RequestTimeout)

	h.emit(metrics.MetricEvent{
		Type:      metrics.EventOutcomeRecorded,
		Timestamp: time.Now(),
		Outcome:   outcome.Kind.String(),
	})

	h.respond(w, outcome, used, time.Since(start))
}

func (h *ProxyHandler) respond(w http.ResponseWriter, outcome upstream.Outcome, used *upstream.Candidate, elapsed time.Duration) {
	switch outcome.Kind {
	case upstream.KindSuccess:
		h.logger.Info("Successful completion",
			slog.String("endpoint", used.FullURL()),
			slog.Int("content_chars", outcome.ContentChars),
			slog.Duration("elapsed", elapsed))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(outcome.Payload)

	case upstream.KindAuthFailure:
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", "Invalid or expired NanoGPT API key")

	case upstream.KindRateLimited:
		h.writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests to NanoGPT API")

	case upstream.KindNoWorkingEndpoint:
		h.writeError(w, http.StatusBadGateway, "no_working_endpoint",
			"Unable to find a working API endpoint. The NanoGPT service may be down or the API format has changed.")

	case upstream.KindMalformedResponse:
		h.writeError(w, http.StatusBadGateway, "invalid_response", "NanoGPT returned an invalid completion payload")

	case upstream.KindTimeout:
		h.writeError(w, http.StatusGatewayTimeout, "request_timeout", "NanoGPT API did not respond within the configured timeout")

	case upstream.KindConnectionError:
		h.writeError(w, http.StatusServiceUnavailable, "connection_error", "Unable to connect to NanoGPT API")

	case upstream.KindUpstreamError:
		h.writeError(w, outcome.Status, "upstream_error", outcome.Message)

	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func (h *ProxyHandler) upstreamHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+h.opts.APIKey)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "text/event-stream")
	header.Set("User-Agent", userAgent)
	return header
}

func (h *ProxyHandler) writeError(w http.ResponseWriter, status int, tag, message string) {
	h.writeJSON(w, status, map[string]string{
		"error":   tag,
		"message": message,
	})
}

func (h *ProxyHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *ProxyHandler) emit(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}
	h.metricsCollector.Emit(event)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
