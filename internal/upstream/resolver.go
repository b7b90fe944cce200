package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AttemptObserver receives one record per candidate attempt. Implementations
// must not block; the resolver's return contract does not depend on them.
type AttemptObserver interface {
	ObserveAttempt(url string, status int, elapsed time.Duration, err error)
}

// Resolver tries candidate endpoints in priority order until one answers
// authoritatively.
type Resolver struct {
	client   Doer
	logger   *slog.Logger
	observer AttemptObserver
}

// NewResolver creates a resolver using the given client. The observer may be
// nil.
func NewResolver(client Doer, logger *slog.Logger, observer AttemptObserver) *Resolver {
	return &Resolver{
		client:   client,
		logger:   logger,
		observer: observer,
	}
}

// Resolve posts the serialized request body to each candidate in order. A
// transport failure or a 404/405 falls through to the next candidate; any
// other status is authoritative and its classified outcome is returned along
// with the candidate that produced it. When every candidate falls through,
// the final candidate's transport failure (if any) decides between timeout
// and connection outcomes; otherwise the result is KindNoWorkingEndpoint.
func (r *Resolver) Resolve(ctx context.Context, body []byte, candidates []Candidate, header http.Header, timeout time.Duration) (Outcome, *Candidate) {
	var (
		lastTransport *Outcome
		lastStatus    int
	)

	for i := range candidates {
		candidate := candidates[i]
		fullURL := candidate.FullURL()

		start := time.Now()
		status, respBody, err := r.attempt(ctx, fullURL, body, header, timeout)
		elapsed := time.Since(start)

		if r.observer != nil {
			r.observer.ObserveAttempt(fullURL, status, elapsed, err)
		}

		if err != nil {
			outcome := classifyTransportError(err)
			lastTransport = &outcome
			r.logger.Error("Upstream attempt failed",
				slog.String("url", fullURL),
				slog.String("error", err.Error()))
			continue
		}

		if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
			lastTransport = nil
			lastStatus = status
			r.logger.Warn("Candidate endpoint not available, trying next",
				slog.String("url", fullURL),
				slog.Int("status", status))
			continue
		}

		r.logger.Info("Candidate endpoint answered",
			slog.String("url", fullURL),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed))

		return Classify(status, respBody), &candidate
	}

	if lastTransport != nil {
		return *lastTransport, nil
	}

	r.logger.Error("All candidate endpoints exhausted")
	// Status keeps the final 404/405 so diagnostics can report what the
	// endpoint actually said.
	return Outcome{Kind: KindNoWorkingEndpoint, Status: lastStatus}, nil
}

func (r *Resolver) attempt(ctx context.Context, url string, body []byte, header http.Header, timeout time.Duration) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, respBody, nil
}

func classifyTransportError(err error) Outcome {
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Kind: KindTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return Outcome{Kind: KindTimeout, Err: err}
	default:
		return Outcome{Kind: KindConnectionError, Err: err}
	}
}
