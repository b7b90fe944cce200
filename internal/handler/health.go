package handler

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	Configured bool   `json:"nanogpt_configured"`
	Timestamp  string `json:"timestamp"`
}

type statusResponse struct {
	ProxyStatus      string   `json:"proxy_status"`
	Connectivity     string   `json:"nanogpt_connectivity"`
	StatusCode       *int     `json:"nanogpt_status_code,omitempty"`
	ResponseTime     *float64 `json:"response_time_seconds,omitempty"`
	Error            string   `json:"error,omitempty"`
	APIKeyConfigured bool     `json:"api_key_configured"`
	Timestamp        string   `json:"timestamp"`
}

// Health reports process liveness. It always succeeds while the process is
// alive.
func (h *ProxyHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		Service:    serviceName,
		Version:    version,
		Configured: h.opts.APIKey != "",
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

// Status runs the diagnostic probe against the primary endpoint and reports
// connectivity in the body. The HTTP status is always 200; failures never
// propagate to the caller.
func (h *ProxyHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := h.prober.Check(r.Context(), h.upstreamHeader())

	resp := statusResponse{
		ProxyStatus:      "operational",
		Connectivity:     "failed",
		APIKeyConfigured: h.opts.APIKey != "",
		Timestamp:        time.Now().Format(time.RFC3339),
	}

	if result.Reachable {
		resp.Connectivity = "success"
	}

	if result.StatusCode > 0 {
		code := result.StatusCode
		seconds := result.Latency.Seconds()
		resp.StatusCode = &code
		resp.ResponseTime = &seconds
	}

	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	h.writeJSON(w, http.StatusOK, resp)
}
