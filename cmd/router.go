package main

import (
	"net/http"

	"github.com/aiorchestrator/nanogpt-proxy/internal/handler"
	"github.com/aiorchestrator/nanogpt-proxy/internal/metrics"
)

func setupRouter(proxyHandler *handler.ProxyHandler, metricsCollector *metrics.Collector) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", proxyHandler.Health)
	mux.HandleFunc("/status", proxyHandler.Status)
	mux.HandleFunc("/v1/chat/completions", proxyHandler.ChatCompletions)
	mux.HandleFunc("/metrics", metricsCollector.Handler())

	return handler.CORS(handler.RequestID(mux))
}
