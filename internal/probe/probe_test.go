package probe_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aiorchestrator/nanogpt-proxy/internal/probe"
	"github.com/aiorchestrator/nanogpt-proxy/internal/upstream"
)

func TestProbe(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Probe Suite")
}

var _ = Describe("Prober", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	newProber := func(srvURL string) *probe.Prober {
		resolver := upstream.NewResolver(http.DefaultClient, log, nil)
		primary := upstream.Candidate{BaseURL: srvURL, Path: "/chat/completions"}
		return probe.New(resolver, primary, "moonshotai/Kimi-K2-Instruct-0905", 2*time.Second, log)
	}

	Context("with a healthy upstream", func() {
		It("should report reachable with the upstream status and a latency", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[{"message":{"content":"Hi"}}]}`))
			}))
			defer srv.Close()

			result := newProber(srv.URL).Check(context.Background(), nil)

			Expect(result.Reachable).To(BeTrue())
			Expect(result.StatusCode).To(Equal(http.StatusOK))
			Expect(result.Latency).To(BeNumerically(">", 0))
		})

		It("should send a minimal one-token request for the default model", func() {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				json.Unmarshal(body, &got)
				w.Write([]byte(`{"choices":[{"message":{"content":"Hi"}}]}`))
			}))
			defer srv.Close()

			newProber(srv.URL).Check(context.Background(), nil)

			Expect(got["model"]).To(Equal("moonshotai/Kimi-K2-Instruct-0905"))
			Expect(got["max_tokens"]).To(BeNumerically("==", 1))
			Expect(got["messages"]).To(HaveLen(1))
		})
	})

	Context("with a failing upstream", func() {
		It("should report unreachable on a non-200 status", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			result := newProber(srv.URL).Check(context.Background(), nil)

			Expect(result.Reachable).To(BeFalse())
			Expect(result.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should report the actual status when the endpoint answers 404", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer srv.Close()

			result := newProber(srv.URL).Check(context.Background(), nil)

			Expect(result.Reachable).To(BeFalse())
			Expect(result.StatusCode).To(Equal(http.StatusNotFound))
			Expect(result.Latency).To(BeNumerically(">", 0))
		})

		It("should report unreachable when the connection is refused", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			srv.Close()

			result := newProber(srv.URL).Check(context.Background(), nil)

			Expect(result.Reachable).To(BeFalse())
			Expect(result.StatusCode).To(BeZero())
			Expect(result.Err).To(HaveOccurred())
		})
	})
})
