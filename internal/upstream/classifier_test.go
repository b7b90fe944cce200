package upstream_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aiorchestrator/nanogpt-proxy/internal/upstream"
)

var _ = Describe("Classify", func() {
	validBody := []byte(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"}}]}`)

	Describe("status 200", func() {
		It("should classify a valid completion as success", func() {
			outcome := upstream.Classify(200, validBody)

			Expect(outcome.Kind).To(Equal(upstream.KindSuccess))
			Expect(outcome.Payload).To(Equal(validBody))
		})

		It("should keep the payload verbatim", func() {
			body := []byte(`{"choices":[{"message":{"content":"x"}}],"usage":{"total_tokens":3},"extra":"kept"}`)
			outcome := upstream.Classify(200, body)

			Expect(outcome.Kind).To(Equal(upstream.KindSuccess))
			Expect(string(outcome.Payload)).To(Equal(string(body)))
		})

		It("should derive the first choice's content length", func() {
			outcome := upstream.Classify(200, validBody)

			Expect(outcome.ContentChars).To(Equal(len("hello there")))
		})

		It("should classify invalid JSON as malformed", func() {
			outcome := upstream.Classify(200, []byte("not json at all"))

			Expect(outcome.Kind).To(Equal(upstream.KindMalformedResponse))
		})

		It("should classify a missing choices field as malformed", func() {
			outcome := upstream.Classify(200, []byte(`{"id":"cmpl-1"}`))

			Expect(outcome.Kind).To(Equal(upstream.KindMalformedResponse))
		})

		It("should classify an empty choices list as malformed, not success", func() {
			outcome := upstream.Classify(200, []byte(`{"choices":[]}`))

			Expect(outcome.Kind).To(Equal(upstream.KindMalformedResponse))
		})
	})

	Describe("auth and rate-limit statuses", func() {
		It("should classify 401 as auth failure", func() {
			outcome := upstream.Classify(401, []byte(`{"error":"bad key"}`))

			Expect(outcome.Kind).To(Equal(upstream.KindAuthFailure))
			Expect(outcome.Status).To(Equal(401))
		})

		It("should classify 429 as rate limited", func() {
			outcome := upstream.Classify(429, []byte(`{"error":"slow down"}`))

			Expect(outcome.Kind).To(Equal(upstream.KindRateLimited))
			Expect(outcome.Status).To(Equal(429))
		})
	})

	Describe("every other status", func() {
		It("should classify each remaining status deterministically", func() {
			for _, status := range []int{403, 418, 500, 503} {
				outcome := upstream.Classify(status, []byte("upstream said no"))

				Expect(outcome.Kind).To(Equal(upstream.KindUpstreamError))
				Expect(outcome.Status).To(Equal(status))
				Expect(outcome.Message).To(Equal("upstream said no"))
			}
		})

		It("should truncate long error bodies to the limit", func() {
			long := strings.Repeat("x", 5000)
			outcome := upstream.Classify(500, []byte(long))

			Expect(outcome.Message).To(HaveLen(upstream.ErrorBodyLimit))
		})

		It("should truncate by characters, not bytes", func() {
			long := strings.Repeat("é", 5000)
			outcome := upstream.Classify(500, []byte(long))

			Expect(utf8.RuneCountInString(outcome.Message)).To(Equal(upstream.ErrorBodyLimit))
			Expect(utf8.ValidString(outcome.Message)).To(BeTrue())
		})

		It("should leave short error bodies untouched", func() {
			outcome := upstream.Classify(500, []byte("short"))

			Expect(outcome.Message).To(Equal("short"))
		})
	})
})
