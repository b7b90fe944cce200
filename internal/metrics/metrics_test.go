package metrics_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aiorchestrator/nanogpt-proxy/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
		})
	})

	Describe("IncrementRequests", func() {
		It("should count inbound requests", func() {
			m.IncrementRequests()
			m.IncrementRequests()

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(2)))
		})
	})

	Describe("RecordAttempt", func() {
		It("should record attempt time and status code", func() {
			m.RecordAttempt(endpointURL, 100*time.Millisecond, 200, false)
			m.RecordAttempt(endpointURL, 200*time.Millisecond, 200, false)

			snap := m.Snapshot()
			endpoint := snap.Endpoints[endpointURL]

			Expect(endpoint.Attempts).To(Equal(int64(2)))
			Expect(endpoint.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(endpoint.StatusCodes[200]).To(Equal(int64(2)))
		})

		It("should track candidate endpoints separately", func() {
			m.RecordAttempt("https://api.nanogpt.com/v1/chat/completions", 100*time.Millisecond, 404, false)
			m.RecordAttempt(endpointURL, 150*time.Millisecond, 200, false)

			snap := m.Snapshot()
			Expect(snap.Endpoints).To(HaveLen(2))
			Expect(snap.Endpoints["https://api.nanogpt.com/v1/chat/completions"].StatusCodes[404]).To(Equal(int64(1)))
			Expect(snap.Endpoints[endpointURL].StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should count transport errors without recording a status", func() {
			m.RecordAttempt(endpointURL, 5*time.Millisecond, 0, true)

			snap := m.Snapshot()
			endpoint := snap.Endpoints[endpointURL]

			Expect(endpoint.Attempts).To(Equal(int64(1)))
			Expect(endpoint.TransportErrors).To(Equal(int64(1)))
			Expect(endpoint.StatusCodes).To(BeEmpty())
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordAttempt(endpointURL, time.Duration(i)*time.Millisecond, 200, false)
			}

			snap := m.Snapshot()
			endpoint := snap.Endpoints[endpointURL]

			Expect(endpoint.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(endpoint.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(endpoint.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored attempt times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordAttempt(endpointURL, time.Duration(i)*time.Millisecond, 200, false)
			}

			snap := m.Snapshot()
			Expect(snap.Endpoints[endpointURL].AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordOutcome", func() {
		It("should count classified outcomes by name", func() {
			m.RecordOutcome("success")
			m.RecordOutcome("success")
			m.RecordOutcome("no_working_endpoint")

			snap := m.Snapshot()
			Expect(snap.Outcomes["success"]).To(Equal(int64(2)))
			Expect(snap.Outcomes["no_working_endpoint"]).To(Equal(int64(1)))
		})
	})

	Describe("Snapshot", func() {
		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)

			snap := m.Snapshot()
			Expect(snap.Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot()

			Expect(snap.TotalRequests).To(Equal(int64(0)))
			Expect(snap.Endpoints).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.IncrementRequests()

			snap1 := m.Snapshot()
			m.IncrementRequests()
			snap2 := m.Snapshot()

			Expect(snap1.TotalRequests).To(Equal(int64(1)))
			Expect(snap2.TotalRequests).To(Equal(int64(2)))
		})

		It("should not share status code maps with live state", func() {
			m.RecordAttempt(endpointURL, 100*time.Millisecond, 200, false)

			snap := m.Snapshot()
			m.RecordAttempt(endpointURL, 100*time.Millisecond, 200, false)

			Expect(snap.Endpoints[endpointURL].StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should stay readable while attempts are recorded concurrently", func() {
			var wg sync.WaitGroup
			wg.Add(2)

			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					m.RecordAttempt(endpointURL, time.Millisecond, 200, false)
				}
			}()

			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					snap := m.Snapshot()
					for _, count := range snap.Endpoints[endpointURL].StatusCodes {
						Expect(count).To(BeNumerically(">=", 0))
					}
				}
			}()

			wg.Wait()

			snap := m.Snapshot()
			Expect(snap.Endpoints[endpointURL].StatusCodes[200]).To(Equal(int64(500)))
		})
	})
})
