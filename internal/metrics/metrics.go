package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex           sync.RWMutex
	requests        int64
	attempts        map[string]int64
	transportErrors map[string]int64
	attemptTimes    map[string][]time.Duration
	statusCodes     map[string]map[int]int64
	outcomes        map[string]int64
	startTime       time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Uptime        time.Duration              `json:"uptime"`
	Endpoints     map[string]EndpointMetrics `json:"endpoints"`
	Outcomes      map[string]int64           `json:"outcomes"`
}

type EndpointMetrics struct {
	Attempts        int64         `json:"attempts"`
	TransportErrors int64         `json:"transport_errors"`
	AvgResponse     time.Duration `json:"avg_response"`
	P50Response     time.Duration `json:"p50_response"`
	P95Response     time.Duration `json:"p95_response"`
	P99Response     time.Duration `json:"p99_response"`
	StatusCodes     map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) RecordAttempt(endpoint string, duration time.Duration, statusCode int, transportError bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.attempts[endpoint]++

	if transportError {
		m.transportErrors[endpoint]++
		return
	}

	m.attemptTimes[endpoint] = append(m.attemptTimes[endpoint], duration)

	if len(m.attemptTimes[endpoint]) > 1000 {
		m.attemptTimes[endpoint] = m.attemptTimes[endpoint][1:]
	}

	if m.statusCodes[endpoint] == nil {
		m.statusCodes[endpoint] = make(map[int]int64)
	}
	m.statusCodes[endpoint][statusCode]++
}

func (m *Metrics) RecordOutcome(outcome string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.outcomes[outcome]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.requests,
		Uptime:        time.Since(m.startTime),
		Endpoints:     make(map[string]EndpointMetrics),
		Outcomes:      make(map[string]int64, len(m.outcomes)),
	}

	for outcome, count := range m.outcomes {
		snap.Outcomes[outcome] = count
	}

	for endpoint := range m.attempts {
		em := EndpointMetrics{
			Attempts:        m.attempts[endpoint],
			TransportErrors: m.transportErrors[endpoint],
		}

		// Copied so the snapshot stays stable after the lock is released.
		if codes := m.statusCodes[endpoint]; codes != nil {
			em.StatusCodes = make(map[int]int64, len(codes))
			for code, count := range codes {
				em.StatusCodes[code] = count
			}
		}

		durations := m.attemptTimes[endpoint]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgResponse = average(sorted)
			em.P50Response = percentile(sorted, 0.50)
			em.P95Response = percentile(sorted, 0.95)
			em.P99Response = percentile(sorted, 0.99)
		}

		snap.Endpoints[endpoint] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		attempts:        make(map[string]int64),
		transportErrors: make(map[string]int64),
		attemptTimes:    make(map[string][]time.Duration),
		statusCodes:     make(map[string]map[int]int64),
		outcomes:        make(map[string]int64),
		startTime:       time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
