package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxProbeSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	unavailable   int64
	rebuilds      int64
	tableSize     int
	selections    map[string]int64
	probeLatency  map[string][]time.Duration
	probeFailures map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Redirects     int64                      `json:"redirects"`
	Unavailable   int64                      `json:"unavailable"`
	Rebuilds      int64                      `json:"rebuilds"`
	TableSize     int                        `json:"table_size"`
	Uptime        time.Duration              `json:"uptime"`
	Endpoints     map[string]EndpointMetrics `json:"endpoints"`
	Strategy      string                     `json:"strategy"`
}

type EndpointMetrics struct {
	Selections    int64         `json:"selections"`
	Probes        int64         `json:"probes"`
	ProbeFailures int64         `json:"probe_failures"`
	LastLatency   time.Duration `json:"last_latency"`
	AvgLatency    time.Duration `json:"avg_latency"`
	P50Latency    time.Duration `json:"p50_latency"`
	P95Latency    time.Duration `json:"p95_latency"`
	P99Latency    time.Duration `json:"p99_latency"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) IncrementUnavailable() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.unavailable++
}

func (m *Metrics) RecordSelection(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[endpoint]++
}

func (m *Metrics) RecordProbe(endpoint string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probeLatency[endpoint] = append(m.probeLatency[endpoint], latency)

	if len(m.probeLatency[endpoint]) > maxProbeSamples {
		m.probeLatency[endpoint] = m.probeLatency[endpoint][1:]
	}
}

func (m *Metrics) RecordProbeFailure(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.probeFailures[endpoint]++
}

func (m *Metrics) RecordRebuild(tableSize int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rebuilds++
	m.tableSize = tableSize
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.requests,
		Unavailable:   m.unavailable,
		Rebuilds:      m.rebuilds,
		TableSize:     m.tableSize,
		Uptime:        time.Since(m.startTime),
		Endpoints:     make(map[string]EndpointMetrics),
		Strategy:      strategy,
	}

	// Collect all known endpoints
	all := make(map[string]bool)
	for endpoint := range m.selections {
		all[endpoint] = true
	}
	for endpoint := range m.probeLatency {
		all[endpoint] = true
	}
	for endpoint := range m.probeFailures {
		all[endpoint] = true
	}

	for endpoint := range all {
		snap.Redirects += m.selections[endpoint]

		em := EndpointMetrics{
			Selections:    m.selections[endpoint],
			ProbeFailures: m.probeFailures[endpoint],
		}

		latencies := m.probeLatency[endpoint]
		if len(latencies) > 0 {
			em.Probes = int64(len(latencies))
			em.LastLatency = latencies[len(latencies)-1]

			sorted := make([]time.Duration, len(latencies))
			copy(sorted, latencies)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgLatency = average(sorted)
			em.P50Latency = percentile(sorted, 0.50)
			em.P95Latency = percentile(sorted, 0.95)
			em.P99Latency = percentile(sorted, 0.99)
		}

		snap.Endpoints[endpoint] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		probeLatency:  make(map[string][]time.Duration),
		probeFailures: make(map[string]int64),
		startTime:     time.Now(),
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
