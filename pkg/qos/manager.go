/*
Copyright The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package qos

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

const defaultSaturationCap = 100

type modelStats struct {
	totalRequests     int64
	completedRequests int64
	failedRequests    int64
	totalLatency      time.Duration
	maxLatency        time.Duration
	minLatency        time.Duration
	firstRequestAt    time.Time
}

// Manager is the §4.8 QoSManager.
type Manager struct {
	clock clock.Clock
	sink  metrics.Sink

	bands         map[Priority]*band
	queuedTotal   atomic.Int64
	saturationCap int

	throttleLow atomic.Bool

	mu         sync.RWMutex
	slos       map[string]SLO
	stats      map[string]*modelStats
	guarantees map[string]float64
	limits     map[string]float64
}

// NewManager constructs a Manager with the default saturation cap (100). A
// nil clock defaults to the real wall clock; a nil sink to metrics.Noop().
func NewManager(clk clock.Clock, sink metrics.Sink) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if sink == nil {
		sink = metrics.Noop()
	}
	m := &Manager{
		clock: clk,
		sink:  sink,
		bands: map[Priority]*band{
			PriorityHigh:   {},
			PriorityMedium: {},
			PriorityLow:    {},
		},
		saturationCap: defaultSaturationCap,
		slos:          make(map[string]SLO),
		stats:         make(map[string]*modelStats),
		guarantees:    make(map[string]float64),
		limits:        make(map[string]float64),
	}
	return m
}

// SetSaturationCap overrides the default global queue-length cap.
func (m *Manager) SetSaturationCap(n int) { m.saturationCap = n }

// SetThrottleLowPriority flips the low-priority throttling policy switch
// (§4.8: "a policy switch the caller may flip").
func (m *Manager) SetThrottleLowPriority(enable bool) { m.throttleLow.Store(enable) }

// NewRequestID returns a fresh request identifier.
func NewRequestID() string { return uuid.NewString() }

// RegisterSLO registers (or replaces) the SLO for a model.
func (m *Manager) RegisterSLO(slo SLO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slos[slo.ModelID] = slo
	if _, ok := m.stats[slo.ModelID]; !ok {
		m.stats[slo.ModelID] = &modelStats{}
	}
}

// SetResourceGuarantee sets a model's minimum resource guarantee, a
// fraction of its partition in [0,1].
func (m *Manager) SetResourceGuarantee(modelID string, guarantee float64) error {
	if guarantee < 0 || guarantee > 1 {
		return fmt.Errorf("guarantee must be in [0,1], got %f", guarantee)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guarantees[modelID] = guarantee
	return nil
}

// SetResourceLimit sets a model's maximum resource limit, a fraction of its
// partition in [0,1].
func (m *Manager) SetResourceLimit(modelID string, limit float64) error {
	if limit < 0 || limit > 1 {
		return fmt.Errorf("limit must be in [0,1], got %f", limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[modelID] = limit
	return nil
}

// Enqueue admits a request into its priority band, rejecting it if the
// global queue length is at or past the saturation cap, or if low-priority
// throttling is active and higher bands are occupied.
func (m *Manager) Enqueue(req Request) error {
	if m.queuedTotal.Load() >= int64(m.saturationCap) {
		m.sink.Counter("qos_requests_rejected_total", map[string]string{"reason": "saturated"}).Inc(1)
		return ErrQueueSaturated
	}
	if req.Priority == PriorityLow && m.throttleLow.Load() {
		if m.bands[PriorityHigh].size()+m.bands[PriorityMedium].size() > 0 {
			m.sink.Counter("qos_requests_rejected_total", map[string]string{"reason": "throttled"}).Inc(1)
			return ErrThrottled
		}
	}
	m.bands[req.Priority].push(req)
	m.queuedTotal.Add(1)
	m.sink.Gauge("qos_queue_depth", map[string]string{"priority": string(req.Priority)}).Set(float64(m.bands[req.Priority].size()))
	return nil
}

// Dequeue drops expired requests from every band, then returns the oldest
// request from the highest non-empty band (high, then medium, then low).
func (m *Manager) Dequeue() (Request, bool) {
	now := m.clock.Now()
	for _, p := range priorityOrder {
		expired := m.bands[p].expire(now)
		if len(expired) > 0 {
			m.queuedTotal.Add(-int64(len(expired)))
			m.sink.Counter("qos_requests_expired_total", map[string]string{"priority": string(p)}).Inc(float64(len(expired)))
		}
	}
	for _, p := range priorityOrder {
		if req, ok := m.bands[p].popFront(); ok {
			m.queuedTotal.Add(-1)
			return req, true
		}
	}
	return Request{}, false
}

// QueueDepth returns the total queued length across all bands, or a single
// band's length when priority is non-empty.
func (m *Manager) QueueDepth(priority Priority) int {
	if priority == "" {
		total := 0
		for _, p := range priorityOrder {
			total += m.bands[p].size()
		}
		return total
	}
	b, ok := m.bands[priority]
	if !ok {
		return 0
	}
	return b.size()
}

// RecordCompletion updates the per-model running tally used by sloCompliance.
func (m *Manager) RecordCompletion(modelID string, latency time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, exists := m.stats[modelID]
	if !exists {
		st = &modelStats{}
		m.stats[modelID] = st
	}
	if st.totalRequests == 0 {
		st.firstRequestAt = m.clock.Now()
	}
	st.totalRequests++
	if ok {
		st.completedRequests++
		st.totalLatency += latency
		if latency > st.maxLatency {
			st.maxLatency = latency
		}
		if st.minLatency == 0 || latency < st.minLatency {
			st.minLatency = latency
		}
	} else {
		st.failedRequests++
	}
	m.sink.Histogram("qos_request_latency_seconds", map[string]string{"model": modelID}).Observe(latency.Seconds())
}

// SLOCompliance reports whether modelID is meeting its registered SLO.
// Throughput is computed over the elapsed window since the model's first
// recorded request, replacing a fixed count/60 approximation with a
// measurement that stays accurate regardless of how long the model has
// been running.
func (m *Manager) SLOCompliance(modelID string) (bool, ModelMetrics) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slo, hasSLO := m.slos[modelID]
	if !hasSLO {
		return true, ModelMetrics{}
	}
	st, ok := m.stats[modelID]
	if !ok || st.completedRequests == 0 {
		return true, ModelMetrics{}
	}

	avgLatency := st.totalLatency / time.Duration(st.completedRequests)
	elapsed := m.clock.Now().Sub(st.firstRequestAt)
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(st.completedRequests) / elapsed.Seconds()
	}

	latencyCompliant := avgLatency <= slo.MaxLatency
	throughputCompliant := throughput >= slo.MinThroughputPerSec

	return latencyCompliant && throughputCompliant, ModelMetrics{
		AvgLatency:          avgLatency,
		MaxLatency:          st.maxLatency,
		MinLatency:          st.minLatency,
		Throughput:          throughput,
		TotalRequests:       st.totalRequests,
		CompletedRequests:   st.completedRequests,
		FailedRequests:      st.failedRequests,
		LatencySLO:          slo.MaxLatency,
		ThroughputSLO:       slo.MinThroughputPerSec,
		LatencyCompliant:    latencyCompliant,
		ThroughputCompliant: throughputCompliant,
	}
}
