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

package mocks

import (
	"sync"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

// instrumentCall captures one observation against a named, labeled
// instrument.
type instrumentCall struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// MockMetricsSink is a mock implementation of metrics.Sink for testing: it
// records every observation instead of forwarding it to a real collector.
type MockMetricsSink struct {
	mu sync.RWMutex

	CounterCalls   []instrumentCall
	GaugeCalls     []instrumentCall
	HistogramCalls []instrumentCall
}

// NewMockMetricsSink constructs an empty MockMetricsSink.
func NewMockMetricsSink() *MockMetricsSink {
	return &MockMetricsSink{}
}

var _ metrics.Sink = (*MockMetricsSink)(nil)

type mockInstrument struct {
	sink   *MockMetricsSink
	bucket *[]instrumentCall
	name   string
	labels map[string]string
}

func (i *mockInstrument) record(v float64) {
	i.sink.mu.Lock()
	defer i.sink.mu.Unlock()
	*i.bucket = append(*i.bucket, instrumentCall{Name: i.name, Labels: i.labels, Value: v})
}

func (i *mockInstrument) Inc(n float64)     { i.record(n) }
func (i *mockInstrument) Set(v float64)     { i.record(v) }
func (i *mockInstrument) Observe(v float64) { i.record(v) }

func (m *MockMetricsSink) Counter(name string, labels map[string]string) metrics.Counter {
	return &mockInstrument{sink: m, bucket: &m.CounterCalls, name: name, labels: labels}
}

func (m *MockMetricsSink) Gauge(name string, labels map[string]string) metrics.Gauge {
	return &mockInstrument{sink: m, bucket: &m.GaugeCalls, name: name, labels: labels}
}

func (m *MockMetricsSink) Histogram(name string, labels map[string]string) metrics.Histogram {
	return &mockInstrument{sink: m, bucket: &m.HistogramCalls, name: name, labels: labels}
}

// CounterTotal sums every Inc() recorded against name, across all label sets.
func (m *MockMetricsSink) CounterTotal(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total float64
	for _, call := range m.CounterCalls {
		if call.Name == name {
			total += call.Value
		}
	}
	return total
}

// Reset clears all recorded calls.
func (m *MockMetricsSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CounterCalls = nil
	m.GaugeCalls = nil
	m.HistogramCalls = nil
}
