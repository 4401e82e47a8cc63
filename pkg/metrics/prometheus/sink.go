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

// Package prometheus is one concrete metrics.Sink adapter, pushing through
// client_golang. The core depends only on pkg/metrics; nothing in this
// repo's business logic imports this package. Wire it in at the process
// edge that owns the Prometheus registry — explicitly external per §1.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

// Sink adapts metrics.Sink onto a prometheus.Registerer, lazily creating one
// vector per metric name and caching it for reuse across label sets.
type Sink struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// New wraps a registerer (typically prometheus.DefaultRegisterer or a
// dedicated prometheus.NewRegistry() in tests).
func New(registerer prometheus.Registerer) *Sink {
	return &Sink{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

// counterAdapter bridges prometheus.Counter (Inc()/Add(float64)) onto
// metrics.Counter's Inc(float64) signature.
type counterAdapter struct{ c prometheus.Counter }

func (a counterAdapter) Inc(n float64) { a.c.Add(n) }

func (s *Sink) Counter(name string, labels map[string]string) metrics.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec, ok := s.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		s.registerer.MustRegister(vec)
		s.counters[name] = vec
	}
	return counterAdapter{vec.With(labels)}
}

func (s *Sink) Gauge(name string, labels map[string]string) metrics.Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec, ok := s.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
		s.registerer.MustRegister(vec)
		s.gauges[name] = vec
	}
	return vec.With(labels)
}

func (s *Sink) Histogram(name string, labels map[string]string) metrics.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec, ok := s.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		s.registerer.MustRegister(vec)
		s.histograms[name] = vec
	}
	return vec.With(labels)
}
