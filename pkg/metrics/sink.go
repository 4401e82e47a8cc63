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

// Package metrics defines the abstract counter/gauge/histogram contract
// every core component writes through (§4.9). The core never imports a
// concrete monitoring backend directly; pkg/metrics/prometheus is one
// swappable adapter, not a dependency of the interface itself.
package metrics

// Counter accumulates a monotonic value.
type Counter interface {
	Inc(n float64)
}

// Gauge holds an instantaneous value.
type Gauge interface {
	Set(v float64)
}

// Histogram records a distribution of observed values.
type Histogram interface {
	Observe(v float64)
}

// Sink is the abstract destination for all three instrument kinds. Labels
// are a flat string map; implementations are responsible for turning that
// into whatever label-vector shape their backend expects.
type Sink interface {
	Counter(name string, labels map[string]string) Counter
	Gauge(name string, labels map[string]string) Gauge
	Histogram(name string, labels map[string]string) Histogram
}

var _ Sink = (*noopSink)(nil)

type noopSink struct{}
type noopInstrument struct{}

func (noopInstrument) Inc(float64)     {}
func (noopInstrument) Set(float64)     {}
func (noopInstrument) Observe(float64) {}

func (noopSink) Counter(string, map[string]string) Counter     { return noopInstrument{} }
func (noopSink) Gauge(string, map[string]string) Gauge         { return noopInstrument{} }
func (noopSink) Histogram(string, map[string]string) Histogram { return noopInstrument{} }

// Noop returns a Sink that discards every observation, for components
// constructed without a collector wired in (e.g. unit tests).
func Noop() Sink { return noopSink{} }
