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

package prometheus_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	promsink "github.com/amd-aim/aimcore/pkg/metrics/prometheus"
)

func TestPrometheusSink(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Prometheus Sink Suite")
}

var _ = Describe("Sink", func() {
	It("registers and increments a counter vector lazily", func() {
		registry := prometheus.NewRegistry()
		sink := promsink.New(registry)

		sink.Counter("requests_total", map[string]string{"kind": "toxicity"}).Inc(1)
		sink.Counter("requests_total", map[string]string{"kind": "toxicity"}).Inc(2)

		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())

		var counter *dto.Metric
		for _, family := range families {
			if family.GetName() == "requests_total" {
				counter = family.GetMetric()[0]
			}
		}
		Expect(counter).NotTo(BeNil())
		Expect(counter.GetCounter().GetValue()).To(Equal(3.0))
	})

	It("reuses the same vector across label sets for gauges", func() {
		registry := prometheus.NewRegistry()
		sink := promsink.New(registry)

		sink.Gauge("queue_depth", map[string]string{"priority": "high"}).Set(4)
		sink.Gauge("queue_depth", map[string]string{"priority": "low"}).Set(1)

		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())

		var metrics []*dto.Metric
		for _, family := range families {
			if family.GetName() == "queue_depth" {
				metrics = family.GetMetric()
			}
		}
		Expect(metrics).To(HaveLen(2))
	})

	It("observes histogram samples", func() {
		registry := prometheus.NewRegistry()
		sink := promsink.New(registry)

		sink.Histogram("schedule_latency_seconds", nil).Observe(0.01)
		sink.Histogram("schedule_latency_seconds", nil).Observe(0.02)

		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())

		var hist *dto.Metric
		for _, family := range families {
			if family.GetName() == "schedule_latency_seconds" {
				hist = family.GetMetric()[0]
			}
		}
		Expect(hist).NotTo(BeNil())
		Expect(hist.GetHistogram().GetSampleCount()).To(Equal(uint64(2)))
	})
})
