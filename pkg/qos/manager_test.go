package qos_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/amd-aim/aimcore/pkg/qos"
)

func TestQoS(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "QoS Suite")
}

func req(priority qos.Priority, timeout time.Duration, enqueuedAt time.Time) qos.Request {
	return qos.Request{ID: qos.NewRequestID(), ModelID: "m1", Priority: priority, EnqueuedAt: enqueuedAt, Timeout: timeout}
}

var _ = Describe("Manager queueing", func() {
	var (
		clk *clocktesting.FakeClock
		m   *qos.Manager
	)

	BeforeEach(func() {
		clk = clocktesting.NewFakeClock(time.Now())
		m = qos.NewManager(clk, nil)
	})

	It("drains high before medium before low", func() {
		Expect(m.Enqueue(req(qos.PriorityLow, 0, clk.Now()))).To(Succeed())
		Expect(m.Enqueue(req(qos.PriorityMedium, 0, clk.Now()))).To(Succeed())
		Expect(m.Enqueue(req(qos.PriorityHigh, 0, clk.Now()))).To(Succeed())

		first, ok := m.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(first.Priority).To(Equal(qos.PriorityHigh))

		second, ok := m.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(second.Priority).To(Equal(qos.PriorityMedium))

		third, ok := m.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(third.Priority).To(Equal(qos.PriorityLow))
	})

	It("is FIFO within a single band", func() {
		a := req(qos.PriorityHigh, 0, clk.Now())
		a.ID = "a"
		b := req(qos.PriorityHigh, 0, clk.Now())
		b.ID = "b"
		Expect(m.Enqueue(a)).To(Succeed())
		Expect(m.Enqueue(b)).To(Succeed())

		first, _ := m.Dequeue()
		Expect(first.ID).To(Equal("a"))
		second, _ := m.Dequeue()
		Expect(second.ID).To(Equal("b"))
	})

	It("drops expired requests on dequeue instead of returning them", func() {
		stale := req(qos.PriorityHigh, time.Second, clk.Now())
		Expect(m.Enqueue(stale)).To(Succeed())
		fresh := req(qos.PriorityMedium, 0, clk.Now())
		Expect(m.Enqueue(fresh)).To(Succeed())

		clk.Step(2 * time.Second)

		next, ok := m.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(next.Priority).To(Equal(qos.PriorityMedium))

		_, ok = m.Dequeue()
		Expect(ok).To(BeFalse())
	})

	It("rejects new requests once the saturation cap is reached", func() {
		m.SetSaturationCap(1)
		Expect(m.Enqueue(req(qos.PriorityLow, 0, clk.Now()))).To(Succeed())
		err := m.Enqueue(req(qos.PriorityLow, 0, clk.Now()))
		Expect(err).To(MatchError(qos.ErrQueueSaturated))
	})

	It("throttles low-priority requests while higher bands are occupied", func() {
		m.SetThrottleLowPriority(true)
		Expect(m.Enqueue(req(qos.PriorityHigh, 0, clk.Now()))).To(Succeed())
		err := m.Enqueue(req(qos.PriorityLow, 0, clk.Now()))
		Expect(err).To(MatchError(qos.ErrThrottled))
	})

	It("admits low-priority requests once higher bands drain", func() {
		m.SetThrottleLowPriority(true)
		Expect(m.Enqueue(req(qos.PriorityLow, 0, clk.Now()))).To(Succeed())
	})
})

var _ = Describe("SLO compliance", func() {
	var (
		clk *clocktesting.FakeClock
		m   *qos.Manager
	)

	BeforeEach(func() {
		clk = clocktesting.NewFakeClock(time.Now())
		m = qos.NewManager(clk, nil)
	})

	It("reports compliant with no SLO registered", func() {
		ok, _ := m.SLOCompliance("unregistered")
		Expect(ok).To(BeTrue())
	})

	It("reports compliant with no completions yet", func() {
		m.RegisterSLO(qos.SLO{ModelID: "m1", MaxLatency: time.Second, MinThroughputPerSec: 1})
		ok, _ := m.SLOCompliance("m1")
		Expect(ok).To(BeTrue())
	})

	It("computes throughput over the elapsed window since the first request, not a fixed divisor", func() {
		m.RegisterSLO(qos.SLO{ModelID: "m1", MaxLatency: 5 * time.Second, MinThroughputPerSec: 0.5})
		m.RecordCompletion("m1", 100*time.Millisecond, true)
		clk.Step(2 * time.Second)
		m.RecordCompletion("m1", 100*time.Millisecond, true)

		ok, metrics := m.SLOCompliance("m1")
		Expect(ok).To(BeTrue())
		Expect(metrics.Throughput).To(BeNumerically("~", 1.0, 0.05))
		Expect(metrics.CompletedRequests).To(Equal(int64(2)))
	})

	It("flags latency non-compliance when average latency exceeds the SLO", func() {
		m.RegisterSLO(qos.SLO{ModelID: "m1", MaxLatency: 50 * time.Millisecond, MinThroughputPerSec: 0})
		m.RecordCompletion("m1", 200*time.Millisecond, true)

		ok, metrics := m.SLOCompliance("m1")
		Expect(ok).To(BeFalse())
		Expect(metrics.LatencyCompliant).To(BeFalse())
	})

	It("tracks failures separately from completions", func() {
		m.RegisterSLO(qos.SLO{ModelID: "m1", MaxLatency: time.Second, MinThroughputPerSec: 0})
		m.RecordCompletion("m1", 10*time.Millisecond, true)
		m.RecordCompletion("m1", 0, false)

		_, metrics := m.SLOCompliance("m1")
		Expect(metrics.FailedRequests).To(Equal(int64(1)))
		Expect(metrics.CompletedRequests).To(Equal(int64(1)))
		Expect(metrics.TotalRequests).To(Equal(int64(2)))
	})
})

var _ = Describe("Resource guarantees and limits", func() {
	It("rejects out-of-range guarantees and limits", func() {
		m := qos.NewManager(nil, nil)
		Expect(m.SetResourceGuarantee("m1", 1.5)).NotTo(Succeed())
		Expect(m.SetResourceLimit("m1", -0.1)).NotTo(Succeed())
		Expect(m.SetResourceGuarantee("m1", 0.3)).To(Succeed())
		Expect(m.SetResourceLimit("m1", 0.8)).To(Succeed())
	})
})
