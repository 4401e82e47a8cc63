package workloadcontroller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/events"
	"github.com/amd-aim/aimcore/pkg/scheduler"
	"github.com/amd-aim/aimcore/pkg/workloadcontroller"
)

func TestWorkloadController(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "WorkloadController Suite")
}

// fakeScheduler records calls and lets tests script NoFit/error responses.
type fakeScheduler struct {
	mu          sync.Mutex
	scheduled   map[string]int
	unscheduled []string
	failModel   string
	failErr     error
	nextPart    int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]int{}}
}

func (f *fakeScheduler) Schedule(modelID string, _ aimv1.Precision, _ int, _ *int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if modelID == f.failModel {
		return -1, f.failErr
	}
	if p, ok := f.scheduled[modelID]; ok {
		return p, nil
	}
	p := f.nextPart
	f.nextPart++
	f.scheduled[modelID] = p
	return p, nil
}

func (f *fakeScheduler) Unschedule(modelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scheduled[modelID]; !ok {
		return scheduler.ErrNotFound
	}
	delete(f.scheduled, modelID)
	f.unscheduled = append(f.unscheduled, modelID)
	return nil
}

func (f *fakeScheduler) Environment(modelID string) (map[string]string, error) {
	return map[string]string{"AIM_MODEL_ID": modelID}, nil
}

func (f *fakeScheduler) isScheduled(modelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.scheduled[modelID]
	return ok
}

func workload(name, modelID string, enabled bool) aimv1.Workload {
	return aimv1.Workload{
		Name:      name,
		Namespace: "default",
		Spec: aimv1.WorkloadSpec{
			ModelID:   modelID,
			Precision: aimv1.PrecisionFP16,
			Priority:  1,
			GPUSharing: aimv1.GPUSharing{
				Enabled: enabled,
			},
		},
	}
}

var _ = Describe("Controller", func() {
	var (
		src   *workloadcontroller.InMemorySource
		sched *fakeScheduler
		rec   *events.InMemory
		ctrl  *workloadcontroller.Controller
		ctx   context.Context
		stop  context.CancelFunc
		done  chan struct{}
	)

	BeforeEach(func() {
		src = workloadcontroller.NewInMemorySource(16)
		sched = newFakeScheduler()
		rec = events.NewInMemory()
		ctrl = workloadcontroller.New(src, sched, rec, nil)
		ctx, stop = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			_ = ctrl.Run(ctx)
			close(done)
		}()
	})

	AfterEach(func() {
		stop()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("schedules a workload on ADDED and writes Running status back", func() {
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w1", "model-a", true)})
		Eventually(func() bool { return sched.isScheduled("model-a") }, time.Second).Should(BeTrue())
		Eventually(func() aimv1.Phase {
			st, _ := src.Status("default", "w1")
			return st.Phase
		}, time.Second).Should(Equal(aimv1.PhaseRunning))
	})

	It("ignores a gated-off workload entirely", func() {
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w2", "model-b", false)})
		Consistently(func() bool { return sched.isScheduled("model-b") }, 200*time.Millisecond).Should(BeFalse())
	})

	It("unschedules on DELETED and tolerates the model already being absent", func() {
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w3", "model-c", true)})
		Eventually(func() bool { return sched.isScheduled("model-c") }, time.Second).Should(BeTrue())

		src.Emit(aimv1.Event{Type: aimv1.EventDeleted, Workload: workload("w3", "model-c", true)})
		Eventually(func() bool { return sched.isScheduled("model-c") }, time.Second).Should(BeFalse())

		// Re-deleting an already-removed workload must not be treated as an error.
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w3", "model-c", true)})
		Eventually(func() bool { return sched.isScheduled("model-c") }, time.Second).Should(BeTrue())
		src.Emit(aimv1.Event{Type: aimv1.EventDeleted, Workload: workload("w3", "model-c", true)})
		src.Emit(aimv1.Event{Type: aimv1.EventDeleted, Workload: workload("w3", "model-c", true)})
		Eventually(func() bool { return sched.isScheduled("model-c") }, time.Second).Should(BeFalse())
	})

	It("reports NoFit as a Failed phase with reason NoFit", func() {
		sched.failModel = "model-d"
		sched.failErr = scheduler.ErrNoFit
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w4", "model-d", true)})
		Eventually(func() aimv1.Phase {
			st, _ := src.Status("default", "w4")
			return st.Phase
		}, time.Second).Should(Equal(aimv1.PhaseFailed))
		st, _ := src.Status("default", "w4")
		Expect(st.Reason).To(Equal(aimv1.ReasonNoFit))
	})

	It("processes two distinct workloads without one blocking the other", func() {
		sched.failModel = "model-slow"
		sched.failErr = errors.New("boom")
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w-fast", "model-fast", true)})
		src.Emit(aimv1.Event{Type: aimv1.EventAdded, Workload: workload("w-slow", "model-slow", true)})
		Eventually(func() bool { return sched.isScheduled("model-fast") }, time.Second).Should(BeTrue())
		Eventually(func() aimv1.Phase {
			st, _ := src.Status("default", "w-slow")
			return st.Phase
		}, time.Second).Should(Equal(aimv1.PhaseFailed))
	})
})
