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

// Package workloadcontroller reconciles declared Workloads against a
// Scheduler, level-driven (§4.4): the latest declaration always wins, no
// event is assumed delivered exactly once, and a periodic resync recovers
// from any that were dropped. One cooperative task owns each workload name
// so per-workload history never races itself, while distinct workloads
// reconcile fully concurrently (§5).
package workloadcontroller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/events"
	"github.com/amd-aim/aimcore/pkg/scheduler"
)

// Scheduler is the subset of *scheduler.Scheduler the controller drives;
// kept as an interface so tests can substitute a fake.
type Scheduler interface {
	Schedule(modelID string, precision aimv1.Precision, priority int, preferredPartition *int) (int, error)
	Unschedule(modelID string) error
	Environment(modelID string) (map[string]string, error)
}

// resyncInterval is how often the controller re-declares every known
// workload to the scheduler, recovering from any dropped event (§4.4).
const resyncInterval = 30 * time.Second

// worklet is everything the controller remembers about one workload
// between events, enough to resync without the source redelivering it.
type worklet struct {
	namespace string

	// mu guards spec/specHash/phase: the owning goroutine (runWorklet) writes
	// them, resyncAll reads them from the cron goroutine.
	mu       sync.Mutex
	spec     aimv1.WorkloadSpec
	specHash uint64
	phase    aimv1.Phase

	events chan aimv1.Event
}

// Controller reconciles the Workload declarations from a Source against a
// Scheduler and writes observed status back to the Source.
type Controller struct {
	source    Source
	scheduler Scheduler
	recorder  events.Recorder
	clock     clock.Clock

	mu       sync.Mutex
	worklets map[string]*worklet // keyed by namespace/name

	cron *cron.Cron

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Controller. Call Run to start consuming the source.
func New(source Source, sched Scheduler, recorder events.Recorder, clk clock.Clock) *Controller {
	if recorder == nil {
		recorder = events.NewInMemory()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Controller{
		source:    source,
		scheduler: sched,
		recorder:  recorder,
		clock:     clk,
		worklets:  make(map[string]*worklet),
	}
}

// Run consumes events from the source until ctx is cancelled, dispatching
// each to a per-workload goroutine and driving the periodic resync. It
// blocks until every in-flight worklet goroutine has drained.
func (c *Controller) Run(ctx context.Context) error {
	log := logf.FromContext(ctx).WithName("workloadcontroller")
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	c.cron = cron.New(cron.WithSeconds())
	if _, err := c.cron.AddFunc(fmt.Sprintf("@every %s", resyncInterval), func() {
		c.resyncAll(ctx)
	}); err != nil {
		return fmt.Errorf("workloadcontroller: schedule resync: %w", err)
	}
	c.cron.Start()
	defer c.cron.Stop()

	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return nil
		case ev, ok := <-c.source.Events():
			if !ok {
				c.wg.Wait()
				return nil
			}
			log.V(1).Info("dispatching event", "type", ev.Type, "workload", klog.KRef(ev.Workload.Namespace, ev.Workload.Name))
			c.dispatch(ctx, ev)
		}
	}
}

// Stop cancels Run's context, if it is currently running.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func key(namespace, name string) string { return namespace + "/" + name }

// dispatch routes an event to the worklet goroutine owning its workload
// name, starting one if this is the first event seen for it (§5: one
// cooperative task per workload name, fed by this single reader).
func (c *Controller) dispatch(ctx context.Context, ev aimv1.Event) {
	k := key(ev.Workload.Namespace, ev.Workload.Name)

	c.mu.Lock()
	w, ok := c.worklets[k]
	if !ok {
		w = &worklet{
			namespace: ev.Workload.Namespace,
			events:    make(chan aimv1.Event, 16),
		}
		c.worklets[k] = w
		c.wg.Add(1)
		go c.runWorklet(ctx, ev.Workload.Name, w)
	}
	c.mu.Unlock()

	w.events <- ev
}

// runWorklet serializes every event for one workload name, guaranteeing no
// two reconciles of the same name ever run concurrently.
func (c *Controller) runWorklet(ctx context.Context, name string, w *worklet) {
	defer c.wg.Done()
	log := logf.FromContext(ctx).WithName("workloadcontroller")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			c.handle(ctx, log, name, w, ev)
			if ev.Type == aimv1.EventDeleted {
				c.mu.Lock()
				delete(c.worklets, key(w.namespace, name))
				c.mu.Unlock()
				return
			}
		}
	}
}

// handle applies one event's declaration to the scheduler and writes the
// resulting status back, per the §4.4 state machine: ADDED/MODIFIED
// schedule (no-op if the spec hash is unchanged and the workload is already
// Running), DELETED unschedules.
func (c *Controller) handle(ctx context.Context, log logr.Logger, name string, w *worklet, ev aimv1.Event) {
	ref := klog.KRef(w.namespace, name)

	if ev.Type == aimv1.EventDeleted {
		if err := c.scheduler.Unschedule(ev.Workload.Spec.ModelID); err != nil && err != scheduler.ErrNotFound {
			log.Error(err, "unschedule failed", "workload", ref)
		}
		c.recorder.Publish(events.Event{Reason: aimv1.ReasonUnscheduled, Message: name, Type: "Normal"})
		return
	}

	spec := ev.Workload.Spec
	h, err := hashstructure.Hash(spec, hashstructure.FormatV2, nil)
	if err != nil {
		log.Error(err, "hash workload spec", "workload", ref)
	}

	w.mu.Lock()
	noop := w.spec.ModelID != "" && w.specHash == h && w.phase == aimv1.PhaseRunning
	w.spec = spec
	w.specHash = h
	w.mu.Unlock()
	if noop {
		log.V(1).Info("no-op reconcile: spec unchanged", "workload", ref)
		return
	}

	if !spec.GPUSharing.Enabled {
		log.V(1).Info("gating flag disables management, ignoring", "workload", ref)
		return
	}

	partID, err := c.scheduler.Schedule(spec.ModelID, spec.Precision, spec.Priority, spec.PreferredPartition)
	if err != nil {
		w.mu.Lock()
		w.phase = aimv1.PhaseFailed
		w.mu.Unlock()
		reason := aimv1.ReasonSchedulingError
		evt := events.Event{Reason: reason, Message: err.Error(), Type: "Warning"}
		if err == scheduler.ErrNoFit {
			reason = aimv1.ReasonNoFit
			evt = events.NoFit(spec.ModelID)
		}
		c.recorder.Publish(evt)
		c.writeStatus(ctx, w.namespace, name, aimv1.WorkloadStatus{
			Phase:      aimv1.PhaseFailed,
			Reason:     reason,
			Conditions: []metav1.Condition{c.condition(reason, err.Error())},
			LastUpdate: metav1.NewTime(c.clock.Now()),
		})
		return
	}

	w.mu.Lock()
	w.phase = aimv1.PhaseRunning
	w.mu.Unlock()
	c.recorder.Publish(events.Scheduled(spec.ModelID, partID))
	c.writeStatus(ctx, w.namespace, name, aimv1.WorkloadStatus{
		Phase:      aimv1.PhaseRunning,
		Reason:     aimv1.ReasonScheduled,
		Conditions: []metav1.Condition{c.condition(aimv1.ReasonScheduled, fmt.Sprintf("placed on partition %d", partID))},
		LastUpdate: metav1.NewTime(c.clock.Now()),
	})
}

func (c *Controller) condition(reason, message string) metav1.Condition {
	status := metav1.ConditionTrue
	if reason == aimv1.ReasonNoFit || reason == aimv1.ReasonSchedulingError {
		status = metav1.ConditionFalse
	}
	return aimv1.NewCondition(aimv1.ConditionTypeScheduled, status, reason, message, metav1.NewTime(c.clock.Now()))
}

// writeStatus PATCHes the observed status, retrying only the transport
// call — never the reconcile itself, which the next resync or event will
// redrive if it genuinely still needs work.
func (c *Controller) writeStatus(ctx context.Context, namespace, name string, status aimv1.WorkloadStatus) {
	err := retry.Do(
		func() error { return c.source.WriteStatus(ctx, namespace, name, status) },
		retry.Attempts(3),
		retry.Context(ctx),
	)
	if err != nil {
		logf.FromContext(ctx).Error(err, "write status back to source failed", "workload", klog.KRef(namespace, name))
	}
}

// resyncAll re-declares every known worklet to itself, recovering from any
// dropped MODIFIED event (§4.4's "no event is assumed delivered").
func (c *Controller) resyncAll(ctx context.Context) {
	c.mu.Lock()
	names := make(map[string]*worklet, len(c.worklets))
	for k, w := range c.worklets {
		names[k] = w
	}
	c.mu.Unlock()

	for k, w := range names {
		namespace, name, ok := splitKey(k)
		if !ok {
			continue
		}
		w.mu.Lock()
		spec := w.spec
		w.mu.Unlock()
		select {
		case w.events <- aimv1.Event{
			Type: aimv1.EventModified,
			Workload: aimv1.Workload{
				Name:      name,
				Namespace: namespace,
				Spec:      spec,
			},
		}:
		case <-ctx.Done():
			return
		}
	}
}

func splitKey(k string) (namespace, name string, ok bool) {
	for i := 0; i < len(k); i++ {
		if k[i] == '/' {
			return k[:i], k[i+1:], true
		}
	}
	return "", "", false
}
