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

// Package scheduler places model instances onto a Partitioner's logical
// partitions and tracks their lifecycle. ModelScheduler is the sole mutator
// of the ModelInstance map; it calls Partitioner.Allocate/Deallocate as the
// only way partition state changes on its behalf (§3).
package scheduler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/partition"
)

// Status is a ModelInstance's lifecycle state (§3).
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// ErrNoFit is returned when no partition has enough free memory.
var ErrNoFit = errors.New("scheduler: no partition fits the requested model")

// ErrNotFound is returned by operations on an unknown model-id.
var ErrNotFound = errors.New("scheduler: model instance not found")

// ModelInstance is one placed (or pending) model deployment.
type ModelInstance struct {
	ModelID     string
	Precision   aimv1.Precision
	PartitionID int
	Status      Status
	Allocated   int64
	Priority    int
}

// Scheduler owns the model-id -> ModelInstance map and the reverse
// partition -> model-ids index. Its lock is acquired strictly before the
// partitioner's lock (§5): schedule/unschedule take scheduler-lock then
// partitioner-lock, never the reverse.
type Scheduler struct {
	mu          sync.Mutex
	partitioner *partition.Partitioner
	catalog     estimator
	instances   map[string]*ModelInstance
	byPartition map[int][]string
}

// estimator is the subset of catalog.Catalog the scheduler needs; kept as
// an interface so tests can substitute a fixed-size table.
type estimator interface {
	EstimateModelMemory(modelID string, precision aimv1.Precision) int64
}

// New constructs a Scheduler bound to the given Partitioner. p must already
// be initialized.
func New(p *partition.Partitioner, cat estimator) *Scheduler {
	return &Scheduler{
		partitioner: p,
		catalog:     cat,
		instances:   make(map[string]*ModelInstance),
		byPartition: make(map[int][]string),
	}
}

// Schedule places modelID on a partition following §4.3's algorithm:
// idempotent if already scheduled; preferred partition if it fits; else the
// partition with the most free bytes (ties broken by smallest id); NoFit if
// none fit.
func (s *Scheduler) Schedule(modelID string, precision aimv1.Precision, priority int, preferredPartition *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst, ok := s.instances[modelID]; ok {
		return inst.PartitionID, nil
	}

	size := s.catalog.EstimateModelMemory(modelID, precision)

	chosen := -1
	if preferredPartition != nil {
		if part, ok := s.partitioner.PartitionByID(*preferredPartition); ok && part.Free() >= size {
			chosen = *preferredPartition
		}
	}
	if chosen == -1 {
		candidates := s.partitioner.AvailablePartitions(size)
		if len(candidates) == 0 {
			return -1, ErrNoFit
		}
		chosen = candidates[0]
	}

	if err := s.partitioner.Allocate(modelID, chosen, precision); err != nil {
		if errors.Is(err, partition.ErrInsufficientMemory) || errors.Is(err, partition.ErrPartitionNotFound) {
			return -1, ErrNoFit
		}
		return -1, err
	}

	inst := &ModelInstance{
		ModelID:     modelID,
		Precision:   precision,
		PartitionID: chosen,
		Status:      StatusScheduled,
		Allocated:   size,
		Priority:    priority,
	}
	s.instances[modelID] = inst
	s.byPartition[chosen] = append(s.byPartition[chosen], modelID)
	return chosen, nil
}

// Unschedule deallocates and removes modelID's instance. Idempotent: an
// absent model returns ErrNotFound so callers (the workload controller) can
// treat it as a no-op on DELETE, per §4.4.
func (s *Scheduler) Unschedule(modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[modelID]
	if !ok {
		return ErrNotFound
	}
	if err := s.partitioner.Deallocate(modelID, inst.PartitionID); err != nil && !errors.Is(err, partition.ErrNotResident) {
		return err
	}
	delete(s.instances, modelID)
	s.byPartition[inst.PartitionID] = lo.Filter(s.byPartition[inst.PartitionID], func(id string, _ int) bool {
		return id != modelID
	})
	return nil
}

// UpdateStatus transitions an existing instance's lifecycle status.
func (s *Scheduler) UpdateStatus(modelID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[modelID]
	if !ok {
		return ErrNotFound
	}
	inst.Status = status
	return nil
}

// Get returns a copy of an instance's current state.
func (s *Scheduler) Get(modelID string) (ModelInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[modelID]
	if !ok {
		return ModelInstance{}, false
	}
	return *inst, true
}

// Environment delegates to Partitioner.EnvironmentFor for modelID's
// partition.
func (s *Scheduler) Environment(modelID string) (map[string]string, error) {
	s.mu.Lock()
	inst, ok := s.instances[modelID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.partitioner.EnvironmentFor(inst.PartitionID)
}

// Validate checks the §8 placement-integrity invariant on top of the
// partitioner's own invariants.
func (s *Scheduler) Validate() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, e := range s.partitioner.Validate() {
		errs = multierr.Append(errs, e)
	}
	for modelID, inst := range s.instances {
		part, ok := s.partitioner.PartitionByID(inst.PartitionID)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("instance %s: partition %d does not exist", modelID, inst.PartitionID))
			continue
		}
		if !lo.Contains(part.ResidentIDs(), modelID) {
			errs = multierr.Append(errs, fmt.Errorf("instance %s: not resident on partition %d", modelID, inst.PartitionID))
		}
	}
	return multierr.Errors(errs)
}
