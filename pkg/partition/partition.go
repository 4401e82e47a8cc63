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

// Package partition carves one physical accelerator into logical partitions
// with explicit memory budgets and tracks their allocation. A Partitioner
// exclusively owns its Partition set (§3, §5): every mutation goes through
// this package's single lock, and reads may take a shared view.
package partition

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/catalog"
	"github.com/amd-aim/aimcore/pkg/devicecontroller"
	"github.com/amd-aim/aimcore/pkg/metrics"
)

// systemOverheadBytes is reserved off the top of total device memory and
// never allocated to any partition, per the §8 conservation invariant.
const systemOverheadBytes int64 = 512 * 1024 * 1024

// resident is one model instance's reservation on a partition. Partitioner
// keeps the byte amount it charged at allocation time so Deallocate can
// release exactly that many bytes without recomputing a (possibly stale)
// catalog estimate.
type resident struct {
	ModelID string
	Bytes   int64
}

// Partition is one logical slice of the physical device.
type Partition struct {
	ID             int
	SubDeviceIndex *int
	Capacity       int64
	Allocated      int64
	residents      []resident
	Active         bool
}

// Free returns the partition's unallocated bytes.
func (p Partition) Free() int64 {
	return p.Capacity - p.Allocated
}

// ResidentIDs returns the ordered set of resident model-instance ids, the
// shape §3 names for Partition.
func (p Partition) ResidentIDs() []string {
	ids := make([]string, len(p.residents))
	for i, r := range p.residents {
		ids[i] = r.ModelID
	}
	return ids
}

// Partitioner owns exactly one physical device's partitions.
type Partitioner struct {
	mu sync.RWMutex

	controller devicecontroller.Controller
	catalog    *catalog.Catalog
	sink       metrics.Sink
	clock      clock.Clock

	deviceName string
	device     catalog.DeviceSpec

	initialized bool
	compute     catalog.ComputeMode
	memory      catalog.MemoryMode
	partitions  []Partition
}

// New constructs a Partitioner bound to a controller, catalog, and metrics
// sink. It is not yet initialized; call Initialize before any other
// mutating method.
func New(controller devicecontroller.Controller, cat *catalog.Catalog, sink metrics.Sink, clk clock.Clock) *Partitioner {
	if sink == nil {
		sink = metrics.Noop()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Partitioner{
		controller: controller,
		catalog:    cat,
		sink:       sink,
		clock:      clk,
	}
}

// Initialize sets compute/memory partition modes and establishes the
// deterministic partition count and per-partition capacity from §4.2.
// Idempotent: calling it again with the same arguments after a successful
// initialize returns ok without any side effect on the controller beyond a
// CurrentMode() query (§8 invariant).
func (p *Partitioner) Initialize(deviceName string, compute catalog.ComputeMode, memory catalog.MemoryMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	device, ok := p.catalog.LookupDevice(deviceName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrDeviceUnavailable, deviceName)
	}
	if memory == catalog.MemoryQuadrant && compute != catalog.ComputeCPX {
		return ErrModeIncompatible
	}

	if p.initialized {
		if p.deviceName == deviceName && p.compute == compute && p.memory == memory {
			// Idempotent re-initialize: only a current-mode query, no reconfigure.
			p.controller.CurrentMode()
			return nil
		}
		return ErrAlreadyInitialized
	}

	curCompute, curMemory := p.controller.CurrentMode()
	if curCompute != compute {
		if err := p.controller.SetComputeMode(compute); err != nil {
			return fmt.Errorf("%w: setComputeMode: %s", ErrDeviceUnavailable, err)
		}
	}
	if curMemory != memory {
		if err := p.controller.SetMemoryMode(memory); err != nil {
			return fmt.Errorf("%w: setMemoryMode: %s", ErrDeviceUnavailable, err)
		}
	}

	count := 1
	if compute == catalog.ComputeCPX {
		count = device.SubDeviceCount
		if count <= 0 {
			count = 1
		}
	}
	usable := device.TotalMemory.Value() - systemOverheadBytes
	if usable < 0 {
		usable = 0
	}
	perPartition := usable / int64(count)

	partitions := make([]Partition, count)
	for i := 0; i < count; i++ {
		idx := i
		var subDevice *int
		if compute == catalog.ComputeCPX {
			subDevice = &idx
		}
		partitions[i] = Partition{
			ID:             i,
			SubDeviceIndex: subDevice,
			Capacity:       perPartition,
			Active:         true,
		}
	}

	p.deviceName = deviceName
	p.device = device
	p.compute = compute
	p.memory = memory
	p.partitions = partitions
	p.initialized = true

	p.sink.Gauge("partition_count", map[string]string{"device": deviceName}).Set(float64(count))
	for _, part := range partitions {
		p.sink.Gauge("partition_memory_bytes", map[string]string{"id": strconv.Itoa(part.ID)}).Set(float64(part.Capacity))
		p.sink.Gauge("partition_allocated_bytes", map[string]string{"id": strconv.Itoa(part.ID)}).Set(0)
	}
	return nil
}

// Allocate reserves size(model-id, precision) bytes on partitionID, per §4.2.
func (p *Partitioner) Allocate(modelID string, partitionID int, precision aimv1.Precision) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotInitialized
	}
	idx, ok := p.indexOf(partitionID)
	if !ok {
		p.sink.Counter("partition_allocate_total", map[string]string{"status": "not_found"}).Inc(1)
		return ErrPartitionNotFound
	}
	size := p.catalog.EstimateModelMemory(modelID, precision)
	part := &p.partitions[idx]
	if part.Free() < size {
		p.sink.Counter("partition_allocate_total", map[string]string{"status": "insufficient_memory"}).Inc(1)
		return ErrInsufficientMemory
	}
	part.Allocated += size
	part.residents = append(part.residents, resident{ModelID: modelID, Bytes: size})
	p.sink.Counter("partition_allocate_total", map[string]string{"status": "ok"}).Inc(1)
	p.sink.Gauge("partition_allocated_bytes", map[string]string{"id": strconv.Itoa(partitionID)}).Set(float64(part.Allocated))
	return nil
}

// Deallocate releases a model's memory from a partition, crediting back
// exactly the byte amount charged at Allocate time.
func (p *Partitioner) Deallocate(modelID string, partitionID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotInitialized
	}
	idx, ok := p.indexOf(partitionID)
	if !ok {
		return ErrPartitionNotFound
	}
	part := &p.partitions[idx]
	pos := -1
	for i, r := range part.residents {
		if r.ModelID == modelID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return ErrNotResident
	}
	part.Allocated -= part.residents[pos].Bytes
	if part.Allocated < 0 {
		part.Allocated = 0
	}
	part.residents = append(part.residents[:pos], part.residents[pos+1:]...)
	p.sink.Gauge("partition_allocated_bytes", map[string]string{"id": strconv.Itoa(partitionID)}).Set(float64(part.Allocated))
	return nil
}

// AvailablePartitions returns partitions with at least minBytes free,
// ordered by descending free bytes, ties broken by ascending id.
func (p *Partitioner) AvailablePartitions(minBytes int64) []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []int
	for _, part := range p.partitions {
		if part.Active && part.Free() >= minBytes {
			ids = append(ids, part.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		fi, fj := p.partitions[ids[i]].Free(), p.partitions[ids[j]].Free()
		if fi != fj {
			return fi > fj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Utilization reports each partition's allocated/capacity fraction.
func (p *Partitioner) Utilization() map[int]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[int]float64, len(p.partitions))
	for _, part := range p.partitions {
		if part.Capacity == 0 {
			out[part.ID] = 0
			continue
		}
		out[part.ID] = float64(part.Allocated) / float64(part.Capacity)
	}
	return out
}

// EnvironmentFor produces the descriptor string-map a downstream runtime
// needs to address this partition.
func (p *Partitioner) EnvironmentFor(partitionID int) (map[string]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx, ok := p.indexOf(partitionID)
	if !ok {
		return nil, ErrPartitionNotFound
	}
	part := p.partitions[idx]
	env := map[string]string{
		"AIM_PARTITION_ID":   strconv.Itoa(part.ID),
		"AIM_COMPUTE_MODE":   string(p.compute),
		"AIM_MEMORY_MODE":    string(p.memory),
		"AIM_DEVICE_NAME":    p.deviceName,
		"AIM_PARTITION_CAPACITY_BYTES": strconv.FormatInt(part.Capacity, 10),
	}
	if part.SubDeviceIndex != nil {
		env["AIM_VISIBLE_DEVICE"] = strconv.Itoa(*part.SubDeviceIndex)
	}
	return env, nil
}

// Reset releases all partitions and returns the device to defaults.
func (p *Partitioner) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.controller.Reset(); err != nil {
		return err
	}
	p.initialized = false
	p.partitions = nil
	p.deviceName = ""
	p.device = catalog.DeviceSpec{}
	return nil
}

// Validate checks the §8 invariants and returns every violation found.
func (p *Partitioner) Validate() []error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var errs error
	var totalCapacity int64
	for _, part := range p.partitions {
		if part.Allocated < 0 || part.Allocated > part.Capacity {
			errs = multierr.Append(errs, fmt.Errorf("partition %d: allocated %d exceeds capacity %d", part.ID, part.Allocated, part.Capacity))
		}
		totalCapacity += part.Capacity
	}
	if p.initialized && totalCapacity > p.device.TotalMemory.Value()-systemOverheadBytes {
		errs = multierr.Append(errs, fmt.Errorf("total partition capacity %d exceeds device budget %d", totalCapacity, p.device.TotalMemory.Value()-systemOverheadBytes))
	}
	return multierr.Errors(errs)
}

// PartitionByID returns a copy of the given partition's current state.
func (p *Partitioner) PartitionByID(id int) (Partition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.indexOf(id)
	if !ok {
		return Partition{}, false
	}
	return p.partitions[idx], true
}

// Modes returns the partitioner's current compute and memory modes.
func (p *Partitioner) Modes() (catalog.ComputeMode, catalog.MemoryMode) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.compute, p.memory
}

// indexOf must be called with p.mu held (read or write).
func (p *Partitioner) indexOf(id int) (int, bool) {
	if id < 0 || id >= len(p.partitions) {
		return 0, false
	}
	if p.partitions[id].ID != id {
		return 0, false
	}
	return id, true
}
