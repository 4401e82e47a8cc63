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

// Package devicecontroller defines the abstract contract to the vendor
// partitioning tooling (§6). The Partitioner never branches on whether it
// is talking to real hardware or a fake — there is exactly one Partitioner
// implementation, and every DeviceController satisfies this same interface.
package devicecontroller

import (
	"fmt"
	"sync"

	"github.com/amd-aim/aimcore/pkg/catalog"
)

// Controller is the only contact point between Partitioner and hardware
// tooling. Implementations wrap vendor CLIs/SDKs; the core assumes nothing
// beyond this contract.
type Controller interface {
	// CurrentMode reports the modes the device is presently configured in.
	CurrentMode() (catalog.ComputeMode, catalog.MemoryMode)
	// SetComputeMode may be slow; implementations must be idempotent when
	// already at the requested mode.
	SetComputeMode(mode catalog.ComputeMode) error
	// SetMemoryMode may be slow; implementations must be idempotent when
	// already at the requested mode.
	SetMemoryMode(mode catalog.MemoryMode) error
	Reset() error
}

// CapacityModel answers the spec's Open Question about whether NPS1+CPX
// yields N sub-devices each addressing their own equal share of total
// memory, or each addressing the whole pool. The two retrieved copies of
// the original rocm_partitioner_real.py disagree; this module resolves it
// as a capability query rather than assuming one answer, per §9.
type CapacityModel string

const (
	// CapacityPerSubDeviceShare is the view this module implements: in cpx
	// compute mode with quadrant memory mode, each of the N sub-devices
	// addresses total_memory/N, matching the spec's "per-sub-device equal
	// share" resolution and end-to-end scenario 2.
	CapacityPerSubDeviceShare CapacityModel = "per-sub-device-share"
	// CapacityFullPoolPerSubDevice is the alternative the other disagreeing
	// original file implies (each sub-device sees the whole pool). No
	// shipped DeviceController implements it; it is named here so a future
	// implementation can declare it explicitly instead of silently picking
	// a behavior.
	CapacityFullPoolPerSubDevice CapacityModel = "full-pool-per-sub-device"
)

// Null is a DeviceController that satisfies the contract without touching
// any hardware: a constructed, in-memory state machine good enough to drive
// Partitioner in tests and in environments with no accelerator attached.
// It exists so the scheduler never needs to know whether it is "simulated"
// or "real" — Null is just another Controller.
type Null struct {
	mu            sync.Mutex
	compute       catalog.ComputeMode
	memory        catalog.MemoryMode
	capacityModel CapacityModel
	resetCompute  catalog.ComputeMode
	resetMemory   catalog.MemoryMode
}

// NewNull constructs a Null controller defaulted to single/uniform, the
// quiescent state a freshly attached device is assumed to be in.
func NewNull() *Null {
	return &Null{
		compute:       catalog.ComputeSingle,
		memory:        catalog.MemoryUniform,
		capacityModel: CapacityPerSubDeviceShare,
		resetCompute:  catalog.ComputeSingle,
		resetMemory:   catalog.MemoryUniform,
	}
}

// CapacityModel reports which of the two disputed NPS1xCPX interpretations
// this controller implements.
func (n *Null) CapacityModel() CapacityModel {
	return n.capacityModel
}

func (n *Null) CurrentMode() (catalog.ComputeMode, catalog.MemoryMode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.compute, n.memory
}

func (n *Null) SetComputeMode(mode catalog.ComputeMode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if mode != catalog.ComputeSingle && mode != catalog.ComputeCPX {
		return fmt.Errorf("devicecontroller: unknown compute mode %q", mode)
	}
	n.compute = mode
	return nil
}

func (n *Null) SetMemoryMode(mode catalog.MemoryMode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if mode != catalog.MemoryUniform && mode != catalog.MemoryQuadrant {
		return fmt.Errorf("devicecontroller: unknown memory mode %q", mode)
	}
	n.memory = mode
	return nil
}

func (n *Null) Reset() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.compute = n.resetCompute
	n.memory = n.resetMemory
	return nil
}
