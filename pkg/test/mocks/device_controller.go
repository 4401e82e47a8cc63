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

	"github.com/amd-aim/aimcore/pkg/catalog"
	"github.com/amd-aim/aimcore/pkg/devicecontroller"
)

// MockDeviceController is a mock implementation of devicecontroller.Controller
// for testing, following the RWMutex + Behavior-func + Calls-slice shape used
// throughout this package.
type MockDeviceController struct {
	mu sync.RWMutex

	compute catalog.ComputeMode
	memory  catalog.MemoryMode

	// SetComputeModeBehavior controls what SetComputeMode() returns.
	SetComputeModeBehavior func(catalog.ComputeMode) error
	// SetMemoryModeBehavior controls what SetMemoryMode() returns.
	SetMemoryModeBehavior func(catalog.MemoryMode) error
	// ResetBehavior controls what Reset() returns.
	ResetBehavior func() error

	SetComputeModeCalls []catalog.ComputeMode
	SetMemoryModeCalls  []catalog.MemoryMode
	ResetCalls          int
}

// NewMockDeviceController constructs a MockDeviceController starting in the
// given mode pair, with every operation succeeding by default.
func NewMockDeviceController(compute catalog.ComputeMode, memory catalog.MemoryMode) *MockDeviceController {
	return &MockDeviceController{compute: compute, memory: memory}
}

var _ devicecontroller.Controller = (*MockDeviceController)(nil)

func (m *MockDeviceController) CurrentMode() (catalog.ComputeMode, catalog.MemoryMode) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.compute, m.memory
}

func (m *MockDeviceController) SetComputeMode(mode catalog.ComputeMode) error {
	m.mu.Lock()
	m.SetComputeModeCalls = append(m.SetComputeModeCalls, mode)
	behavior := m.SetComputeModeBehavior
	if behavior == nil {
		m.compute = mode
	}
	m.mu.Unlock()

	if behavior != nil {
		return behavior(mode)
	}
	return nil
}

func (m *MockDeviceController) SetMemoryMode(mode catalog.MemoryMode) error {
	m.mu.Lock()
	m.SetMemoryModeCalls = append(m.SetMemoryModeCalls, mode)
	behavior := m.SetMemoryModeBehavior
	if behavior == nil {
		m.memory = mode
	}
	m.mu.Unlock()

	if behavior != nil {
		return behavior(mode)
	}
	return nil
}

func (m *MockDeviceController) Reset() error {
	m.mu.Lock()
	m.ResetCalls++
	behavior := m.ResetBehavior
	m.mu.Unlock()

	if behavior != nil {
		return behavior()
	}
	return nil
}

// GetSetComputeModeCallCount returns the number of SetComputeMode() calls.
func (m *MockDeviceController) GetSetComputeModeCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SetComputeModeCalls)
}

// Reset clears all recorded calls (named ResetMock to avoid colliding with
// the Controller interface's own Reset()).
func (m *MockDeviceController) ResetMock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetComputeModeCalls = nil
	m.SetMemoryModeCalls = nil
	m.ResetCalls = 0
}
