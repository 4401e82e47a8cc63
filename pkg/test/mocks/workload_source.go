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
	"context"
	"sync"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
	"github.com/amd-aim/aimcore/pkg/workloadcontroller"
)

// statusCall captures one WriteStatus invocation for inspection.
type statusCall struct {
	Namespace string
	Name      string
	Status    aimv1.WorkloadStatus
}

// MockWorkloadSource is a mock implementation of workloadcontroller.Source
// for testing, with a settable WriteStatus behavior (e.g. to simulate a
// flaky orchestrator API) on top of a real event channel.
type MockWorkloadSource struct {
	events chan aimv1.Event

	mu sync.RWMutex

	// WriteStatusBehavior controls what WriteStatus() returns. Defaults to
	// always succeeding.
	WriteStatusBehavior func(ctx context.Context, namespace, name string, status aimv1.WorkloadStatus) error

	WriteStatusCalls []statusCall
}

// NewMockWorkloadSource constructs a MockWorkloadSource with the given
// event-channel buffer size.
func NewMockWorkloadSource(buffer int) *MockWorkloadSource {
	return &MockWorkloadSource{events: make(chan aimv1.Event, buffer)}
}

var _ workloadcontroller.Source = (*MockWorkloadSource)(nil)

func (m *MockWorkloadSource) Events() <-chan aimv1.Event {
	return m.events
}

// Emit delivers one event to the stream.
func (m *MockWorkloadSource) Emit(e aimv1.Event) {
	m.events <- e
}

// Close signals no further events will be delivered.
func (m *MockWorkloadSource) Close() {
	close(m.events)
}

func (m *MockWorkloadSource) WriteStatus(ctx context.Context, namespace, name string, status aimv1.WorkloadStatus) error {
	m.mu.Lock()
	m.WriteStatusCalls = append(m.WriteStatusCalls, statusCall{Namespace: namespace, Name: name, Status: status})
	behavior := m.WriteStatusBehavior
	m.mu.Unlock()

	if behavior != nil {
		return behavior(ctx, namespace, name, status)
	}
	return nil
}

// GetWriteStatusCallCount returns the number of WriteStatus() calls.
func (m *MockWorkloadSource) GetWriteStatusCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.WriteStatusCalls)
}

// LastStatus returns the most recently written status for namespace/name.
func (m *MockWorkloadSource) LastStatus(namespace, name string) (aimv1.WorkloadStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.WriteStatusCalls) - 1; i >= 0; i-- {
		call := m.WriteStatusCalls[i]
		if call.Namespace == namespace && call.Name == name {
			return call.Status, true
		}
	}
	return aimv1.WorkloadStatus{}, false
}

// Reset clears all recorded calls.
func (m *MockWorkloadSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteStatusCalls = nil
}
