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

	"github.com/amd-aim/aimcore/pkg/safety"
)

// checkCall captures one Check invocation for inspection.
type checkCall struct {
	Content   string
	Threshold float64
}

// MockClassifier is a mock implementation of safety.Classifier for testing.
type MockClassifier struct {
	mu sync.RWMutex

	name      string
	kind      safety.Kind
	available bool

	// CheckBehavior controls what Check() returns. Defaults to a pass.
	CheckBehavior func(ctx context.Context, content string, threshold float64) safety.ClassifierResult

	CheckCalls []checkCall
}

// NewMockClassifier constructs an available MockClassifier bound to kind,
// passing every check by default.
func NewMockClassifier(name string, kind safety.Kind) *MockClassifier {
	return &MockClassifier{name: name, kind: kind, available: true}
}

var _ safety.Classifier = (*MockClassifier)(nil)

func (m *MockClassifier) Name() string { return m.name }
func (m *MockClassifier) Kind() safety.Kind { return m.kind }

func (m *MockClassifier) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// SetAvailable flips the availability this classifier reports.
func (m *MockClassifier) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

func (m *MockClassifier) Check(ctx context.Context, content string, threshold float64) safety.ClassifierResult {
	m.mu.Lock()
	m.CheckCalls = append(m.CheckCalls, checkCall{Content: content, Threshold: threshold})
	behavior := m.CheckBehavior
	m.mu.Unlock()

	if behavior != nil {
		return behavior(ctx, content, threshold)
	}
	return safety.ClassifierResult{Passed: true}
}

// GetCheckCallCount returns the number of Check() calls.
func (m *MockClassifier) GetCheckCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.CheckCalls)
}

// Reset clears all recorded calls.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckCalls = nil
}
