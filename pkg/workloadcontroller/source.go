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

package workloadcontroller

import (
	"context"
	"sync"

	aimv1 "github.com/amd-aim/aimcore/pkg/apis/v1"
)

// Source is the orchestrator collaborator (§6): a stream of declarative
// events plus a PATCH-style status write-back. The controller never reads
// or writes anything else from the orchestrator.
type Source interface {
	// Events returns the channel of ADDED/MODIFIED/DELETED events. The
	// source closes it on shutdown.
	Events() <-chan aimv1.Event
	// WriteStatus PATCHes the observed status for one named workload.
	WriteStatus(ctx context.Context, namespace, name string, status aimv1.WorkloadStatus) error
}

// InMemorySource is a reference Source implementation: an in-process
// channel fed by test code or a small demo, with status write-backs kept
// in a map for inspection. It satisfies Source without any real
// orchestrator behind it — analogous to devicecontroller.Null for
// DeviceController.
type InMemorySource struct {
	events chan aimv1.Event

	mu       sync.RWMutex
	statuses map[string]aimv1.WorkloadStatus
}

// NewInMemorySource constructs a Source with the given event-channel
// buffer size.
func NewInMemorySource(buffer int) *InMemorySource {
	return &InMemorySource{
		events:   make(chan aimv1.Event, buffer),
		statuses: make(map[string]aimv1.WorkloadStatus),
	}
}

func (s *InMemorySource) Events() <-chan aimv1.Event {
	return s.events
}

// Emit delivers one event to the stream. Panics if called after Close.
func (s *InMemorySource) Emit(e aimv1.Event) {
	s.events <- e
}

// Close signals no further events will be delivered.
func (s *InMemorySource) Close() {
	close(s.events)
}

func (s *InMemorySource) WriteStatus(_ context.Context, namespace, name string, status aimv1.WorkloadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[namespace+"/"+name] = status
	return nil
}

// Status returns the last status written for a named workload, for test
// assertions.
func (s *InMemorySource) Status(namespace, name string) (aimv1.WorkloadStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[namespace+"/"+name]
	return st, ok
}
