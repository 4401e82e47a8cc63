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

// Package qos implements the §4.8 QoSManager: strict-priority FIFO request
// queues, resource guarantee/limit bookkeeping, and SLO compliance tracking.
package qos

import (
	"errors"
	"time"
)

// Priority is a QoS band. Ordering across bands is strict; there is no
// aging (§4.8, stated explicitly as a non-goal).
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityOrder is the fixed dequeue order (§5: "acquires all three in a
// fixed order (high -> medium -> low)").
var priorityOrder = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Request is one queued inference request.
type Request struct {
	ID           string
	ModelID      string
	PartitionID  int
	Priority     Priority
	EnqueuedAt   time.Time
	Timeout      time.Duration // zero means no deadline
	MinGuarantee float64       // [0,1]
	MaxLimit     float64       // [0,1]
}

func (r Request) expired(now time.Time) bool {
	return r.Timeout > 0 && now.Sub(r.EnqueuedAt) > r.Timeout
}

// SLO is a registered service-level objective for a model.
type SLO struct {
	ModelID             string
	MaxLatency          time.Duration
	MinThroughputPerSec float64
	TargetUtilization   float64
}

// ModelMetrics is the snapshot sloCompliance returns alongside compliance.
type ModelMetrics struct {
	AvgLatency         time.Duration
	MaxLatency         time.Duration
	MinLatency         time.Duration
	Throughput         float64
	TotalRequests      int64
	CompletedRequests  int64
	FailedRequests     int64
	LatencySLO         time.Duration
	ThroughputSLO      float64
	LatencyCompliant   bool
	ThroughputCompliant bool
}

// ErrQueueSaturated is returned by Enqueue when the global queue length has
// reached the configured saturation cap.
var ErrQueueSaturated = errors.New("queue saturated")

// ErrThrottled is returned by Enqueue for a low-priority request while
// low-priority throttling is enabled and higher bands are non-empty.
var ErrThrottled = errors.New("low-priority request throttled")
