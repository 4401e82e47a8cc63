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

// Package v1 holds the declarative shapes exchanged between an orchestrator
// and the workload controller: a Workload names one model-id, precision,
// and placement preference; its Status reports the controller's observed
// reconciliation state back.
package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Precision is the numeric weight format of a model instance.
type Precision string

const (
	PrecisionFP16 Precision = "fp16"
	PrecisionBF16 Precision = "bf16"
	PrecisionInt8 Precision = "int8"
	PrecisionInt4 Precision = "int4"
)

// QoSPriority is the coarse placement priority an orchestrator assigns a workload.
type QoSPriority string

const (
	QoSPriorityLow    QoSPriority = "low"
	QoSPriorityMedium QoSPriority = "medium"
	QoSPriorityHigh   QoSPriority = "high"
)

// Phase is the workload's position in the §4.4 reconciliation state machine.
type Phase string

const (
	PhasePending Phase = "Pending"
	PhaseRunning Phase = "Running"
	PhaseFailed  Phase = "Failed"
)

// GPUSharing carries the gating flag and informational bound an orchestrator
// attaches to a workload's placement.
type GPUSharing struct {
	// Enabled gates whether this controller manages the workload at all.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// MemoryLimitGB is informational only; placement still derives size from
	// DeviceCatalog.EstimateModelMemory.
	MemoryLimitGB float64 `json:"memoryLimitGB,omitempty" yaml:"memoryLimitGB,omitempty"`
	// QosPriority is the QoS-manager-facing priority band for requests against
	// this workload; it is distinct from the scheduler placement Priority below.
	QosPriority QoSPriority `json:"qosPriority,omitempty" yaml:"qosPriority,omitempty"`
}

// WorkloadSpec is the declared desired state of one model deployment, as
// delivered by a WorkloadSource ADDED/MODIFIED event.
type WorkloadSpec struct {
	ModelID             string     `json:"modelId" yaml:"modelId"`
	Precision            Precision  `json:"precision" yaml:"precision"`
	Priority             int        `json:"priority" yaml:"priority"`
	PreferredPartition   *int       `json:"preferredPartition,omitempty" yaml:"preferredPartition,omitempty"`
	GPUSharing           GPUSharing `json:"gpuSharing" yaml:"gpuSharing"`
}

// PartitionInfo mirrors the partition descriptor written back to the
// orchestrator alongside phase and conditions.
type PartitionInfo struct {
	ID            int     `json:"id"`
	ComputeMode   string  `json:"computeMode"`
	MemoryMode    string  `json:"memoryMode"`
	CapacityGB    float64 `json:"capacityGB"`
	AllocatedGB   float64 `json:"allocatedGB"`
	AvailableGB   float64 `json:"availableGB"`
}

// WorkloadStatus is the observed state the controller writes back.
type WorkloadStatus struct {
	Phase         Phase               `json:"phase"`
	Reason        string              `json:"reason,omitempty"`
	PartitionInfo *PartitionInfo      `json:"partitionInfo,omitempty"`
	Conditions    []metav1.Condition  `json:"conditions,omitempty"`
	LastUpdate    metav1.Time         `json:"lastUpdate"`
}

// Workload is one declarative unit delivered by the orchestrator: a name,
// namespace, desired spec, and last-observed status.
type Workload struct {
	Name           string
	Namespace      string
	Spec           WorkloadSpec
	ObservedStatus WorkloadStatus
}

// EventType is the kind of change an orchestrator delivered for a Workload.
type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventModified EventType = "MODIFIED"
	EventDeleted  EventType = "DELETED"
)

// Event is a single item from a WorkloadSource's event stream.
type Event struct {
	Type     EventType
	Workload Workload
}

// Condition reason strings used by the workload controller. These are plain
// strings (not typed enums) because metav1.Condition.Reason is a string and
// orchestrators compare it verbatim.
const (
	ReasonScheduled       = "Scheduled"
	ReasonNoFit           = "NoFit"
	ReasonSchedulingError = "SchedulingError"
	ReasonUnscheduled     = "Unscheduled"
	ReasonGatedOff        = "GatedOff"
)

// ConditionType values placed on WorkloadStatus.Conditions.
const (
	ConditionTypeScheduled = "Scheduled"
)

// NewCondition builds a metav1.Condition with a transition time, the shape
// §4.4 requires for every reconcile write-back.
func NewCondition(condType string, status metav1.ConditionStatus, reason, message string, now metav1.Time) metav1.Condition {
	return metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: now,
	}
}
