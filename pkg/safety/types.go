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

// Package safety orchestrates the pre/post content-classifier pipeline
// (§4.5, §4.6) against a per-use-case latency budget. ClassifierRegistry
// holds the candidate classifiers; Gateway selects and invokes them.
package safety

import "time"

// Kind is a classifier's declared capability.
type Kind string

const (
	KindToxicity Kind = "toxicity"
	KindPII      Kind = "pii"
	KindInjection Kind = "injection"
	KindSecrets  Kind = "secrets"
	KindPolicy   Kind = "policy"
	KindOmnibus  Kind = "omnibus"
)

// UseCase selects the latency budget row (§4.6).
type UseCase string

const (
	UseCaseChat    UseCase = "chat"
	UseCaseRAG     UseCase = "rag"
	UseCaseCodeGen UseCase = "code-gen"
	UseCaseBatch   UseCase = "batch"
)

// Action is the effect a triggered policy has on the verdict (§4.6 step 5).
type Action string

const (
	ActionAllow  Action = "allow"
	ActionWarn   Action = "warn"
	ActionRedact Action = "redact"
	ActionBlock  Action = "block"
)

// Direction is which side of a request a policy runs on.
type Direction string

const (
	DirectionRequest  Direction = "request"
	DirectionResponse Direction = "response"
)

// Policy wires one classifier kind to a concrete backing model, action, and
// threshold (§6 config schema's `guardrails.<kind>` section).
type Policy struct {
	Kind            Kind
	Model           string // backing-model identifier; keys the latency-estimate table
	Enabled         bool
	PreFilter       bool
	PostFilter      bool
	Threshold       float64
	Action          Action
	FastFail        bool // stop invoking remaining classifiers on first block
	EstimatedLatency time.Duration
}

// appliesTo reports whether this policy runs for the given direction.
func (p Policy) appliesTo(dir Direction) bool {
	if dir == DirectionRequest {
		return p.PreFilter
	}
	return p.PostFilter
}

// ClassifierResult is one classifier invocation's outcome.
type ClassifierResult struct {
	Kind             Kind
	Name             string
	Action           Action
	Passed           bool
	Confidence       float64
	Message          string
	Details          map[string]any
	RedactedContent  string
}

// Verdict is a Gateway entry point's overall outcome.
type Verdict struct {
	Allowed        bool
	Results        []ClassifierResult
	FinalContent   string
	BudgetExceeded bool
	ElapsedMS      int64
}
