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

package classifiers

import (
	"context"
	"strings"

	"github.com/amd-aim/aimcore/pkg/safety"
)

// Omnibus is a single broad-spectrum safety judge combining the toxicity
// and injection signal, standing in for an all-in-one judge model (Llama
// Guard in the originating system). It runs the same fixed-threshold
// pattern checks the narrower classifiers use, but reports one combined
// verdict rather than per-kind results.
type Omnibus struct {
	model     string
	available bool
}

// NewOmnibus constructs an Omnibus classifier bound to the named backing
// model.
func NewOmnibus(model string) *Omnibus {
	return &Omnibus{model: model, available: true}
}

func (o *Omnibus) Name() string      { return o.model }
func (o *Omnibus) Kind() safety.Kind { return safety.KindOmnibus }
func (o *Omnibus) Available() bool   { return o.available }

func (o *Omnibus) Check(ctx context.Context, content string, threshold float64) safety.ClassifierResult {
	if !o.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}

	toxic := (&Toxicity{model: o.model, available: true}).Check(ctx, content, threshold)
	injected := (&Injection{model: o.model, available: true}).Check(ctx, content, threshold)

	confidence := toxic.Confidence
	if injected.Confidence > confidence {
		confidence = injected.Confidence
	}
	passed := toxic.Passed && injected.Passed

	var reasons []string
	if !toxic.Passed {
		reasons = append(reasons, "toxicity")
	}
	if !injected.Passed {
		reasons = append(reasons, "injection")
	}
	message := "content judged safe"
	if !passed {
		message = "unsafe content judged: " + strings.Join(reasons, ", ")
	}

	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details: map[string]any{
			"toxicity":  toxic.Details,
			"injection": injected.Details,
		},
	}
}
