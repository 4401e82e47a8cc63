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

var defaultPolicyRules = []string{
	"unreleased feature",
	"product roadmap",
	"investment advice",
	"internal process",
	"proprietary information",
}

// PolicyCompliance is a rule-based stand-in for the LLM-as-judge pattern the
// originating system uses (a small instruct model evaluating content
// against enterprise policy text). Response-side only (§4.5).
type PolicyCompliance struct {
	model     string
	rules     []string
	available bool
}

// NewPolicyCompliance constructs a PolicyCompliance classifier. An empty
// rules slice falls back to the default rule set; a nil backing model name
// marks the classifier unavailable, exercising the open-by-default path the
// same way the originating checker does when its judge model fails to load.
func NewPolicyCompliance(model string, rules []string) *PolicyCompliance {
	if len(rules) == 0 {
		rules = defaultPolicyRules
	}
	return &PolicyCompliance{model: model, rules: rules, available: model != ""}
}

func (p *PolicyCompliance) Name() string      { return p.model }
func (p *PolicyCompliance) Kind() safety.Kind { return safety.KindPolicy }
func (p *PolicyCompliance) Available() bool   { return p.available }

func (p *PolicyCompliance) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !p.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	normalized := normalize(content)
	var violated []string
	for _, rule := range p.rules {
		if strings.Contains(normalized, normalize(rule)) {
			violated = append(violated, rule)
		}
	}

	confidence := 0.1
	if len(violated) > 0 {
		confidence = 0.9
	}
	passed := confidence < threshold

	message := "content is policy compliant"
	if !passed {
		message = "policy violation detected: " + strings.Join(violated, "; ")
	}
	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details:    map[string]any{"violatedRules": violated},
	}
}
