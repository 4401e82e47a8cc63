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
	"regexp"
	"strings"

	"github.com/amd-aim/aimcore/pkg/safety"
)

var toxicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(kill|murder|suicide|harm|violence|hate|racist|sexist)\b`),
	regexp.MustCompile(`\b(threat|attack|destroy|hurt|abuse)\b`),
}

// Toxicity is a fast pattern-based toxicity classifier, the originating
// system's toxicity_checker.py counterpart. See ToxicityML for the
// higher-confidence model-backed variant.
type Toxicity struct {
	model     string
	available bool
}

// NewToxicity constructs a Toxicity classifier bound to the named backing
// model. Construction never fails here, but the field exists so a future
// real model-loading implementation can flip available to false.
func NewToxicity(model string) *Toxicity {
	return &Toxicity{model: model, available: true}
}

func (t *Toxicity) Name() string      { return t.model }
func (t *Toxicity) Kind() safety.Kind { return safety.KindToxicity }
func (t *Toxicity) Available() bool   { return t.available }

func (t *Toxicity) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !t.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	normalized := normalize(content)
	var matched []string
	for _, pattern := range toxicPatterns {
		if pattern.MatchString(normalized) {
			matched = append(matched, pattern.String())
		}
	}

	confidence := 0.0
	if len(matched) > 0 {
		confidence = minFloat(float64(len(matched))*0.3, 1.0)
	}
	passed := confidence < threshold

	message := "content is safe"
	if !passed {
		message = "toxic content detected: " + strings.Join(matched, ", ")
	}
	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details:    map[string]any{"matchedPatterns": matched},
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
