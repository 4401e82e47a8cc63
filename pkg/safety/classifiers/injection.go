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
	"strconv"
	"strings"

	"github.com/amd-aim/aimcore/pkg/safety"
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ignore\s+(all\s+)?(previous|above|prior)\s+(instructions|prompts|rules)`),
	regexp.MustCompile(`forget\s+(everything|all|previous)`),
	regexp.MustCompile(`you\s+are\s+now\s+(a|an)\s+`),
	regexp.MustCompile(`system\s*:\s*`),
	regexp.MustCompile(`<\|system\|>`),
	regexp.MustCompile(`<\|assistant\|>`),
	regexp.MustCompile(`\[INST\]`),
	regexp.MustCompile(`###\s*(system|instruction|prompt)\s*:`),
	regexp.MustCompile(`override`),
	regexp.MustCompile(`bypass`),
	regexp.MustCompile(`jailbreak`),
}

var injectionIndicators = []string{
	"ignore previous",
	"forget everything",
	"new instructions",
	"system prompt",
	"jailbreak",
}

// Injection is a fast pattern-based prompt-injection classifier, the
// originating system's prompt_injection_checker.py counterpart. See
// InjectionML for the higher-confidence model-backed variant.
type Injection struct {
	model     string
	available bool
}

// NewInjection constructs an Injection classifier bound to the named
// backing model.
func NewInjection(model string) *Injection {
	return &Injection{model: model, available: true}
}

func (i *Injection) Name() string      { return i.model }
func (i *Injection) Kind() safety.Kind { return safety.KindInjection }
func (i *Injection) Available() bool   { return i.available }

func (i *Injection) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !i.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	normalized := normalize(content)
	var matched []string
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(normalized) {
			matched = append(matched, pattern.String())
		}
	}
	confidence := 0.0
	if len(matched) > 0 {
		confidence = minFloat(float64(len(matched))*0.25, 1.0)
	}

	hitIndicators := 0
	for _, indicator := range injectionIndicators {
		if strings.Contains(normalized, indicator) {
			confidence = minFloat(confidence+0.2, 1.0)
			hitIndicators++
		}
	}

	passed := confidence < threshold
	message := "no prompt injection detected"
	if !passed {
		message = "potential prompt injection detected (" + strconv.Itoa(len(matched)+hitIndicators) + " signals)"
	}
	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details: map[string]any{
			"matchedPatterns":      len(matched),
			"suspiciousIndicators": hitIndicators,
		},
	}
}
