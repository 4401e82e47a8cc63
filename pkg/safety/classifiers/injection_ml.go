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

	"github.com/amd-aim/aimcore/pkg/safety"
)

// mlInjectionSignals weights whole attack phrases rather than single
// tokens, standing in for the single softmax probability a loaded
// protectai/deberta-v3-base-prompt-injection model would return. Weights
// are set so a canonical two-signal jailbreak attempt clears 0.9
// confidence on its own, without depending on Injection's keyword ladder.
var mlInjectionSignals = []struct {
	pattern *regexp.Regexp
	weight  float64
}{
	{regexp.MustCompile(`ignore\s+(all\s+)?(the\s+)?(previous|above|prior)\s+(instructions|prompts|rules|directives)`), 0.55},
	{regexp.MustCompile(`reveal\s+(the\s+)?(system\s+prompt|hidden\s+prompt|underlying\s+instructions)`), 0.55},
	{regexp.MustCompile(`(disregard|bypass|override)\s+(your|all|any)?\s*(rules|instructions|guidelines|restrictions)`), 0.5},
	{regexp.MustCompile(`forget\s+(everything|all|previous)`), 0.4},
	{regexp.MustCompile(`you\s+are\s+now\s+(a|an)\s+`), 0.4},
	{regexp.MustCompile(`<\|system\|>|<\|assistant\|>|\[INST\]`), 0.45},
	{regexp.MustCompile(`jailbreak`), 0.35},
}

// InjectionML is a higher-confidence stand-in for a loaded backing
// prompt-injection model (protectai/deberta-v3-base-prompt-injection in the
// originating system). It is registered as a separate candidate from
// Injection rather than replacing it so the registry's candidate ladder
// always has a real second entry.
type InjectionML struct {
	model     string
	available bool
}

// NewInjectionML constructs an InjectionML classifier bound to the named
// backing model. An empty model name marks the classifier unavailable,
// exercising the open-by-default path the same way the originating
// protectai_prompt_injection_checker.py does when its model fails to load.
func NewInjectionML(model string) *InjectionML {
	return &InjectionML{model: model, available: model != ""}
}

func (i *InjectionML) Name() string      { return i.model }
func (i *InjectionML) Kind() safety.Kind { return safety.KindInjection }
func (i *InjectionML) Available() bool   { return i.available }

func (i *InjectionML) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !i.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	normalized := normalize(content)
	var matched int
	confidence := 0.0
	for _, signal := range mlInjectionSignals {
		if signal.pattern.MatchString(normalized) {
			confidence = minFloat(confidence+signal.weight, 1.0)
			matched++
		}
	}

	passed := confidence < threshold
	message := "no prompt injection detected"
	if !passed {
		message = "prompt injection detected (confidence " + formatScore(confidence) + ")"
	}
	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details:    map[string]any{"model": i.model, "matchedSignals": strconv.Itoa(matched)},
	}
}
