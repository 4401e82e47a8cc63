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
	"sort"
	"strings"

	"github.com/amd-aim/aimcore/pkg/safety"
)

var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"credit_card": regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	"ip_address":  regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
}

// PII is a fast format-anchored classifier for entities with a fixed shape
// (email, phone, SSN, credit card, IP address), the originating system's
// pii_checker.py counterpart. See PIIML for the higher-confidence
// model-backed variant that also recognizes free-form entities.
type PII struct {
	model     string
	available bool
}

// NewPII constructs a PII classifier bound to the named backing model.
func NewPII(model string) *PII {
	return &PII{model: model, available: true}
}

func (p *PII) Name() string      { return p.model }
func (p *PII) Kind() safety.Kind { return safety.KindPII }
func (p *PII) Available() bool   { return p.available }

func (p *PII) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !p.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	detected := map[string][]string{}
	redacted := content
	for kind, pattern := range piiPatterns {
		matches := pattern.FindAllString(content, -1)
		if len(matches) == 0 {
			continue
		}
		detected[kind] = matches
		placeholder := "[" + strings.ToUpper(kind) + "_REDACTED]"
		for _, m := range matches {
			redacted = strings.ReplaceAll(redacted, m, placeholder)
		}
	}

	confidence := 0.0
	if len(detected) > 0 {
		confidence = minFloat(float64(len(detected))*0.4, 1.0)
	}
	passed := confidence < threshold

	message := "no pii detected"
	result := safety.ClassifierResult{Passed: passed, Confidence: confidence}
	if !passed {
		kinds := make([]string, 0, len(detected))
		for k := range detected {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		message = "pii detected: " + strings.Join(kinds, ", ")
		result.RedactedContent = redacted
	}
	result.Message = message
	result.Details = map[string]any{"detectedKinds": detected}
	return result
}
