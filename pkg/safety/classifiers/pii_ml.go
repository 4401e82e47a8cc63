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

// piiEntityPatterns covers entity classes a token-classification model
// (piiranha-v1-detect-personal-information in the originating system) picks
// up from context rather than a fixed regex shape: full names, street
// addresses, and dates of birth, none of which PII's format-anchored
// patterns can recognize.
var piiEntityPatterns = map[string]*regexp.Regexp{
	"full_name":      regexp.MustCompile(`\b[A-Z][a-z]+\s[A-Z][a-z]+\b`),
	"street_address": regexp.MustCompile(`\b\d{1,5}\s+[A-Z][a-z]+(?:\s[A-Z][a-z]+)*\s(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`),
	"date_of_birth":  regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12]\d|3[01])[/-](?:19|20)\d{2}\b`),
}

// PIIML is a higher-confidence stand-in for a loaded backing named-entity
// model (piiranha-v1-detect-personal-information in the originating
// system). It is registered as a separate candidate from PII rather than
// replacing it so the registry's candidate ladder always has a real second
// entry, and recognizes entity classes PII's anchored regexes cannot.
type PIIML struct {
	model     string
	available bool
}

// NewPIIML constructs a PIIML classifier bound to the named backing model.
// An empty model name marks the classifier unavailable, exercising the
// open-by-default path the same way the originating
// piiranha_pii_checker.py does when its model fails to load.
func NewPIIML(model string) *PIIML {
	return &PIIML{model: model, available: model != ""}
}

func (p *PIIML) Name() string      { return p.model }
func (p *PIIML) Kind() safety.Kind { return safety.KindPII }
func (p *PIIML) Available() bool   { return p.available }

func (p *PIIML) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !p.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	detected := map[string][]string{}
	redacted := content
	for kind, pattern := range piiEntityPatterns {
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
		confidence = minFloat(0.5+float64(len(detected))*0.3, 1.0)
	}
	passed := confidence < threshold

	result := safety.ClassifierResult{Passed: passed, Confidence: confidence}
	message := "no pii detected"
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
	result.Details = map[string]any{"model": p.model, "detectedKinds": detected}
	return result
}
