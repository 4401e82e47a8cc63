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
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/amd-aim/aimcore/pkg/safety"
)

var secretPatterns = map[string][]*regexp.Regexp{
	"api_key": {
		regexp.MustCompile(`(?i)api[_-]?key["\s:=]+([A-Za-z0-9_\-]{20,})`),
		regexp.MustCompile(`(?i)apikey["\s:=]+([A-Za-z0-9_\-]{20,})`),
	},
	"aws_key": {
		regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	},
	"aws_secret": {
		regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key["\s:=]+([A-Za-z0-9/+=]{40})`),
	},
	"github_token": {
		regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
	},
	"private_key": {
		regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`),
		regexp.MustCompile(`-----BEGIN\s+EC\s+PRIVATE\s+KEY-----`),
	},
	"token": {
		regexp.MustCompile(`(?i)token["\s:=]+([A-Za-z0-9_\-]{20,})`),
		regexp.MustCompile(`(?i)bearer["\s]+([A-Za-z0-9_\-.]{20,})`),
	},
}

// entropyGated are the kinds whose matches are further filtered by Shannon
// entropy, since their patterns alone over-match ordinary words.
var entropyGated = map[string]bool{"api_key": true, "token": true}

// Secrets is a pattern-plus-entropy stand-in for a dedicated secret-scanning
// model (Gitleaks/TruffleHog-style detectors in the originating system).
type Secrets struct {
	model     string
	available bool
}

// NewSecrets constructs a Secrets classifier bound to the named backing
// scanner.
func NewSecrets(model string) *Secrets {
	return &Secrets{model: model, available: true}
}

func (s *Secrets) Name() string      { return s.model }
func (s *Secrets) Kind() safety.Kind { return safety.KindSecrets }
func (s *Secrets) Available() bool   { return s.available }

func shannonEntropy(text string) float64 {
	if text == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range text {
		counts[r]++
	}
	n := float64(len(text))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func isHighEntropy(text string) bool {
	if len(text) < 10 {
		return false
	}
	return shannonEntropy(text) > 3.5
}

func (s *Secrets) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !s.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	detected := map[string][]string{}
	redacted := content
	for kind, patterns := range secretPatterns {
		var matches []string
		for _, pattern := range patterns {
			for _, m := range pattern.FindAllStringSubmatch(content, -1) {
				candidate := m[0]
				if len(m) > 1 && m[1] != "" {
					candidate = m[1]
				}
				matches = append(matches, candidate)
			}
		}
		if entropyGated[kind] {
			filtered := matches[:0]
			for _, m := range matches {
				if isHighEntropy(m) {
					filtered = append(filtered, m)
				}
			}
			matches = filtered
		}
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

	result := safety.ClassifierResult{Passed: passed, Confidence: confidence}
	if passed {
		result.Message = "no secrets detected"
	} else {
		kinds := make([]string, 0, len(detected))
		for k := range detected {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		result.Message = "secrets detected: " + strings.Join(kinds, ", ")
		result.RedactedContent = redacted
	}
	result.Details = map[string]any{"detectedKinds": detected}
	return result
}
