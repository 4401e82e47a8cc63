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

// toxicSignals weights broader categories of toxic language than the
// keyword-only Toxicity variant, standing in for the single softmax score a
// loaded roberta_toxicity/detoxify model would return for the same content.
var toxicSignals = []struct {
	terms  []string
	weight float64
}{
	{[]string{"kill", "murder", "suicide", "die", "shoot"}, 0.45},
	{[]string{"hate", "racist", "sexist", "bigot", "slur"}, 0.4},
	{[]string{"threat", "attack", "destroy", "hurt", "abuse"}, 0.35},
	{[]string{"stupid", "idiot", "worthless", "pathetic"}, 0.25},
}

// ToxicityML is a higher-confidence stand-in for a loaded backing toxicity
// model (roberta_toxicity / detoxify in the originating system). It is
// registered as a separate candidate from Toxicity rather than replacing it
// so the registry's candidate ladder always has a real second entry.
type ToxicityML struct {
	model     string
	available bool
}

// NewToxicityML constructs a ToxicityML classifier bound to the named
// backing model. An empty model name marks the classifier unavailable,
// exercising the open-by-default path the same way the originating
// roberta_toxicity_checker.py does when its model fails to load.
func NewToxicityML(model string) *ToxicityML {
	return &ToxicityML{model: model, available: model != ""}
}

func (t *ToxicityML) Name() string      { return t.model }
func (t *ToxicityML) Kind() safety.Kind { return safety.KindToxicity }
func (t *ToxicityML) Available() bool   { return t.available }

func (t *ToxicityML) Check(_ context.Context, content string, threshold float64) safety.ClassifierResult {
	if !t.available {
		return safety.ClassifierResult{Passed: true, Confidence: 0, Message: "unavailable"}
	}
	if content == "" {
		return safety.ClassifierResult{Passed: true, Message: "empty content"}
	}

	normalized := normalize(content)
	var hit []string
	confidence := 0.0
	for _, signal := range toxicSignals {
		for _, term := range signal.terms {
			if strings.Contains(normalized, term) {
				confidence = minFloat(confidence+signal.weight, 1.0)
				hit = append(hit, term)
				break
			}
		}
	}

	passed := confidence < threshold
	message := "content is safe"
	if !passed {
		message = "toxic content detected (score " + formatScore(confidence) + ")"
	}
	return safety.ClassifierResult{
		Passed:     passed,
		Confidence: confidence,
		Message:    message,
		Details:    map[string]any{"model": t.model, "matchedSignals": hit},
	}
}
