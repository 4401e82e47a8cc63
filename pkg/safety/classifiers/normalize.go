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

// Package classifiers provides concrete Classifier variants: pattern-based
// implementations standing in for the ML-backed checkers a production
// deployment would load, each still satisfying the open-by-default contract
// on construction failure (§4.5).
package classifiers

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

var foldCaser = cases.Fold()

// normalize applies full-width-to-ASCII folding and Unicode case folding
// before pattern matching, closing the common evasion of spacing or
// full-width characters between flagged tokens (e.g. "ｋｉｌｌ").
func normalize(content string) string {
	return foldCaser.String(width.Fold.String(content))
}
