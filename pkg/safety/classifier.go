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

package safety

import "context"

// Classifier is the uniform contract every variant implements (§4.5).
// Implementations are independent variants over a fixed capability set —
// new backing models add variants, they never collapse into a fallback
// ladder inside one type.
type Classifier interface {
	Name() string
	Kind() Kind
	// Check runs the classifier against content. Implementations that fail
	// to load their backing model at construction must still satisfy this
	// by returning the open-by-default result (passed=true, confidence=0,
	// message="unavailable") rather than an error.
	Check(ctx context.Context, content string, threshold float64) ClassifierResult
	// Available reports whether the backing model loaded successfully.
	Available() bool
}
