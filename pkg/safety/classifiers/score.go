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

import "strconv"

// formatScore renders a confidence value to three decimal places, matching
// the originating system's f"{score:.3f}" message formatting.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 3, 64)
}
