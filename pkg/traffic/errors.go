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

package traffic

import "errors"

// Error kinds from §7: every Check failure is one of these, recoverable by
// the caller via errors.Is.
var (
	ErrBlocked         = errors.New("identity is blocked")
	ErrContextTooLarge = errors.New("context length exceeds limit")
	ErrUploadTooLarge  = errors.New("upload size exceeds limit")
	ErrGeoDenied       = errors.New("access not allowed from this region")
	ErrOutsideHours    = errors.New("access only allowed during business hours")
	ErrRateExceeded    = errors.New("rate limit exceeded")
)
