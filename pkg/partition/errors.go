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

package partition

import "errors"

// Distinct error tags per §7. Callers distinguish with errors.Is.
var (
	ErrDeviceUnavailable  = errors.New("partition: device unavailable")
	ErrModeIncompatible   = errors.New("partition: quadrant memory mode requires cpx compute mode")
	ErrAlreadyInitialized = errors.New("partition: already initialized")
	ErrNotInitialized     = errors.New("partition: not initialized")
	ErrPartitionNotFound  = errors.New("partition: partition not found")
	ErrInsufficientMemory = errors.New("partition: insufficient memory")
	ErrNotResident        = errors.New("partition: model not resident on partition")
)
