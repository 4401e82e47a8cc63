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

import (
	"fmt"

	"go.uber.org/multierr"
)

// Config is the §4.7 rate-limit configuration, one set per deployment
// (§6 config schema's `traffic` section).
type Config struct {
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int

	MaxContextLength int
	MaxUploadSizeMB  float64

	// AllowedGeos, when non-empty, is the only set of geos permitted.
	AllowedGeos []string

	BusinessHoursOnly  bool
	BusinessHoursStart int // inclusive, local hour [0,23]
	BusinessHoursEnd   int // exclusive, local hour [0,23]

	// BurstPerSecond/BurstSize configure a token-bucket smoothing layer in
	// front of the sliding windows (§5: data-plane gates are per-caller-
	// thread; this absorbs sub-second bursts the minute window is too
	// coarse to catch). Zero BurstPerSecond disables the layer.
	BurstPerSecond float64
	BurstSize      int
}

// Validate aggregates every malformed field instead of stopping at the
// first, so a bad config file reports everything wrong with it in one pass.
func (c Config) Validate() error {
	var errs error
	if c.RequestsPerMinute < 0 {
		errs = multierr.Append(errs, fmt.Errorf("requestsPerMinute must be >= 0, got %d", c.RequestsPerMinute))
	}
	if c.RequestsPerHour < 0 {
		errs = multierr.Append(errs, fmt.Errorf("requestsPerHour must be >= 0, got %d", c.RequestsPerHour))
	}
	if c.RequestsPerDay < 0 {
		errs = multierr.Append(errs, fmt.Errorf("requestsPerDay must be >= 0, got %d", c.RequestsPerDay))
	}
	if c.BusinessHoursOnly && !(0 <= c.BusinessHoursStart && c.BusinessHoursStart < 24) {
		errs = multierr.Append(errs, fmt.Errorf("businessHoursStart must be in [0,24), got %d", c.BusinessHoursStart))
	}
	if c.BusinessHoursOnly && !(0 <= c.BusinessHoursEnd && c.BusinessHoursEnd <= 24) {
		errs = multierr.Append(errs, fmt.Errorf("businessHoursEnd must be in [0,24], got %d", c.BusinessHoursEnd))
	}
	if c.BusinessHoursOnly && c.BusinessHoursStart >= c.BusinessHoursEnd {
		errs = multierr.Append(errs, fmt.Errorf("businessHoursStart must be before businessHoursEnd"))
	}
	return errs
}

// DefaultConfig mirrors the originating system's dataclass defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:  60,
		RequestsPerHour:    1000,
		RequestsPerDay:     10000,
		MaxContextLength:   8192,
		MaxUploadSizeMB:    10,
		BusinessHoursStart: 9,
		BusinessHoursEnd:   17,
	}
}
