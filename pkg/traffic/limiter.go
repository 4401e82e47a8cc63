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

// Package traffic implements the non-ML traffic guardrails (§4.7):
// sliding-window request counters per identity, context/upload-size caps,
// geo allow-lists, and a business-hours gate.
package traffic

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour
)

// identityState is the per-identity sliding-window ring plus an optional
// burst-smoothing token bucket. Guarded by its own lock (§5: "TrafficLimiter
// uses one lock per identity").
type identityState struct {
	mu      sync.Mutex
	minute  []time.Time
	hour    []time.Time
	day     []time.Time
	limiter *rate.Limiter
}

// Stats is a snapshot of an identity's current window occupancy.
type Stats struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsLastDay    int
	Blocked            bool
}

// Limiter is the §4.7 TrafficLimiter: sliding-window counters per identity,
// a blocked set, and config-driven content/access gates.
type Limiter struct {
	config Config
	clock  clock.Clock
	sink   metrics.Sink

	// mapMu guards only map membership; per-identity mutation goes through
	// the identity's own lock (§5).
	mapMu      sync.RWMutex
	identities map[string]*identityState

	blockedMu sync.RWMutex
	blocked   map[string]bool
}

// New constructs a Limiter. A zero clock defaults to the real wall clock; a
// nil sink defaults to metrics.Noop().
func New(config Config, clk clock.Clock, sink metrics.Sink) *Limiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if sink == nil {
		sink = metrics.Noop()
	}
	return &Limiter{
		config:     config,
		clock:      clk,
		sink:       sink,
		identities: make(map[string]*identityState),
		blocked:    make(map[string]bool),
	}
}

func (l *Limiter) stateFor(identity string) *identityState {
	l.mapMu.RLock()
	st, ok := l.identities[identity]
	l.mapMu.RUnlock()
	if ok {
		return st
	}

	l.mapMu.Lock()
	defer l.mapMu.Unlock()
	if st, ok := l.identities[identity]; ok {
		return st
	}
	st = &identityState{}
	if l.config.BurstPerSecond > 0 {
		st.limiter = rate.NewLimiter(rate.Limit(l.config.BurstPerSecond), l.config.BurstSize)
	}
	l.identities[identity] = st
	return st
}

// Check runs the §4.7 eight-step gate in order and records the request's
// timestamp into the sliding windows on success.
func (l *Limiter) Check(identity string, contextLength int, uploadSizeMB float64, geo string) error {
	if l.isBlocked(identity) {
		l.deny("blocked")
		return fmt.Errorf("%w: %s", ErrBlocked, identity)
	}
	if l.config.MaxContextLength > 0 && contextLength > l.config.MaxContextLength {
		l.deny("context_too_large")
		return fmt.Errorf("%w: %d exceeds limit %d", ErrContextTooLarge, contextLength, l.config.MaxContextLength)
	}
	if l.config.MaxUploadSizeMB > 0 && uploadSizeMB > l.config.MaxUploadSizeMB {
		l.deny("upload_too_large")
		return fmt.Errorf("%w: %.2fMB exceeds limit %.2fMB", ErrUploadTooLarge, uploadSizeMB, l.config.MaxUploadSizeMB)
	}
	if len(l.config.AllowedGeos) > 0 && geo != "" && !containsGeo(l.config.AllowedGeos, geo) {
		l.deny("geo_denied")
		return fmt.Errorf("%w: %s", ErrGeoDenied, geo)
	}
	if l.config.BusinessHoursOnly {
		hour := l.clock.Now().Hour()
		if !(l.config.BusinessHoursStart <= hour && hour < l.config.BusinessHoursEnd) {
			l.deny("outside_hours")
			return ErrOutsideHours
		}
	}

	st := l.stateFor(identity)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := l.clock.Now()
	l.purgeLocked(st, now)

	if st.limiter != nil && !st.limiter.AllowN(now, 1) {
		l.deny("burst_exceeded")
		return fmt.Errorf("%w: burst limit", ErrRateExceeded)
	}
	if l.config.RequestsPerMinute > 0 && len(st.minute) >= l.config.RequestsPerMinute {
		l.deny("rate_minute")
		return fmt.Errorf("%w: %d requests per minute", ErrRateExceeded, l.config.RequestsPerMinute)
	}
	if l.config.RequestsPerHour > 0 && len(st.hour) >= l.config.RequestsPerHour {
		l.deny("rate_hour")
		return fmt.Errorf("%w: %d requests per hour", ErrRateExceeded, l.config.RequestsPerHour)
	}
	if l.config.RequestsPerDay > 0 && len(st.day) >= l.config.RequestsPerDay {
		l.deny("rate_day")
		return fmt.Errorf("%w: %d requests per day", ErrRateExceeded, l.config.RequestsPerDay)
	}

	st.minute = append(st.minute, now)
	st.hour = append(st.hour, now)
	st.day = append(st.day, now)
	l.sink.Counter("traffic_requests_allowed_total", nil).Inc(1)
	return nil
}

func (l *Limiter) deny(reason string) {
	l.sink.Counter("traffic_requests_denied_total", map[string]string{"reason": reason}).Inc(1)
}

func containsGeo(allowed []string, geo string) bool {
	for _, g := range allowed {
		if g == geo {
			return true
		}
	}
	return false
}

// purgeLocked evicts ring entries past each window's horizon. Caller must
// hold st.mu.
func (l *Limiter) purgeLocked(st *identityState, now time.Time) {
	st.minute = purge(st.minute, now, minuteWindow)
	st.hour = purge(st.hour, now, hourWindow)
	st.day = purge(st.day, now, dayWindow)
}

func purge(ring []time.Time, now time.Time, horizon time.Duration) []time.Time {
	kept := ring[:0]
	for _, t := range ring {
		if now.Sub(t) < horizon {
			kept = append(kept, t)
		}
	}
	return kept
}

// BlockIdentity adds identity to the blocked set.
func (l *Limiter) BlockIdentity(identity string) {
	l.blockedMu.Lock()
	l.blocked[identity] = true
	l.blockedMu.Unlock()
	l.sink.Gauge("traffic_blocked_identities", nil).Set(float64(l.blockedCount()))
}

// UnblockIdentity removes identity from the blocked set.
func (l *Limiter) UnblockIdentity(identity string) {
	l.blockedMu.Lock()
	delete(l.blocked, identity)
	l.blockedMu.Unlock()
	l.sink.Gauge("traffic_blocked_identities", nil).Set(float64(l.blockedCount()))
}

func (l *Limiter) isBlocked(identity string) bool {
	l.blockedMu.RLock()
	defer l.blockedMu.RUnlock()
	return l.blocked[identity]
}

func (l *Limiter) blockedCount() int {
	l.blockedMu.RLock()
	defer l.blockedMu.RUnlock()
	return len(l.blocked)
}

// Stats returns identity's current window occupancy, purging stale entries
// first.
func (l *Limiter) Stats(identity string) Stats {
	st := l.stateFor(identity)
	st.mu.Lock()
	l.purgeLocked(st, l.clock.Now())
	stats := Stats{
		RequestsLastMinute: len(st.minute),
		RequestsLastHour:   len(st.hour),
		RequestsLastDay:    len(st.day),
	}
	st.mu.Unlock()
	stats.Blocked = l.isBlocked(identity)
	return stats
}
