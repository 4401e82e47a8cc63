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

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/amd-aim/aimcore/pkg/metrics"
)

// cacheTTL bounds how long a (kind, content, threshold) check result is
// memoized; short enough that policy/threshold edits take effect quickly.
const cacheTTL = 30 * time.Second

// Registry holds, per kind, an ordered ladder of candidate classifiers —
// distinct backing-model variants, not a single fallback type. Resolve
// picks the first available one; every candidate is itself still
// open-by-default on its own load failure (§4.5).
type Registry struct {
	mu         sync.RWMutex
	candidates map[Kind][]Classifier
	sink       metrics.Sink
	cache      *gocache.Cache
}

// NewRegistry constructs an empty Registry reporting availability through
// sink (nil becomes metrics.Noop()).
func NewRegistry(sink metrics.Sink) *Registry {
	if sink == nil {
		sink = metrics.Noop()
	}
	return &Registry{
		candidates: make(map[Kind][]Classifier),
		sink:       sink,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Register appends c to the candidate ladder for its kind, in priority
// order: earlier registrations are preferred when available.
func (r *Registry) Register(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[c.Kind()] = append(r.candidates[c.Kind()], c)
	r.sink.Gauge("classifier_available", map[string]string{"kind": string(c.Kind()), "name": c.Name()}).Set(boolToFloat(c.Available()))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Resolve returns the first available classifier registered for kind. If
// none report available, it still returns the first candidate (if any) so
// callers get the classifier's own open-by-default behavior rather than a
// registry-level failure.
func (r *Registry) Resolve(kind Kind) (Classifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.candidates[kind]
	if len(list) == 0 {
		return nil, false
	}
	for _, c := range list {
		if c.Available() {
			return c, true
		}
	}
	return list[0], true
}

// Check resolves kind's classifier and invokes it, memoizing the result for
// identical (kind, content, threshold) within cacheTTL.
func (r *Registry) Check(ctx context.Context, kind Kind, content string, threshold float64) (ClassifierResult, bool) {
	classifier, ok := r.Resolve(kind)
	if !ok {
		return ClassifierResult{}, false
	}

	key := cacheKey(kind, content, threshold)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(ClassifierResult), true
	}

	result := classifier.Check(ctx, content, threshold)
	result.Kind = kind
	result.Name = classifier.Name()
	r.cache.SetDefault(key, result)
	return result, true
}

func cacheKey(kind Kind, content string, threshold float64) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s:%s:%.3f", kind, hex.EncodeToString(sum[:]), threshold)
}
