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

package qos

import (
	"sync"
	"time"
)

// band is one priority queue, FIFO, with its own lock (§5).
type band struct {
	mu   sync.Mutex
	reqs []Request
}

func (b *band) push(r Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reqs = append(b.reqs, r)
}

// expire drops every expired request, not only ones at the front: a later
// entry with a shorter timeout can expire before an earlier one with none.
func (b *band) expire(now time.Time) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.reqs[:0]
	var expired []Request
	for _, r := range b.reqs {
		if r.expired(now) {
			expired = append(expired, r)
			continue
		}
		kept = append(kept, r)
	}
	b.reqs = kept
	return expired
}

// popFront removes and returns the oldest request, if any.
func (b *band) popFront() (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.reqs) == 0 {
		return Request{}, false
	}
	r := b.reqs[0]
	b.reqs = b.reqs[1:]
	return r, true
}

func (b *band) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reqs)
}
