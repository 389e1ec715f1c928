/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package buddy

import "sync"

// Locked wraps an Allocator for concurrent use.
// Alloc, Free, Init and Reset are mutually exclusive, queries may run in parallel.
type Locked struct {
	mu sync.RWMutex
	a  *Allocator
}

// NewLocked returns a Locked which owns a. a must not be used directly afterwards.
func NewLocked(a *Allocator) *Locked {
	return &Locked{a: a}
}

func (l *Locked) Init(base Addr, pages int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Init(base, pages)
}

func (l *Locked) Reset() {
	l.mu.Lock()
	l.a.Reset()
	l.mu.Unlock()
}

func (l *Locked) Alloc(rank int) (Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Alloc(rank)
}

func (l *Locked) Free(addr Addr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(addr)
}

func (l *Locked) QueryRank(addr Addr) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.a.QueryRank(addr)
}

func (l *Locked) FreeCount(rank int) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.a.FreeCount(rank)
}

func (l *Locked) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.a.Stats()
}

func (l *Locked) Fingerprint() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.a.Fingerprint()
}
