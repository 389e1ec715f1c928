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

import "github.com/bytedance/gopkg/util/xxhash3"

// Stats is a snapshot of the allocator state.
type Stats struct {
	Pages    int `json:"pages"`
	PageSize int `json:"page_size"`

	FreePages       int `json:"free_pages"`
	AllocatedPages  int `json:"allocated_pages"`
	FreeBlocks      int `json:"free_blocks"`
	AllocatedBlocks int `json:"allocated_blocks"`

	// UnmanagedPages is the number of pages not covered by any block.
	UnmanagedPages int `json:"unmanaged_pages"`

	// FreeCounts[r-1] is the number of free blocks of rank r.
	FreeCounts []int `json:"free_counts"`
}

// Stats walks the metadata table and returns a snapshot of the allocator.
func (a *Allocator) Stats() Stats {
	s := Stats{
		Pages:      a.pages,
		PageSize:   a.pageSize,
		FreeCounts: make([]int, a.maxRank),
	}
	for r := 1; r <= a.maxRank; r++ {
		s.FreeCounts[r-1] = a.free.len(r)
	}
	for idx := 0; idx < a.pages; {
		m := int(a.meta[idx])
		if m == 0 {
			// only pages past the last block can be reached here
			s.UnmanagedPages = a.pages - idx
			break
		}
		if m > 0 {
			s.AllocatedBlocks++
			s.AllocatedPages += BlockPages(m)
		} else {
			m = -m
			s.FreeBlocks++
			s.FreePages += BlockPages(m)
		}
		idx += BlockPages(m)
	}
	return s
}

// FreePages returns the number of pages in free blocks.
func (a *Allocator) FreePages() int {
	n := 0
	for r := 1; r <= a.maxRank; r++ {
		n += a.free.len(r) * BlockPages(r)
	}
	return n
}

// Fingerprint returns a hash of the block layout of the pool.
// Two allocators over pools of the same size with the same fingerprint have the same
// blocks at the same pages in the same state. The order of free lists is not included.
func (a *Allocator) Fingerprint() uint64 {
	return xxhash3.Hash(a.metaBuf)
}
