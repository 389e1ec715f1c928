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

// noPage is the end marker of a free list.
const noPage int32 = -1

// freeLists holds one LIFO list of free blocks per rank.
//
// Blocks are identified by the page index of their head page. The links live in
// next and prev, indexed by that head page, instead of inside the pool memory:
// the pool belongs to the caller and may not even be mapped.
// A link is only meaningful while its page is the head of a free block.
type freeLists struct {
	// heads[r] is the first free block of rank r, heads[0] is unused.
	heads []int32
	// counts[r] is the length of the list of rank r.
	counts []int

	next []int32
	prev []int32
}

// reset empties all lists and resizes the link arrays to hold pages entries.
func (l *freeLists) reset(maxRank, pages int) {
	if cap(l.heads) < maxRank+1 {
		l.heads = make([]int32, maxRank+1)
		l.counts = make([]int, maxRank+1)
	} else {
		l.heads = l.heads[:maxRank+1]
		l.counts = l.counts[:maxRank+1]
	}
	for r := range l.heads {
		l.heads[r] = noPage
		l.counts[r] = 0
	}

	// links are written by push before they are read, no need to clear them.
	if cap(l.next) < pages {
		l.next = make([]int32, pages)
		l.prev = make([]int32, pages)
	} else {
		l.next = l.next[:pages]
		l.prev = l.prev[:pages]
	}
}

func (l *freeLists) len(rank int) int {
	return l.counts[rank]
}

// push adds the block at idx to the front of the list of rank.
func (l *freeLists) push(rank int, idx int32) {
	head := l.heads[rank]
	l.next[idx] = head
	l.prev[idx] = noPage
	if head != noPage {
		l.prev[head] = idx
	}
	l.heads[rank] = idx
	l.counts[rank]++
}

// pop removes and returns the front block of the list of rank.
// The list must not be empty.
func (l *freeLists) pop(rank int) int32 {
	idx := l.heads[rank]
	l.remove(rank, idx)
	return idx
}

// remove unlinks the block at idx, which must be in the list of rank.
func (l *freeLists) remove(rank int, idx int32) {
	next, prev := l.next[idx], l.prev[idx]
	if prev == noPage {
		l.heads[rank] = next
	} else {
		l.next[prev] = next
	}
	if next != noPage {
		l.prev[next] = prev
	}
	l.next[idx] = noPage
	l.prev[idx] = noPage
	l.counts[rank]--
}

// walk calls f for every block in the list of rank, front to back, until f returns false.
func (l *freeLists) walk(rank int, f func(idx int32) bool) {
	for idx := l.heads[rank]; idx != noPage; idx = l.next[idx] {
		if !f(idx) {
			return
		}
	}
}
