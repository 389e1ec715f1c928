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

// Package buddy implements a buddy allocator over a pool of fixed-size pages.
//
// A block of rank r is an aligned run of 2^(r-1) pages. Alloc splits larger free
// blocks down to the requested rank, Free merges a block with its free buddy
// for as long as possible.
//
// The pool is described by a base address and a page count only, the allocator
// never reads or writes the pool memory. An Allocator is not safe for concurrent
// use, see Locked.
package buddy

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Addr is an address inside a pool.
type Addr uintptr

// Allocator is a buddy page allocator. Use New or NewWithOption to create one.
type Allocator struct {
	base  Addr
	pages int

	pageSize  int
	pageShift uint
	maxRank   int
	maxPages  int

	// metaBuf backs meta, it's kept as bytes for Fingerprint.
	metaBuf []byte

	// meta holds one entry per page:
	//   0: interior page of a block
	//  +r: head of an allocated block of rank r
	//  -r: head of a free block of rank r
	meta []int8

	free freeLists
}

// New creates an allocator with the default options and initializes it with the given pool.
func New(base Addr, pages int) (*Allocator, error) {
	return NewWithOption(base, pages, nil)
}

// NewWithOption creates an allocator with the given options and initializes it with the given pool.
// A nil opt means DefaultOption.
func NewWithOption(base Addr, pages int, opt *Option) (*Allocator, error) {
	if opt == nil {
		opt = DefaultOption()
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	a := &Allocator{
		pageSize:  opt.PageSize,
		pageShift: uint(bits.TrailingZeros(uint(opt.PageSize))),
		maxRank:   opt.MaxRank,
		maxPages:  opt.MaxPages,
	}
	if err := a.Init(base, pages); err != nil {
		return nil, err
	}
	return a, nil
}

// Init resets the allocator to manage pages pages starting at base.
//
// The pool is split into free blocks from the lowest page upwards, each time taking
// the largest rank which fits the remaining pages and is aligned to its own size.
// Every allocation made before Init is forgotten.
func (a *Allocator) Init(base Addr, pages int) error {
	if pages < 0 || pages > a.maxPages {
		return fmt.Errorf("%w: page count %d out of range [0, %d]", ErrInvalidArgument, pages, a.maxPages)
	}
	if uintptr(pages) > (^uintptr(0)-uintptr(base))>>a.pageShift {
		return fmt.Errorf("%w: pool of %d pages at %#x overflows the address space",
			ErrInvalidArgument, pages, uintptr(base))
	}

	a.base = base
	a.pages = pages
	a.resetMeta()
	a.free.reset(a.maxRank, pages)

	for idx := 0; idx < pages; {
		rank := a.fitRank(idx, pages-idx)
		if rank == 0 {
			break
		}
		a.meta[idx] = -int8(rank)
		a.free.push(rank, int32(idx))
		idx += 1 << (rank - 1)
	}
	return nil
}

// Reset returns every page to the allocator, as if Init were called again with the same pool.
func (a *Allocator) Reset() {
	_ = a.Init(a.base, a.pages) // can't fail, the pool passed Init before
}

// resetMeta sizes meta to a.pages and zeroes it.
func (a *Allocator) resetMeta() {
	if cap(a.metaBuf) < a.pages {
		a.metaBuf = dirtmake.Bytes(a.pages, a.pages)
	} else {
		a.metaBuf = a.metaBuf[:a.pages]
	}
	for i := range a.metaBuf {
		a.metaBuf[i] = 0
	}
	if a.pages == 0 {
		a.meta = nil
		return
	}
	a.meta = unsafe.Slice((*int8)(unsafe.Pointer(&a.metaBuf[0])), a.pages)
}

// fitRank returns the largest rank whose block fits in remaining pages and starts aligned at idx.
// It returns 0 if there's none.
func (a *Allocator) fitRank(idx, remaining int) int {
	for r := a.maxRank; r >= 1; r-- {
		n := 1 << (r - 1)
		if n <= remaining && idx&(n-1) == 0 {
			return r
		}
	}
	return 0
}

// Alloc allocates a block of 2^(rank-1) pages and returns the address of its first page.
//
// It returns ErrInvalidArgument if rank is not in [1, MaxRank],
// and ErrOutOfSpace if there's no free block of rank or larger.
func (a *Allocator) Alloc(rank int) (Addr, error) {
	if !a.validRank(rank) {
		return 0, fmt.Errorf("%w: rank %d out of range [1, %d]", ErrInvalidArgument, rank, a.maxRank)
	}

	found := 0
	for r := rank; r <= a.maxRank; r++ {
		if a.free.len(r) > 0 {
			found = r
			break
		}
	}
	if found == 0 {
		return 0, ErrOutOfSpace
	}

	idx := a.free.pop(found)

	// Split until we reach the requested rank.
	// The lower half keeps idx, the upper half goes to the free list of the new rank.
	for found > rank {
		found--
		upper := idx + int32(1)<<(found-1)
		a.meta[upper] = -int8(found)
		a.free.push(found, upper)
	}

	a.meta[idx] = int8(rank)
	return a.addrOf(idx), nil
}

// Free returns a block allocated by Alloc.
//
// The block is merged with its buddy as long as the buddy is free and of the same rank.
// It returns ErrInvalidArgument if addr is not the address of an allocated block,
// which includes freeing a block twice.
func (a *Allocator) Free(addr Addr) error {
	idx, err := a.pageIndex(addr)
	if err != nil {
		return err
	}
	rank := int(a.meta[idx])
	if rank <= 0 {
		return fmt.Errorf("%w: %#x is not an allocated block", ErrInvalidArgument, uintptr(addr))
	}

	a.meta[idx] = 0
	for rank < a.maxRank {
		buddy := idx ^ int32(1)<<(rank-1)
		if int(buddy) >= a.pages || a.meta[buddy] != -int8(rank) {
			break
		}
		a.free.remove(rank, buddy)
		a.meta[buddy] = 0
		if buddy < idx {
			idx = buddy
		}
		rank++
	}

	a.meta[idx] = -int8(rank)
	a.free.push(rank, idx)
	return nil
}

// QueryRank returns the rank of the block starting at addr, either allocated or free.
// It returns ErrInvalidArgument if addr is not the first page of a block.
func (a *Allocator) QueryRank(addr Addr) (int, error) {
	idx, err := a.pageIndex(addr)
	if err != nil {
		return 0, err
	}
	switch m := a.meta[idx]; {
	case m > 0:
		return int(m), nil
	case m < 0:
		return int(-m), nil
	}
	return 0, fmt.Errorf("%w: %#x is inside a block", ErrInvalidArgument, uintptr(addr))
}

// FreeCount returns the number of free blocks of the given rank.
func (a *Allocator) FreeCount(rank int) (int, error) {
	if !a.validRank(rank) {
		return 0, fmt.Errorf("%w: rank %d out of range [1, %d]", ErrInvalidArgument, rank, a.maxRank)
	}
	return a.free.len(rank), nil
}

// Base returns the address of the first page of the pool.
func (a *Allocator) Base() Addr { return a.base }

// Pages returns the number of pages in the pool.
func (a *Allocator) Pages() int { return a.pages }

// PageSize returns the size of a page in bytes.
func (a *Allocator) PageSize() int { return a.pageSize }

// MaxRank returns the largest rank of the allocator.
func (a *Allocator) MaxRank() int { return a.maxRank }

// BlockPages returns the number of pages of a block of rank.
func BlockPages(rank int) int {
	return 1 << (rank - 1)
}

// BlockSize returns the size in bytes of a block of rank.
func (a *Allocator) BlockSize(rank int) int {
	return a.pageSize << (rank - 1)
}

func (a *Allocator) validRank(rank int) bool {
	return rank >= 1 && rank <= a.maxRank
}

func (a *Allocator) addrOf(idx int32) Addr {
	return a.base + Addr(uintptr(idx)<<a.pageShift)
}

// pageIndex validates addr and returns its page index.
func (a *Allocator) pageIndex(addr Addr) (int32, error) {
	if addr < a.base {
		return 0, fmt.Errorf("%w: %#x is below the pool", ErrInvalidArgument, uintptr(addr))
	}
	off := uintptr(addr - a.base)
	if off&(uintptr(a.pageSize)-1) != 0 {
		return 0, fmt.Errorf("%w: %#x is not page aligned", ErrInvalidArgument, uintptr(addr))
	}
	idx := off >> a.pageShift
	if idx >= uintptr(a.pages) {
		return 0, fmt.Errorf("%w: %#x is beyond the pool", ErrInvalidArgument, uintptr(addr))
	}
	return int32(idx), nil
}
