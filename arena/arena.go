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

// Package arena provides the memory behind a buddy pool.
//
// The buddy allocator only hands out addresses. An Arena owns the pages those
// addresses refer to and gives access to them as byte slices.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/pagekit/buddy"
)

var errClosed = errors.New("arena: closed")

// Arena is a contiguous run of pages.
type Arena struct {
	buf      []byte
	base     buddy.Addr
	pages    int
	pageSize int

	release func([]byte) error
}

// NewHeap returns an arena of pages pages on the Go heap.
// The memory comes from mcache and is not zeroed.
func NewHeap(pages, pageSize int) (*Arena, error) {
	if err := checkSize(pages, pageSize); err != nil {
		return nil, err
	}
	buf := mcache.Malloc(pages * pageSize)
	return newArena(buf, pages, pageSize, func(b []byte) error {
		mcache.Free(b)
		return nil
	}), nil
}

// NewMmap returns an arena of pages pages backed by an anonymous private mapping.
// On systems without mmap support it falls back to NewHeap.
func NewMmap(pages, pageSize int) (*Arena, error) {
	if err := checkSize(pages, pageSize); err != nil {
		return nil, err
	}
	return mmapArena(pages, pageSize)
}

func checkSize(pages, pageSize int) error {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return fmt.Errorf("arena: page size must be a power of two, got %d", pageSize)
	}
	if pages <= 0 || pages > int(^uint(0)>>1)/pageSize {
		return fmt.Errorf("arena: invalid page count %d", pages)
	}
	return nil
}

func newArena(buf []byte, pages, pageSize int, release func([]byte) error) *Arena {
	return &Arena{
		buf:      buf[:pages*pageSize],
		base:     buddy.Addr(unsafe.Pointer(&buf[0])),
		pages:    pages,
		pageSize: pageSize,
		release:  release,
	}
}

// Base returns the address of the first page.
func (a *Arena) Base() buddy.Addr { return a.base }

// Pages returns the number of pages.
func (a *Arena) Pages() int { return a.pages }

// PageSize returns the size of a page in bytes.
func (a *Arena) PageSize() int { return a.pageSize }

// Len returns the size of the arena in bytes, or 0 once closed.
func (a *Arena) Len() int { return len(a.buf) }

// NewAllocator returns a buddy allocator managing the pages of the arena.
// The page size of opt is replaced by the arena's one, a nil opt means buddy.DefaultOption.
func (a *Arena) NewAllocator(opt *buddy.Option) (*buddy.Allocator, error) {
	o := buddy.DefaultOption()
	if opt != nil {
		*o = *opt
	}
	o.PageSize = a.pageSize
	if a.pages > o.MaxPages {
		o.MaxPages = a.pages
	}
	return buddy.NewWithOption(a.base, a.pages, o)
}

// Block returns the memory of the block of rank starting at addr.
// It returns buddy.ErrInvalidArgument if the block is not inside the arena or not page aligned.
func (a *Arena) Block(addr buddy.Addr, rank int) ([]byte, error) {
	if a.buf == nil {
		return nil, errClosed
	}
	if rank < 1 || rank > 31 {
		return nil, fmt.Errorf("%w: rank %d", buddy.ErrInvalidArgument, rank)
	}
	if addr < a.base {
		return nil, fmt.Errorf("%w: %#x is below the arena", buddy.ErrInvalidArgument, uintptr(addr))
	}
	off := uint64(addr - a.base)
	size := uint64(a.pageSize) << (rank - 1)
	if off&uint64(a.pageSize-1) != 0 {
		return nil, fmt.Errorf("%w: %#x is not page aligned", buddy.ErrInvalidArgument, uintptr(addr))
	}
	if off+size > uint64(len(a.buf)) {
		return nil, fmt.Errorf("%w: block of rank %d at %#x is beyond the arena",
			buddy.ErrInvalidArgument, rank, uintptr(addr))
	}
	return a.buf[off : off+size : off+size], nil
}

// Close releases the memory. Slices returned by Block must not be used afterwards.
// Calling Close more than once is a no-op.
func (a *Arena) Close() error {
	if a.buf == nil {
		return nil
	}
	buf := a.buf
	a.buf = nil
	return a.release(buf)
}
