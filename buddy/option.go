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

import "fmt"

const (
	// DefaultPageSize is the default page size (4KB).
	DefaultPageSize = 4 * 1024

	// DefaultMaxRank is the default largest rank. A block of rank r has 2^(r-1) pages,
	// so the largest default block is 2^15 pages.
	DefaultMaxRank = 16

	// DefaultMaxPages is the default limit of pages a single pool may hold (1GB of 4KB pages).
	DefaultMaxPages = 256 * 1024

	// rankLimit bounds MaxRank so that the largest block still fits an int32 page index.
	rankLimit = 31
)

// Option ...
type Option struct {
	// PageSize is the size of a page in bytes. It must be a power of two.
	PageSize int

	// MaxRank is the largest rank the allocator hands out or coalesces to.
	MaxRank int

	// MaxPages is the max page count accepted by Init.
	// The metadata table is sized to the actual page count, this is only a limit.
	MaxPages int
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		PageSize: DefaultPageSize,
		MaxRank:  DefaultMaxRank,
		MaxPages: DefaultMaxPages,
	}
}

func (o *Option) validate() error {
	if o.PageSize <= 0 || o.PageSize&(o.PageSize-1) != 0 {
		return fmt.Errorf("PageSize must be a power of two, got %d", o.PageSize)
	}
	if o.MaxRank < 1 || o.MaxRank > rankLimit {
		return fmt.Errorf("MaxRank must be in [1, %d], got %d", rankLimit, o.MaxRank)
	}
	if o.MaxPages <= 0 || o.MaxPages > 1<<31-1 {
		return fmt.Errorf("MaxPages must be in [1, %d], got %d", 1<<31-1, o.MaxPages)
	}
	return nil
}
