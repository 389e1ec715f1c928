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

package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/pagekit/buddy"
)

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name     string
		pages    int
		pageSize int
	}{
		{"zero_pages", 0, 4096},
		{"negative_pages", -1, 4096},
		{"page_size_not_pow2", 8, 4000},
		{"page_size_zero", 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHeap(tt.pages, tt.pageSize)
			assert.Error(t, err)
			_, err = NewMmap(tt.pages, tt.pageSize)
			assert.Error(t, err)
		})
	}
}

func testArena(t *testing.T, a *Arena) {
	t.Helper()
	defer func() {
		require.NoError(t, a.Close())
		require.NoError(t, a.Close()) // no-op
		assert.Zero(t, a.Len())
	}()

	assert.Equal(t, 16, a.Pages())
	assert.Equal(t, 4096, a.PageSize())
	assert.Equal(t, 16*4096, a.Len())

	ba, err := a.NewAllocator(nil)
	require.NoError(t, err)
	assert.Equal(t, a.Base(), ba.Base())

	p1, err := ba.Alloc(1)
	require.NoError(t, err)
	p2, err := ba.Alloc(3)
	require.NoError(t, err)

	b1, err := a.Block(p1, 1)
	require.NoError(t, err)
	b2, err := a.Block(p2, 3)
	require.NoError(t, err)
	assert.Equal(t, 4096, len(b1))
	assert.Equal(t, 4*4096, len(b2))
	assert.Equal(t, 4*4096, cap(b2))

	for i := range b1 {
		b1[i] = 1
	}
	for i := range b2 {
		b2[i] = 2
	}
	for i := range b1 {
		require.Equal(t, byte(1), b1[i])
	}

	require.NoError(t, ba.Free(p1))
	require.NoError(t, ba.Free(p2))
}

func TestHeap(t *testing.T) {
	a, err := NewHeap(16, 4096)
	require.NoError(t, err)
	testArena(t, a)
}

func TestMmap(t *testing.T) {
	a, err := NewMmap(16, 4096)
	require.NoError(t, err)
	testArena(t, a)
}

func TestBlockErrors(t *testing.T) {
	a, err := NewHeap(8, 4096)
	require.NoError(t, err)

	base := a.Base()
	for _, tc := range []struct {
		addr buddy.Addr
		rank int
	}{
		{base - 4096, 1},
		{base + 1, 1},
		{base + 8*4096, 1},
		{base + 4*4096, 4}, // 8 pages from page 4
		{base, 0},
		{base, 32},
	} {
		_, err := a.Block(tc.addr, tc.rank)
		assert.ErrorIs(t, err, buddy.ErrInvalidArgument, "addr=%#x rank=%d", tc.addr, tc.rank)
	}

	b, err := a.Block(base, 4)
	require.NoError(t, err)
	assert.Equal(t, 8*4096, len(b))

	require.NoError(t, a.Close())
	_, err = a.Block(base, 1)
	assert.Error(t, err)
}

func TestNewAllocatorOption(t *testing.T) {
	a, err := NewHeap(64, 8192)
	require.NoError(t, err)
	defer a.Close()

	ba, err := a.NewAllocator(&buddy.Option{PageSize: 4096, MaxRank: 3, MaxPages: 8})
	require.NoError(t, err)
	assert.Equal(t, 8192, ba.PageSize())
	assert.Equal(t, 3, ba.MaxRank())
	assert.Equal(t, 64, ba.Pages())
	n, err := ba.FreeCount(3)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
