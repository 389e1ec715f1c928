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

package main

import (
	"os"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/pagekit/arena"
	"github.com/cloudwego/pagekit/internal/trace"
)

func TestUsage(t *testing.T) {
	opts, err := docopt.ParseArgs(usage, []string{"--pages=8", "--mmap", "--json", "x.trace"}, "")
	require.NoError(t, err)
	var cfg config
	require.NoError(t, opts.Bind(&cfg))
	assert.Equal(t, config{Pages: 8, PageSize: 4096, MaxRank: 16, Mmap: true, JSON: true, Trace: "x.trace"}, cfg)
}

func TestEightPagesTrace(t *testing.T) {
	f, err := os.Open("testdata/eight_pages.trace")
	require.NoError(t, err)
	defer f.Close()
	ops, err := trace.Parse(f)
	require.NoError(t, err)

	ar, err := arena.NewHeap(8, 4096)
	require.NoError(t, err)
	defer ar.Close()
	a, err := ar.NewAllocator(nil)
	require.NoError(t, err)

	res, err := trace.Replay(a, ops)
	require.NoError(t, err)
	require.Len(t, res, 7)
	assert.Equal(t, uintptr(ar.Base()), res[0].Addr)
	assert.Equal(t, 1, res[1].Value)
	assert.Equal(t, 1, res[2].Value)
	assert.Equal(t, 2, res[3].Value)
	assert.Empty(t, res[4].Err)
	assert.Equal(t, 1, res[5].Value)
	assert.NotEmpty(t, res[6].Err)
	assert.Equal(t, 8, a.Stats().FreePages)
}
