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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocked(t *testing.T) {
	a, err := New(testBase, 1024)
	require.NoError(t, err)
	fp := a.Fingerprint()
	l := NewLocked(a)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			var ps []Addr
			for i := 0; i < 500; i++ {
				rank := 1 + (g+i)%4
				p, err := l.Alloc(rank)
				if err != nil {
					assert.ErrorIs(t, err, ErrOutOfSpace)
					continue
				}
				r, err := l.QueryRank(p)
				assert.NoError(t, err)
				assert.Equal(t, rank, r)
				ps = append(ps, p)
				if len(ps) > 8 {
					assert.NoError(t, l.Free(ps[0]))
					ps = ps[1:]
				}
				_, err = l.FreeCount(rank)
				assert.NoError(t, err)
			}
			for _, p := range ps {
				assert.NoError(t, l.Free(p))
			}
		}(g)
	}
	wg.Wait()

	checkInvariants(t, a)
	assert.Equal(t, fp, l.Fingerprint())
	assert.Equal(t, 1024, l.Stats().FreePages)

	_, err = l.Alloc(1)
	require.NoError(t, err)
	l.Reset()
	assert.Equal(t, fp, l.Fingerprint())

	require.NoError(t, l.Init(testBase, 8))
	n, err := l.FreeCount(4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
