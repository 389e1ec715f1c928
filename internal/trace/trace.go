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

// Package trace parses and replays allocation traces.
//
// A trace has one operation per line:
//
//	alloc <name> <rank>
//	free <name>
//	rank <name>
//	count <rank>
//	reset
//
// Blank lines and lines starting with # are ignored.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/pagekit/buddy"
)

// Kind is the kind of an operation.
type Kind int

const (
	KindAlloc Kind = iota + 1
	KindFree
	KindRank
	KindCount
	KindReset
)

var kindNames = map[string]Kind{
	"alloc": KindAlloc,
	"free":  KindFree,
	"rank":  KindRank,
	"count": KindCount,
	"reset": KindReset,
}

func (k Kind) String() string {
	for s, v := range kindNames {
		if v == k {
			return s
		}
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Op is a parsed trace line.
type Op struct {
	Line int
	Kind Kind
	Name string
	Rank int
}

// Parse reads a trace from r.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	kind, ok := kindNames[fields[0]]
	if !ok {
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
	want := map[Kind]int{KindAlloc: 3, KindFree: 2, KindRank: 2, KindCount: 2, KindReset: 1}[kind]
	if len(fields) != want {
		return Op{}, fmt.Errorf("%s takes %d arguments, got %d", kind, want-1, len(fields)-1)
	}

	op := Op{Kind: kind}
	var err error
	switch kind {
	case KindAlloc:
		op.Name = fields[1]
		op.Rank, err = strconv.Atoi(fields[2])
	case KindFree, KindRank:
		op.Name = fields[1]
	case KindCount:
		op.Rank, err = strconv.Atoi(fields[1])
	}
	if err != nil {
		return Op{}, fmt.Errorf("bad rank: %w", err)
	}
	return op, nil
}

// Allocator is the method set Replay needs, both *buddy.Allocator and *buddy.Locked implement it.
type Allocator interface {
	Alloc(rank int) (buddy.Addr, error)
	Free(addr buddy.Addr) error
	QueryRank(addr buddy.Addr) (int, error)
	FreeCount(rank int) (int, error)
	Reset()
}

// Result is the outcome of one operation.
type Result struct {
	Line int    `json:"line"`
	Op   string `json:"op"`
	Name string `json:"name,omitempty"`
	Rank int    `json:"rank,omitempty"`

	// Addr is set by alloc, free and rank.
	Addr uintptr `json:"addr,omitempty"`
	// Value is the rank returned by rank, or the count returned by count.
	Value int `json:"value"`

	Err string `json:"error,omitempty"`
}

func (r Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: %s", r.Line, r.Op)
	if r.Name != "" {
		fmt.Fprintf(&sb, " %s", r.Name)
	}
	if r.Rank != 0 {
		fmt.Fprintf(&sb, " rank=%d", r.Rank)
	}
	if r.Err != "" {
		fmt.Fprintf(&sb, " error=%q", r.Err)
		return sb.String()
	}
	if r.Addr != 0 {
		fmt.Fprintf(&sb, " addr=%#x", r.Addr)
	}
	if r.Op == "rank" || r.Op == "count" {
		fmt.Fprintf(&sb, " -> %d", r.Value)
	}
	return sb.String()
}

var errNameInUse = errors.New("name is still allocated")

// Replay runs ops against a and returns one result per op.
// Errors of the allocator are recorded in the results. Replay only fails when a
// trace refers to a name that was never allocated or reuses a live name.
func Replay(a Allocator, ops []Op) ([]Result, error) {
	type block struct {
		addr buddy.Addr
		live bool
	}
	names := make(map[string]*block)
	results := make([]Result, 0, len(ops))

	lookup := func(op Op) (*block, error) {
		b := names[op.Name]
		if b == nil {
			return nil, fmt.Errorf("trace: line %d: unknown name %q", op.Line, op.Name)
		}
		return b, nil
	}

	for _, op := range ops {
		res := Result{Line: op.Line, Op: op.Kind.String(), Name: op.Name, Rank: op.Rank}
		var err error
		switch op.Kind {
		case KindAlloc:
			if b := names[op.Name]; b != nil && b.live {
				return nil, fmt.Errorf("trace: line %d: %q: %w", op.Line, op.Name, errNameInUse)
			}
			var addr buddy.Addr
			if addr, err = a.Alloc(op.Rank); err == nil {
				names[op.Name] = &block{addr: addr, live: true}
				res.Addr = uintptr(addr)
			}
		case KindFree:
			b, lerr := lookup(op)
			if lerr != nil {
				return nil, lerr
			}
			res.Addr = uintptr(b.addr)
			if err = a.Free(b.addr); err == nil {
				b.live = false
			}
		case KindRank:
			b, lerr := lookup(op)
			if lerr != nil {
				return nil, lerr
			}
			res.Addr = uintptr(b.addr)
			res.Value, err = a.QueryRank(b.addr)
		case KindCount:
			res.Value, err = a.FreeCount(op.Rank)
		case KindReset:
			a.Reset()
			names = make(map[string]*block)
		}
		if err != nil {
			res.Err = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}
