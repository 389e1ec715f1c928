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

// Command buddytrace replays an allocation trace against a buddy page allocator.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/goccy/go-json"

	"github.com/cloudwego/pagekit/arena"
	"github.com/cloudwego/pagekit/buddy"
	"github.com/cloudwego/pagekit/internal/trace"
)

const usage = `Buddy trace replayer.
Usage:
  buddytrace -h | --help
  buddytrace [--pages=N] [--page-size=N] [--max-rank=N] [--mmap] [--json] <trace>
Options:
  -h --help          Show this screen.
  --pages=N          Number of pages in the pool [default: 1024].
  --page-size=N      Size of a page in bytes [default: 4096].
  --max-rank=N       Largest block rank [default: 16].
  --mmap             Back the pool with an anonymous mapping instead of the heap.
  --json             Format output as JSON instead of text.`

type config struct {
	Help     bool `docopt:"--help"`
	Pages    int `docopt:"--pages"`
	PageSize int `docopt:"--page-size"`
	MaxRank  int `docopt:"--max-rank"`
	Mmap     bool
	JSON     bool `docopt:"--json"`
	Trace    string
}

type report struct {
	Results []trace.Result `json:"results"`
	Stats   buddy.Stats    `json:"stats"`
}

func main() {
	opts, _ := docopt.ParseDoc(usage)
	var cfg config
	if err := opts.Bind(&cfg); err != nil {
		log.Fatalf("bad arguments: %v", err)
	}

	f, err := os.Open(cfg.Trace)
	if err != nil {
		log.Fatal(err)
	}
	ops, err := trace.Parse(f)
	f.Close()
	if err != nil {
		log.Fatal(err)
	}

	newArena := arena.NewHeap
	if cfg.Mmap {
		newArena = arena.NewMmap
	}
	ar, err := newArena(cfg.Pages, cfg.PageSize)
	if err != nil {
		log.Fatal(err)
	}
	defer ar.Close()

	a, err := ar.NewAllocator(&buddy.Option{
		PageSize: cfg.PageSize,
		MaxRank:  cfg.MaxRank,
		MaxPages: cfg.Pages,
	})
	if err != nil {
		log.Fatal(err)
	}

	results, err := trace.Replay(a, ops)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report{Results: results, Stats: a.Stats()}); err != nil {
			log.Fatal(err)
		}
		return
	}

	for _, r := range results {
		fmt.Println(r)
	}
	s := a.Stats()
	fmt.Printf("pages=%d free=%d allocated=%d free_blocks=%d allocated_blocks=%d\n",
		s.Pages, s.FreePages, s.AllocatedPages, s.FreeBlocks, s.AllocatedBlocks)
	for r, n := range s.FreeCounts {
		if n > 0 {
			fmt.Printf("rank %d: %d free\n", r+1, n)
		}
	}
}
