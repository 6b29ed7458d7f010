/*
 * Copyright 2025 CloudWeGo Authors
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

// colostress drives randomized allocate/free workloads against independent
// allocator pools, one per worker goroutine, and reports pool statistics.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cloudwego/colosseum/unsafex/malloc"
)

var (
	workersFlag = &cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Value:   4,
		Usage:   "number of workers, each with its own allocator",
	}
	opsFlag = &cli.IntFlag{
		Name:  "ops",
		Value: 100000,
		Usage: "allocate/free operations per worker",
	}
	maxSizeFlag = &cli.IntFlag{
		Name:  "max-size",
		Value: 4096,
		Usage: "largest request size in bytes",
	}
	liveFlag = &cli.IntFlag{
		Name:  "live",
		Value: 1024,
		Usage: "maximum live blocks per worker",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "random seed, worker i uses seed+i",
	}
	checkFlag = &cli.BoolFlag{
		Name:  "check",
		Usage: "verify arena bookkeeping after every operation (slow)",
	}
	verifyFlag = &cli.BoolFlag{
		Name:  "verify",
		Value: true,
		Usage: "fill payloads with random bytes and compare them before freeing",
	}

	// Allocator flags.
	alignmentFlag = &cli.IntFlag{
		Name:     "alignment",
		Value:    malloc.DefaultAlignment,
		Usage:    "payload alignment, a power of two in [8, 4096]",
		Category: "ALLOCATOR",
	}
	arenaSizeFlag = &cli.IntFlag{
		Name:     "arena-size",
		Value:    malloc.DefaultArenaSize,
		Usage:    "minimum arena size in bytes, 0 sizes arenas to the request",
		Category: "ALLOCATOR",
	}
	maxArenasFlag = &cli.IntFlag{
		Name:     "max-arenas",
		Usage:    "arena limit per worker, 0 means unlimited",
		Category: "ALLOCATOR",
	}
	sharedFlag = &cli.BoolFlag{
		Name:     "shared",
		Usage:    "map arenas MAP_SHARED instead of MAP_PRIVATE",
		Category: "ALLOCATOR",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "colostress",
		Usage: "stress the arena allocator with random workloads",
		Flags: []cli.Flag{
			workersFlag,
			opsFlag,
			maxSizeFlag,
			liveFlag,
			seedFlag,
			checkFlag,
			verifyFlag,
			alignmentFlag,
			arenaSizeFlag,
			maxArenasFlag,
			sharedFlag,
		},
		Action: run,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFromContext(ctx *cli.Context) (*config, error) {
	cfg := &config{
		workers: ctx.Int(workersFlag.Name),
		ops:     ctx.Int(opsFlag.Name),
		maxSize: ctx.Int(maxSizeFlag.Name),
		live:    ctx.Int(liveFlag.Name),
		seed:    ctx.Int64(seedFlag.Name),
		check:   ctx.Bool(checkFlag.Name),
		verify:  ctx.Bool(verifyFlag.Name),
		opt: malloc.Option{
			Alignment: ctx.Int(alignmentFlag.Name),
			ArenaSize: ctx.Int(arenaSizeFlag.Name),
			MaxArenas: ctx.Int(maxArenasFlag.Name),
			Shared:    ctx.Bool(sharedFlag.Name),
		},
	}
	if cfg.workers <= 0 || cfg.ops < 0 || cfg.maxSize < 0 || cfg.live <= 0 {
		return nil, fmt.Errorf("workers and live must be > 0, ops and max-size >= 0")
	}
	return cfg, nil
}

func run(ctx *cli.Context) error {
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	results := make([]result, cfg.workers)
	var g errgroup.Group
	start := time.Now()
	for i := 0; i < cfg.workers; i++ {
		i := i
		g.Go(func() error {
			r, err := stress(cfg, i)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		log.Printf("worker %d: allocs=%d frees=%d oom=%d arenas=%d capacity=%d elapsed=%v",
			r.worker, r.stats.Allocs, r.stats.Frees, r.oom, len(r.stats.Arenas), r.stats.Capacity, r.elapsed)
		for _, as := range r.peak.Arenas {
			log.Printf("  arena %d: size=%d capacity=%d available=%d free_entries=%d largest_free=%d",
				as.Index, as.Size, as.Capacity, as.Available, as.FreeEntries, as.LargestFree)
		}
	}
	total := cfg.workers * cfg.ops
	elapsed := time.Since(start)
	log.Printf("%d operations in %v (%.0f ops/s)", total, elapsed, float64(total)/elapsed.Seconds())
	return nil
}
