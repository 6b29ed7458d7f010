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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/colosseum/unsafex/malloc"
)

type config struct {
	workers int
	ops     int
	maxSize int
	live    int
	seed    int64
	check   bool
	verify  bool
	opt     malloc.Option
}

type result struct {
	worker  int
	oom     int
	peak    malloc.Stats // snapshot when the most blocks were live
	stats   malloc.Stats // snapshot after every block was freed
	elapsed time.Duration
}

type block struct {
	b      []byte
	shadow []byte // copy of b kept on the Go heap, nil when not verifying
}

// stress runs cfg.ops random operations on a private allocator.
// Blocks are freed to the allocator that returned them, so workers never share state.
func stress(cfg *config, worker int) (r result, err error) {
	r.worker = worker
	opt := cfg.opt
	a, err := malloc.NewAllocator(&opt)
	if err != nil {
		return r, err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()

	rng := rand.New(rand.NewSource(cfg.seed + int64(worker)))
	scratch := dirtmake.Bytes(cfg.maxSize, cfg.maxSize)
	live := make([]block, 0, cfg.live)
	peak := -1

	release := func(blk block) error {
		if blk.shadow != nil {
			if !bytes.Equal(blk.b, blk.shadow) {
				return fmt.Errorf("worker %d: payload of %d bytes corrupted", worker, len(blk.b))
			}
			mcache.Free(blk.shadow)
		}
		return a.FreeBytes(blk.b)
	}

	start := time.Now()
	for i := 0; i < cfg.ops; i++ {
		if len(live) == cap(live) || (len(live) > 0 && rng.Intn(2) == 0) {
			idx := rng.Intn(len(live))
			if err := release(live[idx]); err != nil {
				return r, fmt.Errorf("worker %d op %d: %w", worker, i, err)
			}
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			n := rng.Intn(cfg.maxSize + 1)
			b, err := a.AllocBytes(n)
			if errors.Is(err, malloc.ErrOutOfMemory) {
				r.oom++
				continue
			}
			if err != nil {
				return r, fmt.Errorf("worker %d op %d: %w", worker, i, err)
			}
			blk := block{b: b}
			if cfg.verify && n > 0 {
				rng.Read(scratch[:n])
				copy(b, scratch[:n])
				blk.shadow = mcache.Malloc(n)
				copy(blk.shadow, scratch[:n])
			}
			live = append(live, blk)
			if len(live) > peak {
				peak = len(live)
				r.peak = a.Stats()
			}
		}
		if cfg.check {
			if err := a.Check(); err != nil {
				return r, fmt.Errorf("worker %d op %d: %w", worker, i, err)
			}
		}
	}

	for _, blk := range live {
		if err := release(blk); err != nil {
			return r, err
		}
	}
	r.elapsed = time.Since(start)
	r.stats = a.Stats()
	if r.stats.Available != r.stats.Capacity {
		return r, fmt.Errorf("worker %d: %d bytes still committed after freeing every block",
			worker, r.stats.Capacity-r.stats.Available)
	}
	return r, a.Check()
}
