//go:build unix

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

// Package osmem maps and unmaps the anonymous memory regions backing arenas.
//
// Regions are readable, writable and zero-filled. Their start is aligned to
// PageSize and their length is whatever the caller asked for, so callers
// usually round lengths up to a whole number of pages first.
package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map returns a new anonymous region of length bytes.
// If shared is true the region is mapped MAP_SHARED, otherwise MAP_PRIVATE.
func Map(length int, shared bool) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("osmem: invalid length %d", length)
	}
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if shared {
		flags = unix.MAP_ANON | unix.MAP_SHARED
	}
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("osmem: mmap %d bytes: %w", length, err)
	}
	return mem, nil
}

// Unmap releases a region returned by Map.
// It must be passed the same slice Map returned, not a reslice of it.
func Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("osmem: munmap %d bytes: %w", len(region), err)
	}
	return nil
}

// PageSize returns the OS page size in bytes.
func PageSize() int {
	return unix.Getpagesize()
}
