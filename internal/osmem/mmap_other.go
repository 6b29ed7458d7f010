//go:build !unix

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

package osmem

import (
	"fmt"
	"os"
	"unsafe"
)

// Map falls back to the Go heap on platforms without mmap.
// The returned slice is zeroed and starts on a page boundary.
func Map(length int, shared bool) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("osmem: invalid length %d", length)
	}
	page := PageSize()
	buf := make([]byte, length+page)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&buf[0])) & uintptr(page-1)); rem != 0 {
		off = page - rem
	}
	return buf[off : off+length : off+length], nil
}

// Unmap is a no-op, the garbage collector reclaims heap-backed regions.
func Unmap(region []byte) error {
	return nil
}

// PageSize returns the OS page size in bytes.
func PageSize() int {
	return os.Getpagesize()
}
