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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSize(t *testing.T) {
	page := PageSize()
	assert.Greater(t, page, 0)
	assert.Equal(t, 0, page&(page-1), "page size must be a power of two")
}

func TestMapUnmap(t *testing.T) {
	for _, shared := range []bool{false, true} {
		length := 3 * PageSize()
		mem, err := Map(length, shared)
		require.NoError(t, err)
		require.Len(t, mem, length)

		// page aligned and zero filled
		assert.Zero(t, uintptr(unsafe.Pointer(&mem[0]))&uintptr(PageSize()-1))
		for i := range mem {
			if mem[i] != 0 {
				t.Fatalf("byte %d not zeroed: %d", i, mem[i])
			}
		}

		for i := range mem {
			mem[i] = byte(i)
		}
		assert.Equal(t, byte(length-1), mem[length-1])
		assert.NoError(t, Unmap(mem))
	}
}

func TestMapInvalidLength(t *testing.T) {
	_, err := Map(0, false)
	assert.Error(t, err)
	_, err = Map(-1, false)
	assert.Error(t, err)
	assert.NoError(t, Unmap(nil))
}
