package malloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetDefault(t *testing.T) {
	t.Helper()
	prev := defaultAllocator
	defaultAllocator = nil
	t.Cleanup(func() {
		if defaultAllocator != nil {
			_ = defaultAllocator.Close()
		}
		defaultAllocator = prev
	})
}

func TestDefaultAllocatorLazyInit(t *testing.T) {
	resetDefault(t)

	var x uint64
	assert.NoError(t, Free(nil))
	assert.ErrorIs(t, Free(unsafe.Pointer(&x)), ErrInvalidPointer)
	assert.Nil(t, Default())

	p, err := Alloc(40)
	require.NoError(t, err)
	require.NotNil(t, Default())
	assert.Equal(t, 1, Default().Arenas())

	assert.ErrorIs(t, Init(nil), ErrAlreadyInitialized)
	assert.NoError(t, Free(p))
	assert.ErrorIs(t, Free(p), ErrDoubleFree)
}

func TestDefaultAllocatorInit(t *testing.T) {
	resetDefault(t)

	assert.Error(t, Init(&Option{Alignment: 12}))
	assert.Nil(t, Default())

	require.NoError(t, Init(&Option{Alignment: 64}))
	assert.ErrorIs(t, Init(nil), ErrAlreadyInitialized)

	p, err := Alloc(1)
	require.NoError(t, err)
	assert.Zero(t, uintptr(p)%64)
	assert.NoError(t, Free(p))
}
