package malloc

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Heap is the allocation interface shared by Allocator and SafeAllocator.
type Heap interface {
	Alloc(size int) (unsafe.Pointer, error)
	Free(p unsafe.Pointer) error
	Alignment() int
}

var (
	_ Heap = (*Allocator)(nil)
	_ Heap = (*SafeAllocator)(nil)
)

// New allocates a zeroed T from h.
//
// T must not contain Go pointers (pointers, strings, slices, maps, channels,
// funcs or interfaces): the garbage collector does not scan arena memory.
func New[T any](h Heap) (*T, error) {
	var zero T
	if err := checkType(reflect.TypeOf((*T)(nil)).Elem(), h.Alignment()); err != nil {
		return nil, err
	}
	size := int(unsafe.Sizeof(zero))
	p, err := h.Alloc(size)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), size))
	return (*T)(p), nil
}

// Delete frees a value returned by New.
func Delete[T any](h Heap, v *T) error {
	return h.Free(unsafe.Pointer(v))
}

// MakeSlice allocates a zeroed []T of length and capacity n from h.
// n == 0 returns a nil slice without allocating. T follows the rules of New.
func MakeSlice[T any](h Heap, n int) ([]T, error) {
	var zero T
	if err := checkType(reflect.TypeOf((*T)(nil)).Elem(), h.Alignment()); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: slice length %d", ErrInvalidSize, n)
	}
	if n == 0 {
		return nil, nil
	}
	elem := int(unsafe.Sizeof(zero))
	if elem > 0 && n > maxAllocSize/elem {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrOutOfMemory, n, elem)
	}
	p, err := h.Alloc(n * elem)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), n*elem))
	return unsafe.Slice((*T)(p), n), nil
}

// FreeSlice frees a slice returned by MakeSlice. The slice may be resliced
// at its end but not at its start. Zero-cap slices are ignored.
func FreeSlice[T any](h Heap, s []T) error {
	if cap(s) == 0 {
		return nil
	}
	return h.Free(unsafe.Pointer(unsafe.SliceData(s)))
}

func checkType(t reflect.Type, align int) error {
	if hasPointers(t) {
		return fmt.Errorf("%w: %v contains Go pointers", ErrUnsupportedType, t)
	}
	if t.Align() > align {
		return fmt.Errorf("%w: %v needs %d-byte alignment, allocator aligns to %d",
			ErrUnsupportedType, t, t.Align(), align)
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.String, reflect.Slice,
		reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
