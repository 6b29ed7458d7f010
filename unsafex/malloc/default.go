package malloc

import "unsafe"

// defaultAllocator backs the package-level Alloc and Free.
var defaultAllocator *Allocator

// Init creates the default allocator with o. It returns ErrAlreadyInitialized
// if the default allocator already exists, whether from an earlier Init or
// from the first call to Alloc.
func Init(o *Option) error {
	if defaultAllocator != nil {
		return ErrAlreadyInitialized
	}
	a, err := NewAllocator(o)
	if err != nil {
		return err
	}
	defaultAllocator = a
	return nil
}

// Default returns the default allocator, or nil before Init or the first Alloc.
func Default() *Allocator {
	return defaultAllocator
}

// Alloc allocates from the default allocator, creating it with
// DefaultOption() on first use. Like the allocator itself it must not be
// called concurrently.
func Alloc(size int) (unsafe.Pointer, error) {
	if defaultAllocator == nil {
		if err := Init(nil); err != nil {
			return nil, err
		}
	}
	return defaultAllocator.Alloc(size)
}

// Free frees p to the default allocator.
func Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	if defaultAllocator == nil {
		return ErrInvalidPointer
	}
	return defaultAllocator.Free(p)
}
