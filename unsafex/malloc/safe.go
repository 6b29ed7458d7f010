package malloc

import (
	"sync"
	"unsafe"
)

// SafeAllocator guards one Allocator with a single mutex.
//
// Every operation serializes on the lock, including Free of blocks allocated
// by another goroutine. For lock-free use give each goroutine its own
// Allocator instead; blocks must then be freed to the allocator that
// returned them.
type SafeAllocator struct {
	mu sync.Mutex
	a  *Allocator
}

// NewSafeAllocator creates a mutex-guarded allocator. A nil o uses DefaultOption().
func NewSafeAllocator(o *Option) (*SafeAllocator, error) {
	a, err := NewAllocator(o)
	if err != nil {
		return nil, err
	}
	return &SafeAllocator{a: a}, nil
}

// Alignment returns the alignment of every pointer returned by Alloc.
func (s *SafeAllocator) Alignment() int {
	return s.a.Alignment()
}

// Alloc is the locked form of Allocator.Alloc.
func (s *SafeAllocator) Alloc(size int) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(size)
}

// AllocBytes is the locked form of Allocator.AllocBytes.
func (s *SafeAllocator) AllocBytes(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocBytes(size)
}

// Free is the locked form of Allocator.Free.
func (s *SafeAllocator) Free(p unsafe.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Free(p)
}

// FreeBytes is the locked form of Allocator.FreeBytes.
func (s *SafeAllocator) FreeBytes(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.FreeBytes(b)
}

// Stats is the locked form of Allocator.Stats.
func (s *SafeAllocator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

// Check is the locked form of Allocator.Check.
func (s *SafeAllocator) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Check()
}

// Close is the locked form of Allocator.Close.
func (s *SafeAllocator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Close()
}
