// Package malloc implements a first-fit arena / best-fit block allocator over
// memory mapped from the OS.
//
// An Allocator owns a chain of arenas. Alloc picks the first arena with room
// for the request (growing the chain when none has), then the smallest free
// entry in that arena that fits the request once the payload is aligned.
// Every block carries a sealed header in front of its payload so Free can
// find the owning arena and reject pointers it did not hand out.
//
// Freed blocks go back to the head of their arena's free list as they are.
// Adjacent free ranges are never merged and arenas are only unmapped by Close.
//
// An Allocator is not safe for concurrent use, see SafeAllocator.
package malloc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"unsafe"
)

// maxAllocSize keeps size arithmetic clear of overflow.
const maxAllocSize = math.MaxInt >> 2

// Allocator is a pool of arenas serving variably-sized blocks.
type Allocator struct {
	opt    Option
	mapper Mapper
	page   int

	// seed stamps every arena and keys header tags, so blocks of one
	// allocator do not verify against another.
	seed uint64

	// arenas in creation order; arenas[i].index == i.
	arenas []*Arena

	allocs uint64
	frees  uint64
	closed bool
}

// NewAllocator creates an allocator. A nil o uses DefaultOption().
// No memory is mapped until the first Alloc.
func NewAllocator(o *Option) (*Allocator, error) {
	if o == nil {
		o = DefaultOption()
	}
	opt := *o
	if err := opt.validate(); err != nil {
		return nil, err
	}
	m := opt.Mapper
	if m == nil {
		m = &osMapper{shared: opt.Shared}
	}
	page := m.PageSize()
	if page <= 0 || page&(page-1) != 0 {
		return nil, fmt.Errorf("malloc: page size must be a power of two, got %d", page)
	}
	return &Allocator{
		opt:    opt,
		mapper: m,
		page:   page,
		seed:   rand.Uint64(),
	}, nil
}

// Alignment returns the alignment of every pointer returned by Alloc.
func (a *Allocator) Alignment() int {
	return a.opt.Alignment
}

// Alloc returns a pointer to size bytes aligned to Alignment().
// A size of 0 allocates MinBlockSize bytes.
//
// The memory is not zeroed when it reuses a freed block.
// On failure no arena is modified.
func (a *Allocator) Alloc(size int) (unsafe.Pointer, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if size == 0 {
		size = MinBlockSize
	}
	if size > maxAllocSize {
		return nil, fmt.Errorf("%w: request of %d bytes", ErrOutOfMemory, size)
	}

	ar, f, err := a.selectOrGrow(size)
	if err != nil {
		return nil, err
	}
	a.allocs++
	return ar.carve(f, size, a.seed), nil
}

// AllocBytes is like Alloc but returns the payload as a slice of len size.
// The slice's cap is the payload size, and it must be passed to FreeBytes
// without reslicing its start.
func (a *Allocator) AllocBytes(size int) ([]byte, error) {
	n := size
	if n == 0 {
		n = MinBlockSize
	}
	p, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), n)[:size], nil
}

// Free returns the block at p to its arena. Freeing nil is a no-op.
//
// It returns ErrInvalidPointer if p is not a payload pointer inside one of
// this allocator's arenas, ErrDoubleFree if the block is already free, and
// ErrCorruptedHeader if the header does not verify. None of them modify the
// allocator. A block freed and then allocated again cannot be told apart
// from a live one, so a late second Free releases the new block.
func (a *Allocator) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	if a.closed {
		return ErrClosed
	}
	ar, hoff, err := a.locate(p)
	if err != nil {
		return err
	}

	h := readHeader(ar.region[hoff:])
	switch h.tag {
	case 0:
		// nothing was ever allocated here
		return fmt.Errorf("%w: %p", ErrInvalidPointer, p)
	case freedTag(a.seed, hoff):
		return fmt.Errorf("%w: %p", ErrDoubleFree, p)
	}
	if h.arena != ar.index || h.tag != h.seal(a.seed, hoff) {
		return fmt.Errorf("%w: %p", ErrCorruptedHeader, p)
	}
	if hoff-h.padding < arenaRecordSize || hoff+headerSize+h.payload+h.slack > len(ar.region) {
		return fmt.Errorf("%w: %p spans outside arena %d", ErrCorruptedHeader, p, ar.index)
	}

	ar.release(a.seed, hoff, h)
	a.frees++
	return nil
}

// FreeBytes frees a slice returned by AllocBytes. Empty-cap slices are ignored.
func (a *Allocator) FreeBytes(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	return a.Free(unsafe.Pointer(unsafe.SliceData(b)))
}

// Close unmaps every arena. Pointers returned by Alloc must not be used afterwards.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var errs []error
	for _, ar := range a.arenas {
		if err := a.mapper.Unmap(ar.region); err != nil {
			errs = append(errs, err)
		}
		ar.region = nil
	}
	a.arenas = nil
	return errors.Join(errs...)
}

// Arenas returns the number of arenas mapped so far.
func (a *Allocator) Arenas() int {
	return len(a.arenas)
}

// selectOrGrow returns the first arena, in creation order, with a free entry
// that fits a size-byte payload, mapping a new arena when none has one.
func (a *Allocator) selectOrGrow(size int) (*Arena, fit, error) {
	align := a.opt.Alignment
	needed := headerSize + size
	for _, ar := range a.arenas {
		if ar.available < needed {
			continue
		}
		if f, ok := ar.bestFit(size, align); ok {
			return ar, f, nil
		}
	}

	// align-1 covers the worst-case padding in front of the header.
	ar, err := a.createArena(needed + align - 1)
	if err != nil {
		return nil, fit{}, err
	}
	f, ok := ar.bestFit(size, align)
	if !ok {
		_ = a.mapper.Unmap(ar.region)
		return nil, fit{}, fmt.Errorf("%w: new arena of %d bytes cannot hold %d", ErrOutOfMemory, len(ar.region), size)
	}
	a.arenas = append(a.arenas, ar)
	return ar, f, nil
}

// createArena maps an arena able to hold minSize bytes of blocks.
// The caller appends it to the chain.
func (a *Allocator) createArena(minSize int) (*Arena, error) {
	if a.opt.MaxArenas > 0 && len(a.arenas) >= a.opt.MaxArenas {
		return nil, fmt.Errorf("%w: arena limit %d reached", ErrOutOfMemory, a.opt.MaxArenas)
	}
	length := alignUp(minSize+arenaRecordSize+freeEntrySize, a.page)
	if length < a.opt.ArenaSize {
		length = alignUp(a.opt.ArenaSize, a.page)
	}
	region, err := a.mapper.Map(length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if len(region) < length {
		_ = a.mapper.Unmap(region)
		return nil, fmt.Errorf("%w: mapped %d bytes, want %d", ErrOutOfMemory, len(region), length)
	}
	return newArena(region, len(a.arenas), a.seed), nil
}

// locate finds the arena holding the payload pointer p and the offset of its header.
func (a *Allocator) locate(p unsafe.Pointer) (*Arena, int, error) {
	addr := uintptr(p)
	if addr&uintptr(a.opt.Alignment-1) != 0 {
		return nil, 0, fmt.Errorf("%w: %p is not %d-byte aligned", ErrInvalidPointer, p, a.opt.Alignment)
	}
	for _, ar := range a.arenas {
		if ar.contains(addr) {
			return ar, int(addr-ar.base) - headerSize, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %p", ErrInvalidPointer, p)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
