package malloc

import (
	"fmt"

	"github.com/cloudwego/colosseum/internal/osmem"
)

const (
	// DefaultAlignment is the payload alignment used when Option.Alignment is 0.
	// 16 bytes, twice the pointer size on 64-bit platforms.
	DefaultAlignment = 16

	// DefaultArenaSize is the default minimum arena length. 0 sizes every
	// arena to the request that creates it, rounded up to whole pages.
	DefaultArenaSize = 0

	// MinBlockSize is the payload size handed out for zero-byte requests.
	MinBlockSize = 16

	// maxAlignment bounds Option.Alignment so padding always fits the header.
	maxAlignment = 4096
)

// Mapper provides the memory regions arenas are carved from.
//
// Map must return a zero-filled region of at least length bytes that the
// allocator owns exclusively until Unmap is called with that same slice.
type Mapper interface {
	Map(length int) ([]byte, error)
	Unmap(region []byte) error
	PageSize() int
}

// Option configures an Allocator.
type Option struct {
	// Alignment is the alignment of every payload pointer.
	// It must be a power of two between 8 and 4096.
	Alignment int

	// ArenaSize is the minimum length of a new arena, rounded up to whole pages.
	// Requests too big for it get an arena sized to fit them.
	// 0, the default, sizes every arena to the request that creates it;
	// a larger value such as 64KB trades memory for fewer mappings.
	ArenaSize int

	// MaxArenas caps the number of arenas. 0 means no limit.
	MaxArenas int

	// Shared maps arenas MAP_SHARED instead of MAP_PRIVATE.
	// Ignored when Mapper is set.
	Shared bool

	// Mapper overrides the OS as the source of arena memory.
	Mapper Mapper
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		Alignment: DefaultAlignment,
		ArenaSize: DefaultArenaSize,
	}
}

func (o *Option) validate() error {
	if o.Alignment == 0 {
		o.Alignment = DefaultAlignment
	}
	if o.Alignment < 8 || o.Alignment > maxAlignment || o.Alignment&(o.Alignment-1) != 0 {
		return fmt.Errorf("malloc: alignment must be a power of two in [8, %d], got %d", maxAlignment, o.Alignment)
	}
	if o.ArenaSize < 0 {
		return fmt.Errorf("malloc: arena size must be >= 0, got %d", o.ArenaSize)
	}
	if o.MaxArenas < 0 {
		return fmt.Errorf("malloc: max arenas must be >= 0, got %d", o.MaxArenas)
	}
	return nil
}

// osMapper maps arenas with mmap.
type osMapper struct {
	shared bool
}

func (m *osMapper) Map(length int) ([]byte, error) { return osmem.Map(length, m.shared) }

func (m *osMapper) Unmap(region []byte) error { return osmem.Unmap(region) }

func (m *osMapper) PageSize() int { return osmem.PageSize() }
