package malloc

import "errors"

var (
	// ErrOutOfMemory is returned when no arena can hold a request and a new
	// arena could not be mapped.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("malloc: invalid size")

	// ErrInvalidPointer is returned by Free for pointers that do not point at
	// a payload inside one of the allocator's arenas, including aligned
	// pointers into arena memory no block was ever carved from.
	ErrInvalidPointer = errors.New("malloc: pointer not allocated by this allocator")

	// ErrDoubleFree is returned by Free when the header carries the marker
	// a previous Free left behind.
	ErrDoubleFree = errors.New("malloc: double free")

	// ErrCorruptedHeader is returned by Free when the block header fails its
	// integrity check, usually after a write overran the previous payload.
	ErrCorruptedHeader = errors.New("malloc: corrupted block header")

	// ErrCorruptedArena is returned by Check when an arena's bookkeeping is
	// inconsistent.
	ErrCorruptedArena = errors.New("malloc: corrupted arena")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("malloc: allocator closed")

	// ErrAlreadyInitialized is returned by Init when the default allocator exists.
	ErrAlreadyInitialized = errors.New("malloc: default allocator already initialized")

	// ErrUnsupportedType is returned by the typed helpers for types that hold
	// Go pointers or need more alignment than the allocator provides.
	ErrUnsupportedType = errors.New("malloc: unsupported type")
)
