package malloc

import (
	"encoding/binary"

	"github.com/bytedance/gopkg/util/xxhash3"
)

// Block and free entry layouts are encoded with encoding/binary rather than
// pointer casts: split points fall on arbitrary byte offsets.
const (
	// headerSize is the size of the header written before each payload:
	//
	//	[payload uint64][padding uint32][slack uint32][arena uint32][tag uint32]
	//
	// tag is last so the free entry Free writes at the block start, which
	// is at most padding bytes before the header, never overlaps it.
	headerSize = 24
	tagOffset  = 20

	// freeEntrySize is the size of a free list entry: [size uint64][next uint64].
	freeEntrySize = 16

	// nilEntry terminates a free list. Offset 0 always holds the arena record.
	nilEntry = 0
)

// blockHeader is the decoded form of the header preceding a payload.
type blockHeader struct {
	payload int // bytes requested by the caller
	padding int // bytes between the block start and the header
	slack   int // tail bytes absorbed from an entry too small to split
	arena   int // index of the owning arena
	tag     uint32
}

func readHeader(b []byte) blockHeader {
	_ = b[headerSize-1]
	return blockHeader{
		payload: int(binary.LittleEndian.Uint64(b)),
		padding: int(binary.LittleEndian.Uint32(b[8:])),
		slack:   int(binary.LittleEndian.Uint32(b[12:])),
		arena:   int(binary.LittleEndian.Uint32(b[16:])),
		tag:     binary.LittleEndian.Uint32(b[tagOffset:]),
	}
}

func (h *blockHeader) write(b []byte) {
	_ = b[headerSize-1]
	binary.LittleEndian.PutUint64(b, uint64(h.payload))
	binary.LittleEndian.PutUint32(b[8:], uint32(h.padding))
	binary.LittleEndian.PutUint32(b[12:], uint32(h.slack))
	binary.LittleEndian.PutUint32(b[16:], uint32(h.arena))
	binary.LittleEndian.PutUint32(b[tagOffset:], h.tag)
}

// span returns the number of arena bytes the block occupies.
func (h *blockHeader) span() int {
	return h.padding + headerSize + h.payload + h.slack
}

// seal returns the tag of a live header written at offset off in an arena
// stamped with stamp. It is never 0, which untouched arena memory reads as,
// and never the freed marker for the same offset.
func (h *blockHeader) seal(stamp uint64, off int) uint32 {
	var b [36]byte
	binary.LittleEndian.PutUint64(b[0:], stamp)
	binary.LittleEndian.PutUint64(b[8:], uint64(off))
	binary.LittleEndian.PutUint64(b[16:], uint64(h.payload))
	binary.LittleEndian.PutUint32(b[24:], uint32(h.padding))
	binary.LittleEndian.PutUint32(b[28:], uint32(h.slack))
	binary.LittleEndian.PutUint32(b[32:], uint32(h.arena))
	tag := fold(xxhash3.Hash(b[:]))
	for freed := freedTag(stamp, off); tag == 0 || tag == freed; {
		tag++
	}
	return tag
}

// freedTag returns the marker release leaves in the tag of a header at off.
// It depends on the offset only: the free entry written at the block start
// may overwrite the other header fields.
func freedTag(stamp uint64, off int) uint32 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:], ^stamp)
	binary.LittleEndian.PutUint64(b[8:], uint64(off))
	if tag := fold(xxhash3.Hash(b[:])); tag != 0 {
		return tag
	}
	return 1
}

func fold(sum uint64) uint32 {
	return uint32(sum) ^ uint32(sum>>32)
}
