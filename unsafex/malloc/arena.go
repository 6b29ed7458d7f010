package malloc

import (
	"encoding/binary"
	"unsafe"
)

// arenaRecordSize is the size of the record at the start of every arena:
// [stamp uint64][index uint64].
const arenaRecordSize = 16

// Arena is one mapped region and the intrusive free list over its unused bytes.
//
// All addressing inside an arena is by offset from the start of region.
// Free entries and live blocks tile [arenaRecordSize, len(region)) exactly.
type Arena struct {
	region []byte
	base   uintptr

	index     int
	capacity  int // usable bytes, immutable
	available int // bytes not committed to live blocks
	head      int // offset of the first free entry, or nilEntry
}

// fit is a free entry chosen to hold a block.
type fit struct {
	prev    int // predecessor in the free list, nilEntry when off is the head
	off     int
	size    int
	padding int
}

func newArena(region []byte, index int, stamp uint64) *Arena {
	ar := &Arena{
		region:   region,
		base:     uintptr(unsafe.Pointer(&region[0])),
		index:    index,
		capacity: len(region) - arenaRecordSize,
	}
	binary.LittleEndian.PutUint64(region[0:], stamp)
	binary.LittleEndian.PutUint64(region[8:], uint64(index))

	ar.available = ar.capacity
	ar.putEntry(arenaRecordSize, ar.capacity, nilEntry)
	ar.head = arenaRecordSize
	return ar
}

func (ar *Arena) record() (stamp uint64, index int) {
	return binary.LittleEndian.Uint64(ar.region[0:]), int(binary.LittleEndian.Uint64(ar.region[8:]))
}

func (ar *Arena) entry(off int) (size, next int) {
	b := ar.region[off : off+freeEntrySize]
	return int(binary.LittleEndian.Uint64(b)), int(binary.LittleEndian.Uint64(b[8:]))
}

func (ar *Arena) putEntry(off, size, next int) {
	b := ar.region[off : off+freeEntrySize]
	binary.LittleEndian.PutUint64(b, uint64(size))
	binary.LittleEndian.PutUint64(b[8:], uint64(next))
}

// link points prev (or the list head when prev is nilEntry) at next.
func (ar *Arena) link(prev, next int) {
	if prev == nilEntry {
		ar.head = next
		return
	}
	binary.LittleEndian.PutUint64(ar.region[prev+8:], uint64(next))
}

// padding returns the bytes to skip from a block starting at off so that
// the payload following the header is aligned to align.
func (ar *Arena) padding(off, align int) int {
	payload := ar.base + uintptr(off+headerSize)
	return int(-payload & uintptr(align-1))
}

// bestFit returns the smallest free entry that holds a size-byte payload
// aligned to align. Ties go to the entry found first.
func (ar *Arena) bestFit(size, align int) (f fit, ok bool) {
	needed := headerSize + size
	prev := nilEntry
	for off := ar.head; off != nilEntry; {
		esize, next := ar.entry(off)
		if pad := ar.padding(off, align); esize >= pad+needed && (!ok || esize < f.size) {
			f = fit{prev: prev, off: off, size: esize, padding: pad}
			ok = true
		}
		prev, off = off, next
	}
	return f, ok
}

// carve places a block for a size-byte payload in the entry f and returns
// the payload pointer.
func (ar *Arena) carve(f fit, size int, stamp uint64) unsafe.Pointer {
	consumed := f.padding + headerSize + size
	_, next := ar.entry(f.off)

	slack := 0
	if rest := f.size - consumed; rest > freeEntrySize {
		split := f.off + consumed
		ar.putEntry(split, rest, next)
		ar.link(f.prev, split)
	} else {
		slack = rest
		ar.link(f.prev, next)
	}

	hoff := f.off + f.padding
	h := blockHeader{payload: size, padding: f.padding, slack: slack, arena: ar.index}
	h.tag = h.seal(stamp, hoff)
	h.write(ar.region[hoff:])

	ar.available -= consumed + slack
	return unsafe.Pointer(&ar.region[hoff+headerSize])
}

// release turns the block whose header is at hoff back into a free entry
// at the head of the list, leaving the freed marker in its tag.
func (ar *Arena) release(stamp uint64, hoff int, h blockHeader) {
	binary.LittleEndian.PutUint32(ar.region[hoff+tagOffset:], freedTag(stamp, hoff))

	start, n := hoff-h.padding, h.span()
	ar.putEntry(start, n, ar.head)
	ar.head = start
	ar.available += n
}

// contains reports whether addr can be a payload pointer inside the arena.
func (ar *Arena) contains(addr uintptr) bool {
	return addr >= ar.base+arenaRecordSize+headerSize && addr < ar.base+uintptr(len(ar.region))
}
