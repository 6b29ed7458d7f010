package malloc

import (
	"fmt"
	"sort"
)

// ArenaStats is a snapshot of one arena.
type ArenaStats struct {
	Index       int // position in creation order
	Size        int // mapped bytes
	Capacity    int // bytes usable for blocks and headers
	Available   int // bytes not held by live blocks
	FreeEntries int // length of the free list
	LargestFree int // size of the largest free entry
}

// Stats is a snapshot of an allocator.
type Stats struct {
	Arenas    []ArenaStats
	Capacity  int    // sum of arena capacities
	Available int    // sum of arena available bytes
	Allocs    uint64 // successful Alloc calls
	Frees     uint64 // successful Free calls
}

// Live returns the number of blocks allocated and not yet freed.
func (s Stats) Live() uint64 {
	return s.Allocs - s.Frees
}

// Utilization returns the ratio of committed to total capacity (0.0 to 1.0).
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Capacity-s.Available) / float64(s.Capacity)
}

// Stats walks every arena and returns a snapshot.
func (a *Allocator) Stats() Stats {
	s := Stats{
		Arenas: make([]ArenaStats, 0, len(a.arenas)),
		Allocs: a.allocs,
		Frees:  a.frees,
	}
	for _, ar := range a.arenas {
		as := ArenaStats{
			Index:     ar.index,
			Size:      len(ar.region),
			Capacity:  ar.capacity,
			Available: ar.available,
		}
		for off := ar.head; off != nilEntry; {
			size, next := ar.entry(off)
			as.FreeEntries++
			if size > as.LargestFree {
				as.LargestFree = size
			}
			off = next
		}
		s.Arenas = append(s.Arenas, as)
		s.Capacity += as.Capacity
		s.Available += as.Available
	}
	return s
}

// Check verifies the bookkeeping of every arena: the arena record is intact,
// available never exceeds capacity, free entries lie inside the arena without
// overlapping, and their sizes add up to available.
func (a *Allocator) Check() error {
	for _, ar := range a.arenas {
		if err := ar.check(a.seed); err != nil {
			return err
		}
	}
	return nil
}

func (ar *Arena) check(stamp uint64) error {
	if s, idx := ar.record(); s != stamp || idx != ar.index {
		return fmt.Errorf("%w: arena %d record overwritten", ErrCorruptedArena, ar.index)
	}
	if ar.available < 0 || ar.available > ar.capacity {
		return fmt.Errorf("%w: arena %d available %d outside [0, %d]",
			ErrCorruptedArena, ar.index, ar.available, ar.capacity)
	}

	type span struct{ start, end int }
	var spans []span
	total := 0
	for off := ar.head; off != nilEntry; {
		if len(spans) > ar.capacity/freeEntrySize {
			return fmt.Errorf("%w: arena %d free list has a cycle", ErrCorruptedArena, ar.index)
		}
		if off < arenaRecordSize || off+freeEntrySize > len(ar.region) {
			return fmt.Errorf("%w: arena %d free entry at %d out of range", ErrCorruptedArena, ar.index, off)
		}
		size, next := ar.entry(off)
		if size < freeEntrySize || off+size > len(ar.region) {
			return fmt.Errorf("%w: arena %d free entry at %d has size %d", ErrCorruptedArena, ar.index, off, size)
		}
		spans = append(spans, span{off, off + size})
		total += size
		off = next
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return fmt.Errorf("%w: arena %d free entries at %d and %d overlap",
				ErrCorruptedArena, ar.index, spans[i-1].start, spans[i].start)
		}
	}
	if total != ar.available {
		return fmt.Errorf("%w: arena %d free entries hold %d bytes, available is %d",
			ErrCorruptedArena, ar.index, total, ar.available)
	}
	return nil
}
