package malloc

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeAllocatorConcurrent(t *testing.T) {
	s, err := NewSafeAllocator(&Option{ArenaSize: 256 * 1024})
	require.NoError(t, err)
	defer s.Close()

	const workers, rounds = 8, 1000
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var live [][]byte
			for i := 0; i < rounds; i++ {
				if len(live) > 0 && rng.Intn(2) == 0 {
					b := live[len(live)-1]
					live = live[:len(live)-1]
					if err := s.FreeBytes(b); err != nil {
						errs <- err
						return
					}
					continue
				}
				b, err := s.AllocBytes(1 + rng.Intn(512))
				if err != nil {
					errs <- err
					return
				}
				b[0], b[len(b)-1] = byte(seed), byte(seed)
				live = append(live, b)
			}
			for _, b := range live {
				if b[0] != byte(seed) || b[len(b)-1] != byte(seed) {
					t.Errorf("worker %d: payload clobbered", seed)
				}
				if err := s.FreeBytes(b); err != nil {
					errs <- err
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	st := s.Stats()
	assert.Equal(t, uint64(0), st.Live())
	assert.Equal(t, st.Capacity, st.Available)
	assert.NoError(t, s.Check())
}

func TestSafeAllocatorErrors(t *testing.T) {
	_, err := NewSafeAllocator(&Option{Alignment: 3})
	assert.Error(t, err)

	s, err := NewSafeAllocator(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAlignment, s.Alignment())

	p, err := s.Alloc(10)
	require.NoError(t, err)
	require.NoError(t, s.Free(p))
	assert.ErrorIs(t, s.Free(p), ErrDoubleFree)

	require.NoError(t, s.Close())
	_, err = s.Alloc(10)
	assert.ErrorIs(t, err, ErrClosed)
}
