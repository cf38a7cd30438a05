package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_DrainInOrder(t *testing.T) {
	s := NewSink()
	s.Record(Outcome{Kind: KindRoam, Result: ResultClean})
	s.Record(Outcome{Kind: KindReconnect, Result: ResultClean})
	assert.Equal(t, 2, s.Len())

	got := s.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, KindRoam, got[0].Kind)
	assert.Equal(t, KindReconnect, got[1].Kind)
	assert.Zero(t, s.Len())
}

func TestSink_DrainIdempotent(t *testing.T) {
	s := NewSink()
	s.Record(Outcome{Kind: KindRoam, Result: ResultClean})

	assert.Len(t, s.Drain(), 1)
	assert.Empty(t, s.Drain())
	assert.Empty(t, s.Drain())
}

func TestSink_ConcurrentNoLossNoDuplication(t *testing.T) {
	s := NewSink()

	const writers = 8
	const perWriter = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				// Notes carry a unique id per outcome.
				s.Record(Outcome{Kind: KindRoam, Result: ResultWithNotes, Notes: []string{id(w, i)}})
			}
		}(w)
	}

	var mu sync.Mutex
	var drained []Outcome
	stop := make(chan struct{})
	var dwg sync.WaitGroup
	for d := 0; d < 3; d++ {
		dwg.Add(1)
		go func() {
			defer dwg.Done()
			for {
				batch := s.Drain()
				mu.Lock()
				drained = append(drained, batch...)
				mu.Unlock()
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	dwg.Wait()
	drained = append(drained, s.Drain()...)

	require.Len(t, drained, writers*perWriter)
	seen := make(map[string]bool, len(drained))
	for _, o := range drained {
		key := o.Notes[0]
		assert.False(t, seen[key], "outcome %s drained twice", key)
		seen[key] = true
	}
}

func TestSink_PerWriterOrderPreserved(t *testing.T) {
	s := NewSink()
	for i := 0; i < 10; i++ {
		s.Record(Outcome{Kind: KindRoam, Result: ResultWithNotes, Notes: []string{id(0, i)}})
	}
	got := s.Drain()
	for i, o := range got {
		assert.Equal(t, id(0, i), o.Notes[0])
	}
}

func id(w, i int) string {
	return fmt.Sprintf("%d-%d", w, i)
}
