package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializesPerKey(t *testing.T) {
	km := New()
	var mu sync.Mutex
	counters := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := km.Lock(key)
				defer unlock()
				mu.Lock()
				counters[key]++
				mu.Unlock()
			}(key)
		}
	}
	wg.Wait()

	require.Equal(t, 50, counters["a"])
	require.Equal(t, 50, counters["b"])
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
	unlockA := km.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestEntriesReclaimedAfterUnlock(t *testing.T) {
	km := New()
	unlock := km.Lock("x")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
