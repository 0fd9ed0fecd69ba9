package escalation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counters := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, key := range []string{"inc-1", "inc-2"} {
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

	assert.Equal(t, 50, counters["inc-1"])
	assert.Equal(t, 50, counters["inc-2"])
}

func TestKeyedMutex_DropsIdleEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("inc-1")
	km.mu.Lock()
	assert.Len(t, km.locks, 1)
	km.mu.Unlock()

	unlock()
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}
