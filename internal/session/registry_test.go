package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPutGetRemove(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Contains("alice"))
	_, ok := r.Get("alice")
	assert.False(t, ok)

	r.Put("alice", "tok-1")
	require.True(t, r.Contains("alice"))
	token, ok := r.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)

	r.Put("alice", "tok-2")
	token, _ = r.Get("alice")
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 1, r.Len())

	r.Remove("alice")
	assert.False(t, r.Contains("alice"))
	assert.Equal(t, 0, r.Len())

	// remove of a missing key is a no-op
	r.Remove("alice")
}

func TestRegistryPutIfAbsent(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.PutIfAbsent("bob", "first"))
	assert.False(t, r.PutIfAbsent("bob", "second"))

	token, ok := r.Get("bob")
	require.True(t, ok)
	assert.Equal(t, "first", token)
}

func TestRegistryConcurrentPutIfAbsentSingleWinner(t *testing.T) {
	r := NewRegistry()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if r.PutIfAbsent("dave", fmt.Sprintf("tok-%d", i)) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentMixedOperations(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nick := fmt.Sprintf("user-%d", i%8)
			r.Put(nick, "t")
			_ = r.Contains(nick)
			_, _ = r.Get(nick)
			_ = r.Len()
			r.Remove(nick)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
