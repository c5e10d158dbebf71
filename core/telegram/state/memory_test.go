package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	st := NewMemoryStore()
	_, ok := st.Get(1)
	assert.False(t, ok)

	s := st.Create(1, "invoice.email")
	s.Set("email", "a@b.c")
	s.AddScratch("/tmp/x")
	s.AddScratch("/tmp/x")

	got, ok := st.Get(1)
	require.True(t, ok)
	assert.Empty(t, got.Get("email"), "changes are invisible before Update")

	st.Update(s)
	got, ok = st.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", got.Get("email"))
	assert.Equal(t, []string{"/tmp/x"}, got.Scratch)
	assert.Equal(t, 1, st.Active())

	got.Set("email", "changed")
	again, _ := st.Get(1)
	assert.Equal(t, "a@b.c", again.Get("email"))

	st.Clear(1)
	assert.Equal(t, 0, st.Active())
}

func TestLockSerialisesPerChat(t *testing.T) {
	st := NewMemoryStore()
	var (
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := st.Lock(42)
			defer unlock()
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
	assert.Empty(t, st.(*memoryStore).locks)
}

func TestLockDifferentChatsIndependent(t *testing.T) {
	st := NewMemoryStore()
	unlockA := st.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := st.Lock(2)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 blocked by chat 1")
	}
	unlockA()
	unlockA()
}
