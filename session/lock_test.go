package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameConversation(t *testing.T) {
	l := NewLocker()
	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "conv")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max)
	assert.Equal(t, 0, l.ActiveCount())
}

func TestDistinctConversationsDoNotBlock(t *testing.T) {
	l := NewLocker()

	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(context.Background(), "b")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different conversation blocked")
	}
}

func TestLockRespectsContextCancellation(t *testing.T) {
	l := NewLocker()

	unlock, err := l.Lock(context.Background(), "conv")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "conv")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Once the holder releases, the abandoned waiter must not leave the
	// conversation locked forever.
	unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	unlock2, err := l.Lock(ctx2, "conv")
	require.NoError(t, err)
	unlock2()
}
