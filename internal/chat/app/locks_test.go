package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatLocks_SerializesSameChat(t *testing.T) {
	locks := newChatLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("chat")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.size())
}

func TestChatLocks_DifferentChatsRunInParallel(t *testing.T) {
	locks := newChatLocks()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another chat blocked")
	}
}

func TestChatLocks_UnlockTwiceIsSafe(t *testing.T) {
	locks := newChatLocks()
	unlock := locks.Lock("a")
	unlock()
	unlock()
	assert.Equal(t, 0, locks.size())

	again := locks.Lock("a")
	again()
}
