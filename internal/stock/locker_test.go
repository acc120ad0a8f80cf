package stock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("item:1")
	acquired := make(chan struct{})
	go func() {
		u := k.Lock("item:1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("item:1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		k.Lock("item:2")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedMutexForgetsReleasedKeys(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("item:1")()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, k.size())
}
