package editor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArchiveLocks_SerializesSharedPaths(t *testing.T) {
	l := newArchiveLocks()
	var active, peak atomic.Int32

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("/data/op.miz", "/data/op_EDITED.miz")
			defer unlock()
			n := active.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Zero(t, l.len(), "entries are dropped when released")
}

func TestArchiveLocks_OppositeOrderDoesNotDeadlock(t *testing.T) {
	l := newArchiveLocks()
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var unlock func()
				if i%2 == 0 {
					unlock = l.lock("/a.miz", "/b.miz")
				} else {
					unlock = l.lock("/b.miz", "/a.miz")
				}
				unlock()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("locks deadlocked")
	}
}

func TestArchiveLocks_SamePathTwice(t *testing.T) {
	l := newArchiveLocks()
	unlock := l.lock("/op.miz", "/op.miz")
	assert.Equal(t, 1, l.len())
	unlock()
	assert.Zero(t, l.len())
}
