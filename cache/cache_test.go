package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/cambragol/fission-ce/ttesting"
)

// fakeLoader hands out values of a fixed size per key and records frees.
type fakeLoader struct {
	sizes map[uint32]int
	delay time.Duration

	reads int32
	mu    sync.Mutex
	freed []uint32
}

type value struct {
	key uint32
	buf []byte
}

func (l *fakeLoader) CacheSize(key uint32) (int, error) {
	n, ok := l.sizes[key]
	if !ok {
		return 0, errors.Errorf("no such key %d", key)
	}
	return n, nil
}

func (l *fakeLoader) CacheRead(key uint32, buf []byte) (interface{}, error) {
	atomic.AddInt32(&l.reads, 1)
	time.Sleep(l.delay)
	if len(buf) != l.sizes[key] {
		return nil, errors.Errorf("buffer of %d bytes for key %d", len(buf), key)
	}
	return &value{key: key, buf: buf}, nil
}

func (l *fakeLoader) CacheFree(v interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.freed = append(l.freed, v.(*value).key)
}

func TestLockLoadsOnce(t *testing.T) {
	l := &fakeLoader{sizes: map[uint32]int{1: 10}}
	c := New(l, 100)

	v, h, err := c.Lock(1)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ttesting.AssertEqualInt(t, "buffer size", len(v.(*value).buf), 10)
	_, h2, err := c.Lock(1)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ttesting.AssertEqualInt(t, "reads", int(atomic.LoadInt32(&l.reads)), 1)
	ttesting.AssertEqualInt(t, "size", c.Size(), 10)
	ttesting.AssertEqualUint32(t, "handle key", h.Key(), 1)

	hits, misses := c.Stats()
	ttesting.AssertEqualInt(t, "hits", hits, 1)
	ttesting.AssertEqualInt(t, "misses", misses, 1)

	if err := c.Unlock(h); err != nil {
		t.Errorf("Unlock: %v", err)
	}
	if err := c.Unlock(h2); err != nil {
		t.Errorf("Unlock: %v", err)
	}
	ttesting.AssertEqualBool(t, "double unlock", errors.Cause(c.Unlock(h)) == ErrNotLocked, true)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	l := &fakeLoader{sizes: map[uint32]int{1: 40, 2: 40, 3: 40}}
	c := New(l, 100)

	for _, k := range []uint32{1, 2} {
		_, h, err := c.Lock(k)
		if err != nil {
			t.Fatalf("Lock(%d): %v", k, err)
		}
		c.Unlock(h)
	}
	// Touch 1 so that 2 becomes the oldest.
	_, h, _ := c.Lock(1)
	c.Unlock(h)

	_, h, err := c.Lock(3)
	if err != nil {
		t.Fatalf("Lock(3): %v", err)
	}
	defer c.Unlock(h)

	ttesting.AssertEqualInt(t, "entries", c.Len(), 2)
	ttesting.AssertEqualInt(t, "size", c.Size(), 80)
	l.mu.Lock()
	ttesting.AssertEqualInt(t, "freed count", len(l.freed), 1)
	ttesting.AssertEqualUint32(t, "freed", l.freed[0], 2)
	l.mu.Unlock()
}

func TestLockedEntriesStay(t *testing.T) {
	l := &fakeLoader{sizes: map[uint32]int{1: 60, 2: 60}}
	c := New(l, 100)

	_, h, err := c.Lock(1)
	if err != nil {
		t.Fatalf("Lock(1): %v", err)
	}
	_, _, err = c.Lock(2)
	ttesting.AssertEqualBool(t, "full", errors.Cause(err) == ErrFull, true)
	ttesting.AssertEqualInt(t, "size unchanged", c.Size(), 60)

	c.Unlock(h)
	_, h, err = c.Lock(2)
	if err != nil {
		t.Fatalf("Lock(2) after unlock: %v", err)
	}
	c.Unlock(h)
	ttesting.AssertEqualInt(t, "entries", c.Len(), 1)
}

func TestTooLarge(t *testing.T) {
	c := New(&fakeLoader{sizes: map[uint32]int{1: 101}}, 100)
	_, _, err := c.Lock(1)
	ttesting.AssertEqualBool(t, "too large", errors.Cause(err) == ErrTooLarge, true)
}

func TestSizeErrorPropagates(t *testing.T) {
	c := New(&fakeLoader{sizes: map[uint32]int{}}, 100)
	if _, _, err := c.Lock(7); err == nil {
		t.Errorf("Lock of an unknown key succeeded")
	}
	ttesting.AssertEqualInt(t, "nothing held", c.Size(), 0)
}

func TestFlush(t *testing.T) {
	l := &fakeLoader{sizes: map[uint32]int{1: 10, 2: 10}}
	c := New(l, 100)
	_, h1, _ := c.Lock(1)
	_, h2, _ := c.Lock(2)
	c.Unlock(h2)

	c.Flush()
	ttesting.AssertEqualInt(t, "locked entry kept", c.Len(), 1)
	ttesting.AssertEqualInt(t, "size", c.Size(), 10)

	c.Unlock(h1)
	c.Flush()
	ttesting.AssertEqualInt(t, "empty", c.Len(), 0)
	ttesting.AssertEqualInt(t, "size after flush", c.Size(), 0)
}

func TestConcurrentMissesShareLoad(t *testing.T) {
	l := &fakeLoader{sizes: map[uint32]int{5: 8}, delay: 20 * time.Millisecond}
	c := New(l, 100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, h, err := c.Lock(5)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			c.Unlock(h)
		}()
	}
	wg.Wait()
	ttesting.AssertEqualInt(t, "reads", int(atomic.LoadInt32(&l.reads)), 1)
	ttesting.AssertEqualInt(t, "size", c.Size(), 8)
}
