// Package cache keeps decoded assets in memory within a byte budget.
//
// The cache knows nothing about the assets themselves. A Loader tells it how
// much memory an asset may need, fills a buffer of that size, and releases
// what it produced. Locked entries are never evicted; unlocked entries are
// evicted least recently used first when room is needed.
package cache

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrTooLarge is returned when an entry alone exceeds the capacity.
	ErrTooLarge = errors.New("cache: entry larger than capacity")

	// ErrFull is returned when locked entries leave no room for a new one.
	ErrFull = errors.New("cache: no room left")

	// ErrNotLocked is returned when unlocking a handle twice.
	ErrNotLocked = errors.New("cache: handle not locked")
)

// Loader produces and releases cache entries.
type Loader interface {
	// CacheSize returns the number of bytes needed to load key.
	CacheSize(key uint32) (int, error)

	// CacheRead loads key into buf, which is CacheSize(key) bytes long, and
	// returns the resulting value.
	CacheRead(key uint32, buf []byte) (interface{}, error)

	// CacheFree releases a value returned by CacheRead.
	CacheFree(value interface{})
}

type entry struct {
	key   uint32
	value interface{}
	size  int
	refs  int

	// elem is set while the entry is unreferenced and thus evictable.
	elem *list.Element
}

// Cache is a bounded, reference counted cache. It is safe for concurrent use.
type Cache struct {
	loader   Loader
	capacity int

	mu      sync.Mutex
	size    int
	entries map[uint32]*entry
	lru     *list.List // front is most recently unlocked

	loads singleflight.Group

	hits, misses int
}

// Handle is a lock on one entry. It must be passed to Unlock exactly once.
type Handle struct {
	e      *entry
	locked bool
}

// Key returns the key of the locked entry.
func (h *Handle) Key() uint32 {
	return h.e.key
}

// New returns an empty cache holding at most capacity bytes.
func New(loader Loader, capacity int) *Cache {
	return &Cache{
		loader:   loader,
		capacity: capacity,
		entries:  make(map[uint32]*entry),
		lru:      list.New(),
	}
}

// Lock returns the value for key, loading it if needed, and pins it in the
// cache until the returned handle is unlocked.
func (c *Cache) Lock(key uint32) (interface{}, *Handle, error) {
	for loaded := false; ; loaded = true {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.ref(e)
			if !loaded {
				c.hits++
			}
			c.mu.Unlock()
			return e.value, &Handle{e: e, locked: true}, nil
		}
		if !loaded {
			c.misses++
		}
		c.mu.Unlock()

		if _, err, _ := c.loads.Do(strconv.FormatUint(uint64(key), 10), func() (interface{}, error) {
			return nil, c.load(key)
		}); err != nil {
			return nil, nil, err
		}
		// The entry is in the map now, unless it was evicted again before
		// this goroutine got to it; in that case load it once more.
	}
}

func (c *Cache) ref(e *entry) {
	if e.elem != nil {
		c.lru.Remove(e.elem)
		e.elem = nil
	}
	e.refs++
}

func (c *Cache) load(key uint32) error {
	c.mu.Lock()
	_, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return nil
	}

	size, err := c.loader.CacheSize(key)
	if err != nil {
		return errors.Wrapf(err, "cache: sizing %d", key)
	}
	if size > c.capacity {
		return errors.Wrapf(ErrTooLarge, "key %d needs %d bytes, capacity %d", key, size, c.capacity)
	}

	c.mu.Lock()
	err = c.makeRoom(size)
	if err == nil {
		// Reserve the space while reading.
		c.size += size
	}
	c.mu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "key %d needs %d bytes", key, size)
	}

	value, err := c.loader.CacheRead(key, make([]byte, size))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.size -= size
		return errors.Wrapf(err, "cache: reading %d", key)
	}
	e := &entry{key: key, value: value, size: size}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	glog.V(3).Infof("cache: loaded %d (%d bytes), %d/%d in use", key, size, c.size, c.capacity)
	return nil
}

// makeRoom evicts unreferenced entries until size more bytes fit. c.mu must
// be held.
func (c *Cache) makeRoom(size int) error {
	for c.size+size > c.capacity {
		back := c.lru.Back()
		if back == nil {
			return ErrFull
		}
		c.evict(back.Value.(*entry))
	}
	return nil
}

func (c *Cache) evict(e *entry) {
	c.lru.Remove(e.elem)
	e.elem = nil
	delete(c.entries, e.key)
	c.size -= e.size
	c.loader.CacheFree(e.value)
	glog.V(3).Infof("cache: evicted %d (%d bytes)", e.key, e.size)
}

// Unlock releases a handle returned by Lock.
func (c *Cache) Unlock(h *Handle) error {
	if h == nil || !h.locked {
		return ErrNotLocked
	}
	h.locked = false

	c.mu.Lock()
	defer c.mu.Unlock()
	h.e.refs--
	if h.e.refs == 0 {
		h.e.elem = c.lru.PushFront(h.e)
	}
	return nil
}

// Flush evicts every unlocked entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for back := c.lru.Back(); back != nil; back = c.lru.Back() {
		c.evict(back.Value.(*entry))
	}
}

// Size returns the number of bytes held, including space reserved for loads
// in progress.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the byte budget the cache was created with.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns how many Lock calls found their entry present, and how many
// did not.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
