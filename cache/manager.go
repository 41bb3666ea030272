// Package cache keeps loaded volume textures resident under a byte budget.
//
// A Manager plays the part of a renderer's image manager: it drives
// voltex.ImageLoader implementations through their metadata and pixel
// loads, keys the result by the loader's name and hands the same texture to
// every later request with that name. Concurrent requests for one name share
// a single load.
//
//	m := cache.New(512<<20, voltex.DeviceFeatures{HasNanoVDB: true})
//	tex, err := m.Acquire(voltex.NewLoader(grid, "smoke.density"))
//
// Manager is safe for concurrent use. It must not be copied after creation.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/voltex"
	"github.com/gogpu/voltex/export"
	"golang.org/x/sync/singleflight"
)

// Manager is a name-keyed LRU of loaded textures.
type Manager struct {
	features voltex.DeviceFeatures
	budget   int64

	mu      sync.Mutex
	entries map[string]*entry
	lru     lruList

	loads singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry struct {
	tex  export.Texture
	node *lruNode
}

// New creates a manager that loads with features and keeps at most budget
// bytes of pixels resident. A budget of 0 means unlimited. The most
// recently loaded texture always stays resident, even when it alone
// exceeds the budget.
func New(budget int64, features voltex.DeviceFeatures) *Manager {
	return &Manager{
		features: features,
		budget:   max(budget, 0),
		entries:  make(map[string]*entry),
	}
}

// Acquire returns the texture named ld.Name(), loading it with ld on a
// miss. A loader that performed a load is cleaned up afterwards, whether
// the load succeeded or not. Loaders that did not perform a load, because
// the name was resident or another caller's load for it was in flight, are
// left untouched and stay owned by the caller; their request counts as a
// hit when the texture is returned.
func (m *Manager) Acquire(ld voltex.ImageLoader) (export.Texture, error) {
	name := ld.Name()
	if tex, ok := m.Get(name); ok {
		return tex, nil
	}

	// performed is only written by this caller's own function, which
	// singleflight runs at most once and before Do returns.
	performed := false
	v, err, _ := m.loads.Do(name, func() (any, error) {
		// A load for this name may have finished between Get and Do.
		if tex, ok := m.lookup(name); ok {
			return tex, nil
		}
		performed = true
		m.misses.Add(1)
		defer ld.Cleanup()
		tex, err := export.Load(ld, m.features)
		if err != nil {
			voltex.Logger().Warn("cache: load failed", "name", name, "err", err)
			return nil, err
		}
		m.insert(name, tex)
		return tex, nil
	})
	if err != nil {
		return export.Texture{}, fmt.Errorf("cache: %w", err)
	}
	if !performed {
		m.hits.Add(1)
		voltex.Logger().Debug("cache: shared load", "name", name)
	}
	return v.(export.Texture), nil
}

// Get returns the resident texture with the given name.
func (m *Manager) Get(name string) (export.Texture, bool) {
	tex, ok := m.lookup(name)
	if ok {
		m.hits.Add(1)
	}
	return tex, ok
}

func (m *Manager) lookup(name string) (export.Texture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return export.Texture{}, false
	}
	m.lru.touch(e.node)
	return e.tex, true
}

// insert adds a texture and evicts the least recently used ones until the
// budget holds.
func (m *Manager) insert(name string, tex export.Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[name]; ok {
		m.lru.remove(old.node)
	}
	size := int64(len(tex.Pixels))
	m.entries[name] = &entry{tex: tex, node: m.lru.pushFront(name, size)}

	for m.budget > 0 && m.lru.size > m.budget && m.lru.len > 1 {
		n := m.lru.oldest()
		m.lru.remove(n)
		delete(m.entries, n.name)
		m.evictions.Add(1)
		voltex.Logger().Debug("cache: evicted", "name", n.name, "bytes", n.size)
	}
	voltex.Logger().Debug("cache: resident", "name", name, "bytes", size, "used", m.lru.size)
}

// Delete drops the texture with the given name and reports whether it was
// resident.
func (m *Manager) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return false
	}
	m.lru.remove(e.node)
	delete(m.entries, name)
	return true
}

// Clear drops every resident texture.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.lru.clear()
}

// Len returns the number of resident textures.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.len
}

// Stats contains manager statistics.
type Stats struct {
	// Len is the number of resident textures.
	Len int
	// Bytes is the total pixel size of resident textures.
	Bytes int64
	// Budget is the byte budget, 0 when unlimited.
	Budget int64
	// Hits counts requests served from resident textures.
	Hits uint64
	// Misses counts loads performed.
	Misses uint64
	// Evictions counts textures dropped to honor the budget.
	Evictions uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 before any request.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	n, size := m.lru.len, m.lru.size
	m.mu.Unlock()
	return Stats{
		Len:       n,
		Bytes:     size,
		Budget:    m.budget,
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
	}
}
