// Package routecache provides a bounded cache of resolved property
// route decisions for the non-signal-safe convenience paths — propctl's
// route subcommand — that repeatedly ask the same routing
// question across a single invocation's lifetime. It must never sit in
// front of ReaderAPI.Find: that path stays allocation-free and cannot
// depend on a library that may allocate, hash, or spawn goroutines.
package routecache

import "github.com/dgraph-io/ristretto/v2"

// Result is one resolved routing decision: the context/area label a
// name belongs to, and (in indexed mode only) the matched type name.
type Result struct {
	Label string
	Type  string
}

// Cache wraps a ristretto in-memory cache keyed by property name.
type Cache struct {
	inner *ristretto.Cache[string, Result]
}

// New builds a Cache sized for a CLI invocation's working set: a few
// thousand distinct names is the realistic ceiling for one propctl
// route run, so the counters and cost budget stay small.
func New() (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, Result]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached routing decision for name, if present.
func (c *Cache) Get(name string) (Result, bool) {
	return c.inner.Get(name)
}

// Put records name's routing decision. cost is always 1: every entry
// is a small fixed-size struct, so count-based eviction is enough.
func (c *Cache) Put(name string, r Result) {
	c.inner.Set(name, r, 1)
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
