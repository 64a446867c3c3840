package filter

import "sync"

// FlatCache memoizes Flatten per schema identity.
// Concurrent callers may both compute a missing entry; the first stored wins.
type FlatCache struct {
	m sync.Map // *Schema -> FlatFields
}

// Get returns the flattened fields of s, computing them on first use.
func (c *FlatCache) Get(s *Schema) FlatFields {
	if v, ok := c.m.Load(s); ok {
		return v.(FlatFields)
	}
	v, _ := c.m.LoadOrStore(s, Flatten(s))
	return v.(FlatFields)
}

// Len reports the number of memoized schemas.
func (c *FlatCache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

var defaultCache FlatCache

// FlattenCached is Flatten memoized in a process-wide cache.
func FlattenCached(s *Schema) FlatFields {
	return defaultCache.Get(s)
}
