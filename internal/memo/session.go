package memo

import "sync"

// Session bundles the memo table and retention buffer used by one logical
// clone operation. Sessions are single-goroutine; concurrency comes from
// each operation acquiring its own session from a Pool.
type Session struct {
	Table Table
	Keep  Retention

	exposed bool
}

// MarkExposed flags the session as sharing its table with caller-visible
// state. An exposed session is abandoned on release instead of recycled, so
// entries the caller may still observe are never clobbered by a later
// operation.
func (s *Session) MarkExposed() { s.exposed = true }

// Exposed reports whether MarkExposed was called since the last acquire.
func (s *Session) Exposed() bool { return s.exposed }

// Pool recycles sessions across operations. Clearing retains amortized
// capacity; the shrink hysteresis in Table and Retention bounds how much a
// single huge graph can pin between operations.
type Pool struct {
	inner sync.Pool
}

// NewPool returns an empty session pool.
func NewPool() *Pool {
	p := &Pool{}
	p.inner.New = func() interface{} { return &Session{} }
	return p
}

// Acquire returns a cleared session ready for one operation.
func (p *Pool) Acquire() *Session {
	s := p.inner.Get().(*Session)
	s.exposed = false
	return s
}

// Release returns s to the pool. Returns true when the session was recycled
// and false when it was abandoned because the caller exposed its table.
func (p *Pool) Release(s *Session) bool {
	if s.exposed {
		return false
	}
	s.Table.Clear()
	s.Keep.Clear()
	s.Table.ShrinkIfLarge()
	s.Keep.ShrinkIfLarge()
	p.inner.Put(s)
	return true
}
