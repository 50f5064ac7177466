package watch

import (
	"path/filepath"
	"time"
)

// Suppressor is the table of short-lived suppression windows. Before the
// command executor touches a path it knows the watcher will also observe,
// it arms an entry here; the reconciler drops the first matching raw event
// instead of applying it a second time. Entries expire after a bounded TTL
// even if unmatched, so a failed or partially-applied command cannot
// permanently blind the reconciler to that path.
type Suppressor struct {
	ttl     time.Duration
	entries []suppression
}

type suppression struct {
	path   string
	op     Op
	expiry time.Time
}

// NewSuppressor creates a suppressor whose entries live for ttl.
func NewSuppressor(ttl time.Duration) *Suppressor {
	return &Suppressor{ttl: ttl}
}

// Arm registers a suppression window for one expected event.
func (s *Suppressor) Arm(path string, op Op, now time.Time) {
	s.entries = append(s.entries, suppression{
		path:   filepath.Clean(path),
		op:     op,
		expiry: now.Add(s.ttl),
	})
}

// Match reports whether a live entry covers the event and consumes it.
// Expired entries encountered during the scan are dropped.
func (s *Suppressor) Match(path string, op Op, now time.Time) bool {
	path = filepath.Clean(path)

	live := s.entries[:0]
	matched := false

	for _, e := range s.entries {
		if now.After(e.expiry) {
			continue
		}

		if !matched && e.path == path && e.op == op {
			matched = true
			continue
		}

		live = append(live, e)
	}

	s.entries = live

	return matched
}

// Pending returns the number of live entries at now. Expired entries are
// swept as a side effect.
func (s *Suppressor) Pending(now time.Time) int {
	live := s.entries[:0]

	for _, e := range s.entries {
		if !now.After(e.expiry) {
			live = append(live, e)
		}
	}

	s.entries = live

	return len(s.entries)
}
