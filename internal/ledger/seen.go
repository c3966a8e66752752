package ledger

import "replaylistener/internal/replay"

// SeenSet is the in-memory set of replay ids that should not be fetched
// again. It is not safe for concurrent use; callers mutate it only from a
// single goroutine.
type SeenSet map[replay.ID]struct{}

// NewSeenSet returns a set containing ids.
func NewSeenSet(ids ...replay.ID) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is in the set.
func (s SeenSet) Has(id replay.ID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id. Empty ids are ignored.
func (s SeenSet) Add(id replay.ID) {
	if id.Empty() {
		return
	}
	s[id] = struct{}{}
}

// Len returns the number of ids in the set.
func (s SeenSet) Len() int { return len(s) }
