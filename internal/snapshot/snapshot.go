package snapshot

import "inspectsync/internal/models"

// Snapshot maps booking identifiers to records and remembers insertion
// order. Replacing an existing identifier keeps its position.
type Snapshot struct {
	keys    []string
	records map[string]models.Booking
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{records: make(map[string]models.Booking)}
}

// Get returns the record stored for id.
func (s *Snapshot) Get(id string) (models.Booking, bool) {
	b, ok := s.records[id]
	return b, ok
}

// Set stores b under id.
func (s *Snapshot) Set(id string, b models.Booking) {
	if _, ok := s.records[id]; !ok {
		s.keys = append(s.keys, id)
	}
	s.records[id] = b
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.keys)
}

// Keys returns the identifiers in iteration order.
func (s *Snapshot) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Range calls fn for every entry in iteration order until fn returns false.
func (s *Snapshot) Range(fn func(id string, b models.Booking) bool) {
	for _, id := range s.keys {
		if !fn(id, s.records[id]) {
			return
		}
	}
}

// Bookings returns the records in iteration order.
func (s *Snapshot) Bookings() []models.Booking {
	out := make([]models.Booking, 0, len(s.keys))
	for _, id := range s.keys {
		out = append(out, s.records[id])
	}
	return out
}

// Clone returns an independent copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		keys:    append([]string(nil), s.keys...),
		records: make(map[string]models.Booking, len(s.records)),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	return c
}

// Equal reports whether both snapshots hold the same records, ignoring order.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Len() != o.Len() {
		return false
	}
	for id, b := range s.records {
		if ob, ok := o.records[id]; !ok || ob != b {
			return false
		}
	}
	return true
}
