package selection

// Snapshot is the serializable form of a Selection.
// Rows lists the indices whose individual flag is set.
type Snapshot struct {
	Len       int   `json:"len"`
	Rows      []int `json:"rows"`
	SelectAll bool  `json:"select_all"`
}

// Snapshot captures the current flags. Listeners are not part of it.
func (s *Selection) Snapshot() Snapshot {
	rows := []int{}
	for i, v := range s.rows {
		if v {
			rows = append(rows, i)
		}
	}
	return Snapshot{
		Len:       len(s.rows),
		Rows:      rows,
		SelectAll: s.selectAll,
	}
}

// FromSnapshot rebuilds a Selection. Row indices outside [0, Len) are
// reported as an error and nothing is built.
func FromSnapshot(snap Snapshot) (*Selection, error) {
	s := New(snap.Len)
	for _, i := range snap.Rows {
		if err := s.check(i); err != nil {
			return nil, err
		}
		s.rows[i] = true
	}
	s.selectAll = snap.SelectAll
	return s, nil
}
