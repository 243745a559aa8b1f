package selection

// Set is the ordered, never-empty collection of a document's selections.
// The last element is the primary selection: the one the view follows and
// whose position is reported to the client.
type Set struct {
	selections []Selection
}

func NewSet(initial Selection) *Set {
	return &Set{selections: []Selection{initial}}
}

func (s *Set) Len() int { return len(s.selections) }

func (s *Set) Get(i int) Selection { return s.selections[i] }

func (s *Set) Replace(i int, sel Selection) { s.selections[i] = sel }

// All returns a copy of the selections in order.
func (s *Set) All() []Selection {
	out := make([]Selection, len(s.selections))
	copy(out, s.selections)
	return out
}

func (s *Set) Primary() Selection { return s.selections[len(s.selections)-1] }

func (s *Set) PrimaryIndex() int { return len(s.selections) - 1 }

// Push appends sel; it becomes the primary selection.
func (s *Set) Push(sel Selection) { s.selections = append(s.selections, sel) }

// ClearNonPrimary collapses the set to its primary selection.
func (s *Set) ClearNonPrimary() {
	primary := s.Primary()
	s.selections = s.selections[:1]
	s.selections[0] = primary
}

// Map replaces every selection with fn(selection).
func (s *Set) Map(fn func(Selection) Selection) {
	for i := range s.selections {
		s.selections[i] = fn(s.selections[i])
	}
}

// ShiftOthers applies an edit's offset delta to every selection except skip.
func (s *Set) ShiftOthers(skip, at, delta int) {
	for i := range s.selections {
		if i == skip {
			continue
		}
		s.selections[i] = s.selections[i].Shifted(at, delta)
	}
}
