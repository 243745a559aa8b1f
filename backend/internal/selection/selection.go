// Package selection holds the cursor/selection state of a document.
//
// A Selection is an anchor/head pair over character offsets plus the column
// the user last chose horizontally. A cursor is a selection whose anchor
// equals its head.
package selection

import "fmt"

type Selection struct {
	// Anchor is the stationary end.
	Anchor int `json:"anchor"`
	// Head is the end that movement and extension move.
	Head int `json:"head"`
	// StoredLinePosition is the remembered column, consulted by vertical moves.
	StoredLinePosition int `json:"storedLinePosition"`
}

func New(anchor, head, storedLinePosition int) Selection {
	return Selection{Anchor: anchor, Head: head, StoredLinePosition: storedLinePosition}
}

// Cursor returns a collapsed selection at offset remembering the given column.
func Cursor(offset, column int) Selection {
	return Selection{Anchor: offset, Head: offset, StoredLinePosition: column}
}

func (s Selection) IsCursor() bool { return s.Anchor == s.Head }

// Start is the lower bound of the selected range.
func (s Selection) Start() int { return min(s.Anchor, s.Head) }

// End is the upper bound of the selected range.
func (s Selection) End() int { return max(s.Anchor, s.Head) }

// Collapse drops the selected range, keeping the head.
func (s Selection) Collapse() Selection {
	s.Anchor = s.Head
	return s
}

// Shifted moves every offset at or after at by delta. Offsets that would land
// before at (a removal covering them) are pinned to at.
func (s Selection) Shifted(at, delta int) Selection {
	s.Anchor = shiftOffset(s.Anchor, at, delta)
	s.Head = shiftOffset(s.Head, at, delta)
	return s
}

func shiftOffset(offset, at, delta int) int {
	if offset < at {
		return offset
	}
	offset += delta
	if offset < at {
		return at
	}
	return offset
}

func (s Selection) String() string {
	if s.IsCursor() {
		return fmt.Sprintf("Cursor(%d, col=%d)", s.Head, s.StoredLinePosition)
	}
	return fmt.Sprintf("Selection(%d->%d, col=%d)", s.Anchor, s.Head, s.StoredLinePosition)
}

// Position is a zero-based column/line coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}
