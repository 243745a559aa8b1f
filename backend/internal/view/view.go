// Package view tracks the window of a document a client currently shows and
// clips document content to it.
package view

import (
	"strconv"
	"strings"

	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/text"
)

// View is a rectangle in document line/column space.
type View struct {
	HorizontalStart int `json:"horizontalStart"`
	VerticalStart   int `json:"verticalStart"`
	Width           int `json:"width"`
	Height          int `json:"height"`
}

func (v *View) SetSize(width, height int) {
	v.Width = max(width, 0)
	v.Height = max(height, 0)
}

// ScrollDown refuses to move past the point where the last line is at the bottom.
func (v *View) ScrollDown(amount int, buf text.Buffer) {
	if v.VerticalStart+amount+v.Height <= buf.LenLines() {
		v.VerticalStart += amount
	}
}

func (v *View) ScrollUp(amount int) {
	v.VerticalStart = max(v.VerticalStart-amount, 0)
}

func (v *View) ScrollLeft(amount int) {
	v.HorizontalStart = max(v.HorizontalStart-amount, 0)
}

// ScrollRight refuses to move past the point where the longest line ends at the right edge.
func (v *View) ScrollRight(amount int, buf text.Buffer) {
	if v.HorizontalStart+amount+v.Width <= LongestLineWidth(buf) {
		v.HorizontalStart += amount
	}
}

// FollowCursor scrolls as little as possible to bring cursor into view and
// reports whether the view moved.
func (v *View) FollowCursor(cursor selection.Position) bool {
	before := *v

	if cursor.Y < v.VerticalStart {
		v.VerticalStart = cursor.Y
	} else if v.Height > 0 && cursor.Y >= v.VerticalStart+v.Height {
		v.VerticalStart = cursor.Y - v.Height + 1
	}

	if cursor.X < v.HorizontalStart {
		v.HorizontalStart = cursor.X
	} else if v.Width > 0 && cursor.X >= v.HorizontalStart+v.Width {
		v.HorizontalStart = cursor.X - v.Width + 1
	}

	return *v != before
}

// Contains reports whether a document position lies inside the view.
func (v View) Contains(p selection.Position) bool {
	return p.Y >= v.VerticalStart && p.Y < v.VerticalStart+v.Height &&
		p.X >= v.HorizontalStart && p.X < v.HorizontalStart+v.Width
}

// ClipText returns the visible part of every visible line, one per output line.
func (v View) ClipText(buf text.Buffer) string {
	var sb strings.Builder
	for y := v.VerticalStart; y < v.lastVisibleLine(buf); y++ {
		line := buf.Line(y)
		width := text.WidthExcludingNewline(line)
		start := min(v.HorizontalStart, width)
		end := min(v.HorizontalStart+v.Width, width)
		sb.WriteString(string(line[start:end]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ClipLineNumbers returns the 1-based numbers of the visible lines.
func (v View) ClipLineNumbers(buf text.Buffer) string {
	var sb strings.Builder
	for y := v.VerticalStart; y < v.lastVisibleLine(buf); y++ {
		sb.WriteString(strconv.Itoa(y + 1))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ClipCursorPositions translates the positions inside the view to
// view-local coordinates. Positions outside are dropped.
func (v View) ClipCursorPositions(positions []selection.Position) []selection.Position {
	out := make([]selection.Position, 0, len(positions))
	for _, p := range positions {
		if !v.Contains(p) {
			continue
		}
		out = append(out, selection.Position{X: p.X - v.HorizontalStart, Y: p.Y - v.VerticalStart})
	}
	return out
}

func (v View) lastVisibleLine(buf text.Buffer) int {
	return min(v.VerticalStart+v.Height, buf.LenLines())
}

// LongestLineWidth scans every line for the widest, excluding line breaks.
func LongestLineWidth(buf text.Buffer) int {
	longest := 0
	for i := 0; i < buf.LenLines(); i++ {
		longest = max(longest, text.LineWidth(buf, i))
	}
	return longest
}
