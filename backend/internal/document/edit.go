package document

import (
	"strings"
	"unicode/utf8"

	"editorServer/backend/internal/movement"
	"editorServer/backend/internal/ot/delta"
	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/text"
)

// InsertChar types c at every selection head. Each cursor ends up after its
// own inserted character.
func (d *Document) InsertChar(c rune) {
	d.touch()
	for i := 0; i < d.selections.Len(); i++ {
		sel := d.selections.Get(i)
		d.insertAt(i, sel.Head, string(c))
		d.selections.Replace(i, movement.MoveRight(sel, d.buf))
	}
}

// InsertNewline splits the line at every head and indents the new line as
// deep as the one it was split from.
func (d *Document) InsertNewline() {
	d.touch()
	for i := 0; i < d.selections.Len(); i++ {
		head := d.selections.Get(i).Head
		line := d.buf.CharToLine(head)
		indent := text.FirstNonWhitespace(d.buf.Line(line))

		d.insertAt(i, head, "\n"+strings.Repeat(" ", indent))
		d.selections.Replace(i, selection.Cursor(head+1+indent, indent))
	}
}

// InsertTab pads every head with spaces up to the next tab stop.
func (d *Document) InsertTab() {
	d.touch()
	for i := 0; i < d.selections.Len(); i++ {
		head := d.selections.Get(i).Head
		column := d.position(head).X
		n := TabWidth - column%TabWidth

		d.insertAt(i, head, strings.Repeat(" ", n))
		d.selections.Replace(i, selection.Cursor(head+n, column+n))
	}
}

// Delete removes the character after every cursor, joining lines when that
// character is a line break, or the selected range of every selection.
// A cursor at the end of the document is left alone.
func (d *Document) Delete() {
	d.touch()
	for i := 0; i < d.selections.Len(); i++ {
		sel := d.selections.Get(i)
		if !sel.IsCursor() {
			d.removeSelected(i, sel)
			continue
		}
		if sel.Head >= d.buf.LenChars() {
			continue
		}
		d.removeAt(i, sel.Head, sel.Head+1)
	}
}

// Backspace removes what precedes every cursor: a whole tab stop of spaces
// when the cursor sits on a tab stop after one, otherwise one character
// (the previous line break at column 0). Selections lose their range.
func (d *Document) Backspace() {
	d.touch()
	for i := 0; i < d.selections.Len(); i++ {
		sel := d.selections.Get(i)
		if !sel.IsCursor() {
			d.removeSelected(i, sel)
			continue
		}
		if sel.Head == 0 {
			continue
		}

		start := sel.Head - 1
		if d.onTabStopAfterSpaces(sel.Head) {
			start = sel.Head - TabWidth
		}
		d.removeAt(i, start, sel.Head)
		d.selections.Replace(i, d.cursorAt(start))
	}
}

func (d *Document) onTabStopAfterSpaces(head int) bool {
	line := d.buf.CharToLine(head)
	column := head - d.buf.LineToChar(line)
	if column < TabWidth || column%TabWidth != 0 {
		return false
	}
	for _, r := range d.buf.Line(line)[column-TabWidth : column] {
		if r != ' ' {
			return false
		}
	}
	return true
}

func (d *Document) removeSelected(i int, sel selection.Selection) {
	d.removeAt(i, sel.Start(), sel.End())
	d.selections.Replace(i, d.cursorAt(sel.Start()))
}

// insertAt inserts s at offset on behalf of selection i and shifts every
// other selection past the edit point.
func (d *Document) insertAt(i, offset int, s string) {
	if err := d.buf.Insert(offset, s); err != nil {
		panic(err)
	}
	d.changes = append(d.changes, delta.Insert(offset, s))
	d.selections.ShiftOthers(i, offset, utf8.RuneCountInString(s))
}

// removeAt removes [start, end) on behalf of selection i. Other selections
// after the range move left; those inside it collapse onto start.
func (d *Document) removeAt(i, start, end int) {
	if err := d.buf.Remove(start, end); err != nil {
		panic(err)
	}
	d.changes = append(d.changes, delta.Delete(start, end-start))
	d.selections.ShiftOthers(i, start, start-end)
}

func (d *Document) cursorAt(offset int) selection.Selection {
	return selection.Cursor(offset, d.position(offset).X)
}

func (d *Document) touch() {
	d.modified = true
	d.revision++
}
