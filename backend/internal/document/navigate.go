package document

import (
	"fmt"

	"editorServer/backend/internal/movement"
	"editorServer/backend/internal/selection"
)

func (d *Document) eachSelection(fn func(selection.Selection) selection.Selection) {
	d.selections.Map(fn)
}

func (d *Document) MoveCursorLeft() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveLeft(s, d.buf) })
}

func (d *Document) MoveCursorRight() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveRight(s, d.buf) })
}

func (d *Document) MoveCursorUp() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveUp(s, d.buf) })
}

func (d *Document) MoveCursorDown() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveDown(s, d.buf) })
}

func (d *Document) MoveCursorPageUp() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MovePageUp(s, d.buf, d.view) })
}

func (d *Document) MoveCursorPageDown() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MovePageDown(s, d.buf, d.view) })
}

func (d *Document) MoveCursorLineStart() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveHome(s, d.buf) })
}

func (d *Document) MoveCursorLineEnd() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveEnd(s, d.buf) })
}

// MoveCursorDocumentStart drops every selection but the primary first.
func (d *Document) MoveCursorDocumentStart() {
	d.selections.ClearNonPrimary()
	d.eachSelection(movement.MoveDocumentStart)
}

// MoveCursorDocumentEnd drops every selection but the primary first.
func (d *Document) MoveCursorDocumentEnd() {
	d.selections.ClearNonPrimary()
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.MoveDocumentEnd(s, d.buf) })
}

func (d *Document) ExtendSelectionLeft() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendLeft(s, d.buf) })
}

func (d *Document) ExtendSelectionRight() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendRight(s, d.buf) })
}

func (d *Document) ExtendSelectionUp() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendUp(s, d.buf) })
}

func (d *Document) ExtendSelectionDown() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendDown(s, d.buf) })
}

func (d *Document) ExtendSelectionPageUp() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendPageUp(s, d.buf, d.view) })
}

func (d *Document) ExtendSelectionPageDown() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendPageDown(s, d.buf, d.view) })
}

func (d *Document) ExtendSelectionLineStart() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendHome(s, d.buf) })
}

func (d *Document) ExtendSelectionLineEnd() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendEnd(s, d.buf) })
}

func (d *Document) ExtendSelectionDocumentStart() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendDocumentStart(s, d.buf) })
}

func (d *Document) ExtendSelectionDocumentEnd() {
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.ExtendDocumentEnd(s, d.buf) })
}

func (d *Document) CollapseSelectionCursors() {
	d.eachSelection(movement.CollapseSelectionCursor)
}

// AddSelectionBelow adds a cursor one line under the primary head and makes
// it the new primary. Nothing happens on the last line.
func (d *Document) AddSelectionBelow() {
	primary := d.selections.Primary().Collapse()
	line := d.buf.CharToLine(primary.Head)
	if line+1 >= d.buf.LenLines() {
		return
	}
	d.selections.Push(movement.SetFromLineNumber(primary, line+1, d.buf))
}

// GoTo collapses to the primary selection and puts it on the zero-based line,
// keeping its remembered column. An invalid line changes nothing.
func (d *Document) GoTo(line int) error {
	if line < 0 || line >= d.buf.LenLines() {
		return fmt.Errorf("go to line %d of %d: %w", line, d.buf.LenLines(), ErrLineOutOfRange)
	}
	d.selections.ClearNonPrimary()
	d.eachSelection(func(s selection.Selection) selection.Selection { return movement.SetFromLineNumber(s, line, d.buf) })
	return nil
}
