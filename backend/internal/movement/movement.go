// Package movement maps a selection to its new value after a navigation or
// extension command. Every function is pure: it reads the buffer and returns
// an updated copy of the selection.
//
// Move* functions collapse the selection onto the new head. Extend* functions
// move only the head and leave the anchor where it is.
package movement

import (
	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/text"
	"editorServer/backend/internal/view"
)

type Selection = selection.Selection

// column of offset within its line.
func column(offset int, buf text.Buffer) int {
	return offset - buf.LineToChar(buf.CharToLine(offset))
}

// SetFromLineNumber places the cursor on line at the remembered column,
// clamped to the line's width. The remembered column itself is kept.
// An out of range line leaves the selection unchanged.
func SetFromLineNumber(sel Selection, line int, buf text.Buffer) Selection {
	target, ok := headOnLine(sel, line, buf)
	if !ok {
		return sel
	}
	sel.Anchor = target
	sel.Head = target
	return sel
}

func headOnLine(sel Selection, line int, buf text.Buffer) (int, bool) {
	if line < 0 || line >= buf.LenLines() {
		return 0, false
	}
	width := text.LineWidth(buf, line)
	return buf.LineToChar(line) + min(sel.StoredLinePosition, width), true
}

func MoveLeft(sel Selection, buf text.Buffer) Selection {
	if sel.Head == 0 {
		return sel
	}
	return collapseTo(sel.Head-1, buf)
}

func MoveRight(sel Selection, buf text.Buffer) Selection {
	if sel.Head >= buf.LenChars() {
		return sel
	}
	return collapseTo(sel.Head+1, buf)
}

func MoveUp(sel Selection, buf text.Buffer) Selection {
	line := buf.CharToLine(sel.Head)
	if line == 0 {
		return sel
	}
	return SetFromLineNumber(sel, line-1, buf)
}

func MoveDown(sel Selection, buf text.Buffer) Selection {
	return SetFromLineNumber(sel, buf.CharToLine(sel.Head)+1, buf)
}

func MovePageUp(sel Selection, buf text.Buffer, v view.View) Selection {
	return SetFromLineNumber(sel, pageUpLine(sel, buf, v), buf)
}

func MovePageDown(sel Selection, buf text.Buffer, v view.View) Selection {
	return SetFromLineNumber(sel, pageDownLine(sel, buf, v), buf)
}

// MoveHome toggles between the first non-blank column and column 0.
func MoveHome(sel Selection, buf text.Buffer) Selection {
	return collapseTo(homeTarget(sel, buf), buf)
}

func MoveEnd(sel Selection, buf text.Buffer) Selection {
	return collapseTo(endTarget(sel, buf), buf)
}

func MoveDocumentStart(sel Selection) Selection {
	return selection.Cursor(0, 0)
}

func MoveDocumentEnd(sel Selection, buf text.Buffer) Selection {
	return collapseTo(buf.LenChars(), buf)
}

func ExtendLeft(sel Selection, buf text.Buffer) Selection {
	if sel.Head == 0 {
		return sel
	}
	return extendTo(sel, sel.Head-1, buf)
}

func ExtendRight(sel Selection, buf text.Buffer) Selection {
	if sel.Head >= buf.LenChars() {
		return sel
	}
	return extendTo(sel, sel.Head+1, buf)
}

func ExtendUp(sel Selection, buf text.Buffer) Selection {
	line := buf.CharToLine(sel.Head)
	if line == 0 {
		return sel
	}
	return extendToLine(sel, line-1, buf)
}

func ExtendDown(sel Selection, buf text.Buffer) Selection {
	return extendToLine(sel, buf.CharToLine(sel.Head)+1, buf)
}

func ExtendPageUp(sel Selection, buf text.Buffer, v view.View) Selection {
	return extendToLine(sel, pageUpLine(sel, buf, v), buf)
}

func ExtendPageDown(sel Selection, buf text.Buffer, v view.View) Selection {
	return extendToLine(sel, pageDownLine(sel, buf, v), buf)
}

func ExtendHome(sel Selection, buf text.Buffer) Selection {
	return extendTo(sel, homeTarget(sel, buf), buf)
}

func ExtendEnd(sel Selection, buf text.Buffer) Selection {
	return extendTo(sel, endTarget(sel, buf), buf)
}

func ExtendDocumentStart(sel Selection, buf text.Buffer) Selection {
	return extendTo(sel, 0, buf)
}

func ExtendDocumentEnd(sel Selection, buf text.Buffer) Selection {
	return extendTo(sel, buf.LenChars(), buf)
}

// CollapseSelectionCursor discards the selected range, keeping the head.
func CollapseSelectionCursor(sel Selection) Selection {
	return sel.Collapse()
}

func collapseTo(offset int, buf text.Buffer) Selection {
	return selection.Cursor(offset, column(offset, buf))
}

func extendTo(sel Selection, offset int, buf text.Buffer) Selection {
	sel.Head = offset
	sel.StoredLinePosition = column(offset, buf)
	return sel
}

func extendToLine(sel Selection, line int, buf text.Buffer) Selection {
	if target, ok := headOnLine(sel, line, buf); ok {
		sel.Head = target
	}
	return sel
}

// pageUpLine keeps the first line of the current page visible after paging.
func pageUpLine(sel Selection, buf text.Buffer, v view.View) int {
	return max(buf.CharToLine(sel.Head)-pageStep(v), 0)
}

// pageDownLine keeps the last line of the current page visible after paging.
func pageDownLine(sel Selection, buf text.Buffer, v view.View) int {
	return min(buf.CharToLine(sel.Head)+pageStep(v), buf.LenLines()-1)
}

func pageStep(v view.View) int {
	return max(v.Height-1, 0)
}

func homeTarget(sel Selection, buf text.Buffer) int {
	line := buf.CharToLine(sel.Head)
	lineStart := buf.LineToChar(line)
	textStart := lineStart + text.FirstNonWhitespace(buf.Line(line))
	if sel.Head == textStart {
		return lineStart
	}
	return textStart
}

func endTarget(sel Selection, buf text.Buffer) int {
	line := buf.CharToLine(sel.Head)
	return buf.LineToChar(line) + text.LineWidth(buf, line)
}
