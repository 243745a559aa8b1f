// Package document ties a text buffer, its selections and a client view into
// the unit a session edits.
package document

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"editorServer/backend/internal/ot/delta"
	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/text"
	"editorServer/backend/internal/view"
)

// TabWidth is the indentation unit for tab insertion and tab-aware backspace.
const TabWidth = 4

var (
	ErrLineOutOfRange = errors.New("LINE_OUT_OF_RANGE")
	ErrNotUTF8        = errors.New("FILE_NOT_UTF8")
)

type Document struct {
	buf        text.Buffer
	fileName   string
	modified   bool
	selections *selection.Set
	view       view.View

	revision uint64
	// deltas applied since the last TakeChanges, oldest first
	changes []delta.Delta
}

// New returns an empty, unnamed document with one cursor at offset 0.
func New() *Document {
	return fromString("", "")
}

// Open reads path into a fresh document. The file must be UTF-8.
func Open(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("open %s: %w", path, ErrNotUTF8)
	}
	return fromString(path, string(b)), nil
}

func fromString(fileName, content string) *Document {
	return &Document{
		buf:        text.NewPieceTable(content),
		fileName:   fileName,
		selections: selection.NewSet(selection.Cursor(0, 0)),
	}
}

// Save truncates and rewrites the backing file. An unnamed document is not
// saved and reports no error.
func (d *Document) Save() error {
	if d.fileName == "" {
		return nil
	}
	if err := os.WriteFile(d.fileName, []byte(d.buf.String()), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", d.fileName, err)
	}
	d.modified = false
	return nil
}

func (d *Document) FileName() string { return d.fileName }

func (d *Document) IsModified() bool { return d.modified }

func (d *Document) Revision() uint64 { return d.revision }

// Len is the number of lines in the document.
func (d *Document) Len() int { return d.buf.LenLines() }

func (d *Document) Text() string { return d.buf.String() }

func (d *Document) Selections() []selection.Selection { return d.selections.All() }

func (d *Document) View() view.View { return d.view }

// TakeChanges returns and forgets the deltas applied since the previous call.
func (d *Document) TakeChanges() []delta.Delta {
	out := d.changes
	d.changes = nil
	return out
}

// CursorPosition is the primary head in document coordinates.
func (d *Document) CursorPosition() selection.Position {
	return d.position(d.selections.Primary().Head)
}

// ClientCursorPositions returns every head that is on screen, in view coordinates.
func (d *Document) ClientCursorPositions() []selection.Position {
	all := d.selections.All()
	positions := make([]selection.Position, 0, len(all))
	for _, sel := range all {
		positions = append(positions, d.position(sel.Head))
	}
	return d.view.ClipCursorPositions(positions)
}

func (d *Document) ClientViewText() string { return d.view.ClipText(d.buf) }

func (d *Document) ClientViewLineNumbers() string { return d.view.ClipLineNumbers(d.buf) }

func (d *Document) SetClientViewSize(width, height int) { d.view.SetSize(width, height) }

func (d *Document) ScrollClientViewUp(amount int) { d.view.ScrollUp(amount) }

func (d *Document) ScrollClientViewDown(amount int) { d.view.ScrollDown(amount, d.buf) }

func (d *Document) ScrollClientViewLeft(amount int) { d.view.ScrollLeft(amount) }

func (d *Document) ScrollClientViewRight(amount int) { d.view.ScrollRight(amount, d.buf) }

// ScrollViewFollowingCursor brings the primary cursor on screen and reports
// whether the view had to move.
func (d *Document) ScrollViewFollowingCursor() bool {
	return d.view.FollowCursor(d.CursorPosition())
}

func (d *Document) position(offset int) selection.Position {
	line := d.buf.CharToLine(offset)
	return selection.Position{X: offset - d.buf.LineToChar(line), Y: line}
}
