package text

import (
	"errors"

	"editorServer/backend/internal/ot/delta"
)

var ErrOutOfRange = errors.New("OFFSET_OUT_OF_RANGE")

// Buffer is the character-addressable storage a document edits.
// Offsets count characters (runes), never bytes.
type Buffer interface {
	LenChars() int
	LenLines() int
	// CharToLine returns the line containing offset. LenChars() maps to the last line.
	CharToLine(offset int) int
	// LineToChar returns the offset of the first character of line.
	LineToChar(line int) int
	// Line returns the characters of line, including its trailing newline if any.
	Line(line int) []rune
	Insert(offset int, s string) error
	InsertChar(offset int, c rune) error
	Remove(start, end int) error
	Apply(d delta.Delta) error
	String() string
}

// WidthExcludingNewline counts the characters of a line slice that are not '\n'.
func WidthExcludingNewline(line []rune) int {
	n := 0
	for _, r := range line {
		if r != '\n' {
			n++
		}
	}
	return n
}

// LineWidth is the width of line in columns, excluding the line break.
func LineWidth(b Buffer, line int) int {
	return WidthExcludingNewline(b.Line(line))
}

// FirstNonWhitespace returns the column of the first character on the line
// that is neither a space nor a tab. Empty and all-blank lines return 0.
func FirstNonWhitespace(line []rune) int {
	for i, r := range line {
		if r == '\n' {
			break
		}
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return 0
}
