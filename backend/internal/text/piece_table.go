package text

import (
	"fmt"
	"sort"
	"strings"

	"editorServer/backend/internal/ot/delta"
)

type bufferKind int

const (
	bufOriginal bufferKind = iota
	bufAdd
)

type piece struct {
	buf    bufferKind
	offset int
	length int
}

// PieceTable stores text as pieces of two append-only rune slices:
// the original contents and everything inserted since.
//
// Inserting " collaborative" at 5 into "Hello world" turns
//
//	[ (orig, 0, 11) ]
//
// into
//
//	[ (orig, 0, 5), (add, 0, 14), (orig, 5, 6) ]
type PieceTable struct {
	original []rune
	add      []rune
	pieces   []piece
	// offsets of the first character of every line; always starts with 0
	lineStarts []int
	length     int
}

var _ Buffer = (*PieceTable)(nil)

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	pt := &PieceTable{original: r}
	if len(r) > 0 {
		pt.pieces = []piece{{buf: bufOriginal, offset: 0, length: len(r)}}
	}
	pt.reindex()
	return pt
}

func (pt *PieceTable) LenChars() int { return pt.length }

func (pt *PieceTable) LenLines() int { return len(pt.lineStarts) }

func (pt *PieceTable) CharToLine(offset int) int {
	if offset >= pt.length {
		return len(pt.lineStarts) - 1
	}
	if offset <= 0 {
		return 0
	}
	// first line starting after offset, minus one
	return sort.Search(len(pt.lineStarts), func(i int) bool { return pt.lineStarts[i] > offset }) - 1
}

func (pt *PieceTable) LineToChar(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(pt.lineStarts) {
		return pt.length
	}
	return pt.lineStarts[line]
}

func (pt *PieceTable) Line(line int) []rune {
	if line < 0 || line >= len(pt.lineStarts) {
		return nil
	}
	end := pt.length
	if line+1 < len(pt.lineStarts) {
		end = pt.lineStarts[line+1]
	}
	return pt.slice(pt.lineStarts[line], end)
}

func (pt *PieceTable) String() string {
	var sb strings.Builder
	for _, p := range pt.pieces {
		sb.WriteString(string(pt.runes(p)))
	}
	return sb.String()
}

func (pt *PieceTable) Insert(offset int, s string) error {
	if offset < 0 || offset > pt.length {
		return fmt.Errorf("insert at %d of %d: %w", offset, pt.length, ErrOutOfRange)
	}
	if s == "" {
		return nil
	}
	return pt.Apply(delta.Insert(offset, s))
}

func (pt *PieceTable) InsertChar(offset int, c rune) error {
	return pt.Insert(offset, string(c))
}

func (pt *PieceTable) Remove(start, end int) error {
	if start < 0 || end > pt.length || start > end {
		return fmt.Errorf("remove [%d, %d) of %d: %w", start, end, pt.length, ErrOutOfRange)
	}
	if start == end {
		return nil
	}
	return pt.Apply(delta.Delete(start, end-start))
}

// Apply walks the delta against the current text:
// retain moves pos forward, insert splits the piece at pos,
// delete trims or drops pieces starting at pos.
func (pt *PieceTable) Apply(d delta.Delta) error {
	pos := 0
	defer pt.reindex()
	for _, op := range d {
		switch op.Kind {
		case delta.KindRetain:
			if op.Count < 0 || pos+op.Count > pt.length {
				return fmt.Errorf("retain %d at %d: %w", op.Count, pos, ErrOutOfRange)
			}
			pos += op.Count

		case delta.KindInsert:
			inserted := []rune(op.Text)
			if len(inserted) == 0 {
				continue
			}
			start := len(pt.add)
			pt.add = append(pt.add, inserted...)
			newPiece := piece{buf: bufAdd, offset: start, length: len(inserted)}

			idx, offset := pt.locate(pos)
			if idx < len(pt.pieces) {
				cur := pt.pieces[idx]
				left := piece{buf: cur.buf, offset: cur.offset, length: offset}
				right := piece{buf: cur.buf, offset: cur.offset + offset, length: cur.length - offset}

				newPieces := make([]piece, 0, len(pt.pieces)+2)
				newPieces = append(newPieces, pt.pieces[:idx]...)
				if left.length > 0 {
					newPieces = append(newPieces, left)
				}
				newPieces = append(newPieces, newPiece)
				if right.length > 0 {
					newPieces = append(newPieces, right)
				}
				newPieces = append(newPieces, pt.pieces[idx+1:]...)
				pt.pieces = newPieces
			} else {
				pt.pieces = append(pt.pieces, newPiece)
			}
			pt.length += len(inserted)
			pos += len(inserted)

		case delta.KindDelete:
			if op.Count < 0 || pos+op.Count > pt.length {
				return fmt.Errorf("delete %d at %d: %w", op.Count, pos, ErrOutOfRange)
			}
			remain := op.Count
			idx, offset := pt.locate(pos)

			for remain > 0 && idx < len(pt.pieces) {
				cur := pt.pieces[idx]
				can := cur.length - offset
				if can <= 0 {
					idx++
					offset = 0
					continue
				}
				take := remain
				if take > can {
					take = can
				}

				if offset == 0 && take == cur.length {
					// whole piece goes; idx now points at the next one
					pt.pieces = append(pt.pieces[:idx], pt.pieces[idx+1:]...)
				} else {
					leftLen := offset
					rightLen := cur.length - offset - take

					newPieces := make([]piece, 0, len(pt.pieces)+1)
					newPieces = append(newPieces, pt.pieces[:idx]...)
					if leftLen > 0 {
						newPieces = append(newPieces, piece{buf: cur.buf, offset: cur.offset, length: leftLen})
					}
					if rightLen > 0 {
						newPieces = append(newPieces, piece{buf: cur.buf, offset: cur.offset + offset + take, length: rightLen})
					}
					newPieces = append(newPieces, pt.pieces[idx+1:]...)
					pt.pieces = newPieces
					if leftLen > 0 {
						idx++
					}
					offset = 0
				}
				pt.length -= take
				remain -= take
			}
		}
	}
	return nil
}

// locate maps a logical position to a piece index and the offset inside it.
func (pt *PieceTable) locate(pos int) (idx int, offset int) {
	cur := 0
	for i, p := range pt.pieces {
		if pos < cur+p.length {
			return i, pos - cur
		}
		cur += p.length
	}
	return len(pt.pieces), 0
}

func (pt *PieceTable) runes(p piece) []rune {
	if p.buf == bufOriginal {
		return pt.original[p.offset : p.offset+p.length]
	}
	return pt.add[p.offset : p.offset+p.length]
}

// slice copies the characters in [start, end).
func (pt *PieceTable) slice(start, end int) []rune {
	out := make([]rune, 0, end-start)
	cur := 0
	for _, p := range pt.pieces {
		if cur >= end {
			break
		}
		pStart, pEnd := cur, cur+p.length
		cur = pEnd
		if pEnd <= start {
			continue
		}
		lo := max(start, pStart) - pStart
		hi := min(end, pEnd) - pStart
		out = append(out, pt.runes(p)[lo:hi]...)
	}
	return out
}

func (pt *PieceTable) reindex() {
	pt.lineStarts = pt.lineStarts[:0]
	pt.lineStarts = append(pt.lineStarts, 0)
	pos := 0
	for _, p := range pt.pieces {
		for _, r := range pt.runes(p) {
			pos++
			if r == '\n' {
				pt.lineStarts = append(pt.lineStarts, pos)
			}
		}
	}
	pt.length = pos
}
