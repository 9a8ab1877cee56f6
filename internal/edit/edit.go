// Package edit translates text changes into tree-sitter edit inputs.
package edit

import (
	"bytes"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"gitlab.com/tozd/go/errors"
)

var ErrOutOfRange = errors.Base("change outside of document")

// Edit is the incremental edit handed to a tree: byte offsets and points for
// the start, the old end and the new end of the changed region.
type Edit sitter.EditInput

// Change replaces OldLength bytes at Offset with Text. Offsets are bytes
// into the text the change applies to.
type Change struct {
	Offset    uint32
	OldLength uint32
	Text      string
}

// Event is anything that can locate itself as a Change in the text it
// applies to.
type Event interface {
	Resolve(text []byte) (Change, error)
}

func (c Change) Resolve(text []byte) (Change, error) {
	if int(c.Offset)+int(c.OldLength) > len(text) {
		return Change{}, errors.WithDetails(ErrOutOfRange,
			"offset", c.Offset, "length", c.OldLength, "size", len(text))
	}
	return c, nil
}

// Apply splices c into text and returns the new text. text is not modified.
func Apply(text []byte, c Change) ([]byte, error) {
	if _, err := c.Resolve(text); err != nil {
		return nil, err
	}
	end := c.Offset + c.OldLength
	out := make([]byte, 0, len(text)-int(c.OldLength)+len(c.Text))
	out = append(out, text[:c.Offset]...)
	out = append(out, c.Text...)
	out = append(out, text[end:]...)
	return out, nil
}

// Translate builds the Edit for c. Start and old end points are computed in
// before, the new end point in after.
func Translate(c Change, before, after []byte) (Edit, error) {
	oldEnd := c.Offset + c.OldLength
	newEnd := c.Offset + uint32(len(c.Text))
	if int(oldEnd) > len(before) || int(newEnd) > len(after) {
		return Edit{}, errors.WithDetails(ErrOutOfRange,
			"offset", c.Offset, "length", c.OldLength, "size", len(before))
	}
	return Edit{
		StartIndex:  c.Offset,
		OldEndIndex: oldEnd,
		NewEndIndex: newEnd,
		StartPoint:  PointAt(before, c.Offset),
		OldEndPoint: PointAt(before, oldEnd),
		NewEndPoint: PointAt(after, newEnd),
	}, nil
}

// Sequence resolves events one after the other, each against the text left
// by the previous one, and returns their edits in order together with the
// final text.
func Sequence(before []byte, events []Event) ([]Edit, []byte, error) {
	text := before
	edits := make([]Edit, 0, len(events))
	for i, ev := range events {
		c, err := ev.Resolve(text)
		if err != nil {
			return nil, nil, errors.Errorf("change %d: %w", i, err)
		}
		after, err := Apply(text, c)
		if err != nil {
			return nil, nil, errors.Errorf("change %d: %w", i, err)
		}
		e, err := Translate(c, text, after)
		if err != nil {
			return nil, nil, errors.Errorf("change %d: %w", i, err)
		}
		edits = append(edits, e)
		text = after
	}
	return edits, text, nil
}

// PointAt returns the row and byte column of offset in text. Offsets past
// the end are clamped.
func PointAt(text []byte, offset uint32) sitter.Point {
	if int(offset) > len(text) {
		offset = uint32(len(text))
	}
	prefix := text[:offset]
	row := uint32(bytes.Count(prefix, []byte{'\n'}))
	col := offset
	if i := bytes.LastIndexByte(prefix, '\n'); i >= 0 {
		col = offset - uint32(i) - 1
	}
	return sitter.Point{Row: row, Column: col}
}

// UTF16Column converts column, the byte column of the position at offset,
// into UTF-16 code units, the unit LSP positions count in.
func UTF16Column(text []byte, offset, column uint32) uint32 {
	if int(offset) > len(text) {
		offset = uint32(len(text))
	}
	if column > offset {
		column = offset
	}
	line := text[offset-column : offset]

	var units uint32
	for len(line) > 0 {
		r, size := utf8.DecodeRune(line)
		// Runes outside the basic plane take a surrogate pair.
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		line = line[size:]
	}
	return units
}

// Diff returns the smallest single edit turning before into after, found by
// trimming their common prefix and suffix. ok is false when they are equal.
func Diff(before, after []byte) (e Edit, ok bool) {
	start := 0
	for start < len(before) && start < len(after) && before[start] == after[start] {
		start++
	}
	if start == len(before) && start == len(after) {
		return Edit{}, false
	}

	oldEnd, newEnd := len(before), len(after)
	for oldEnd > start && newEnd > start && before[oldEnd-1] == after[newEnd-1] {
		oldEnd--
		newEnd--
	}

	return Edit{
		StartIndex:  uint32(start),
		OldEndIndex: uint32(oldEnd),
		NewEndIndex: uint32(newEnd),
		StartPoint:  PointAt(before, uint32(start)),
		OldEndPoint: PointAt(before, uint32(oldEnd)),
		NewEndPoint: PointAt(after, uint32(newEnd)),
	}, true
}
