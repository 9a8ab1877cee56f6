package edit_test

import (
	"testing"

	"semtok/internal/edit"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestPointAt(t *testing.T) {
	text := []byte("ab\ncdé\n\nf")

	tests := []struct {
		offset   uint32
		expected sitter.Point
	}{
		{0, sitter.Point{Row: 0, Column: 0}},
		{2, sitter.Point{Row: 0, Column: 2}},
		{3, sitter.Point{Row: 1, Column: 0}},
		{7, sitter.Point{Row: 1, Column: 4}}, // é is two bytes
		{8, sitter.Point{Row: 2, Column: 0}},
		{9, sitter.Point{Row: 3, Column: 0}},
		{10, sitter.Point{Row: 3, Column: 1}},
		{99, sitter.Point{Row: 3, Column: 1}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, edit.PointAt(text, tt.offset), "offset %d", tt.offset)
	}
}

func TestUTF16Column(t *testing.T) {
	text := []byte("x\né😀y")

	tests := []struct {
		offset, column uint32
		expected       uint32
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 0, 0},
		{4, 2, 1},  // after é
		{8, 6, 3},  // after the surrogate pair
		{9, 7, 4},  // after y
		{99, 7, 4}, // clamped to the end
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, edit.UTF16Column(text, tt.offset, tt.column), "offset %d", tt.offset)
	}
}

func TestTranslate(t *testing.T) {
	before := []byte("let a = 1;\nlet b = 2;\n")
	c := edit.Change{Offset: 15, OldLength: 1, Text: "x\n  y"}

	after, err := edit.Apply(before, c)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\nlet x\n  y = 2;\n", string(after))

	e, err := edit.Translate(c, before, after)
	require.NoError(t, err)
	assert.Equal(t, edit.Edit{
		StartIndex:  15,
		OldEndIndex: 16,
		NewEndIndex: 20,
		StartPoint:  sitter.Point{Row: 1, Column: 4},
		OldEndPoint: sitter.Point{Row: 1, Column: 5},
		NewEndPoint: sitter.Point{Row: 2, Column: 3},
	}, e)
}

func TestTranslateDeletion(t *testing.T) {
	before := []byte("one\ntwo\nthree")
	c := edit.Change{Offset: 2, OldLength: 6}

	after, err := edit.Apply(before, c)
	require.NoError(t, err)
	assert.Equal(t, "onthree", string(after))

	e, err := edit.Translate(c, before, after)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e.NewEndIndex)
	assert.Equal(t, sitter.Point{Row: 2, Column: 0}, e.OldEndPoint)
	assert.Equal(t, sitter.Point{Row: 0, Column: 2}, e.NewEndPoint)
}

func TestApplyOutOfRange(t *testing.T) {
	_, err := edit.Apply([]byte("abc"), edit.Change{Offset: 2, OldLength: 5})
	assert.True(t, errors.Is(err, edit.ErrOutOfRange))

	_, err = edit.Translate(edit.Change{Offset: 4}, []byte("abc"), []byte("abc"))
	assert.True(t, errors.Is(err, edit.ErrOutOfRange))
}

func TestSequence(t *testing.T) {
	before := []byte("a+b")
	edits, after, err := edit.Sequence(before, []edit.Event{
		edit.Change{Offset: 3, Text: "+c"},
		edit.Change{Offset: 0, OldLength: 1, Text: "xy"},
	})
	require.NoError(t, err)
	assert.Equal(t, "xy+b+c", string(after))
	require.Len(t, edits, 2)

	// The second change is located in the text produced by the first.
	assert.Equal(t, uint32(3), edits[0].StartIndex)
	assert.Equal(t, uint32(5), edits[0].NewEndIndex)
	assert.Equal(t, uint32(0), edits[1].StartIndex)
	assert.Equal(t, uint32(1), edits[1].OldEndIndex)
	assert.Equal(t, uint32(2), edits[1].NewEndIndex)
}

func TestSequenceError(t *testing.T) {
	_, _, err := edit.Sequence([]byte("abc"), []edit.Event{
		edit.Change{Offset: 0, OldLength: 3},
		edit.Change{Offset: 1, OldLength: 1},
	})
	assert.True(t, errors.Is(err, edit.ErrOutOfRange))
}

func TestDiff(t *testing.T) {
	_, ok := edit.Diff([]byte("same"), []byte("same"))
	assert.False(t, ok)

	e, ok := edit.Diff([]byte("foo\nbar\nbaz"), []byte("foo\nbXXr\nbaz"))
	require.True(t, ok)
	assert.Equal(t, edit.Edit{
		StartIndex:  5,
		OldEndIndex: 6,
		NewEndIndex: 7,
		StartPoint:  sitter.Point{Row: 1, Column: 1},
		OldEndPoint: sitter.Point{Row: 1, Column: 2},
		NewEndPoint: sitter.Point{Row: 1, Column: 3},
	}, e)

	e, ok = edit.Diff(nil, []byte("x\ny"))
	require.True(t, ok)
	assert.Equal(t, uint32(0), e.OldEndIndex)
	assert.Equal(t, sitter.Point{Row: 1, Column: 1}, e.NewEndPoint)
}
