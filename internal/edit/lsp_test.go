package edit_test

import (
	"testing"

	"semtok/internal/edit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

func lspRange(sl, sc, el, ec uint32) *protocol.Range {
	return &protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

func TestFromLSP(t *testing.T) {
	events, err := edit.FromLSP([]any{
		protocol.TextDocumentContentChangeEvent{Range: lspRange(1, 0, 1, 3), Text: "let"},
		protocol.TextDocumentContentChangeEventWhole{Text: "fresh"},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	c, err := events[0].Resolve([]byte("x\nvar y"))
	require.NoError(t, err)
	assert.Equal(t, edit.Change{Offset: 2, OldLength: 3, Text: "let"}, c)

	c, err = events[1].Resolve([]byte("old text"))
	require.NoError(t, err)
	assert.Equal(t, edit.Change{Offset: 0, OldLength: 8, Text: "fresh"}, c)
}

func TestFromLSPUTF16(t *testing.T) {
	// 😀 is two UTF-16 code units and four bytes.
	text := []byte("😀ab")
	events, err := edit.FromLSP([]any{
		protocol.TextDocumentContentChangeEvent{Range: lspRange(0, 2, 0, 3), Text: "Z"},
	})
	require.NoError(t, err)

	_, after, err := edit.Sequence(text, events)
	require.NoError(t, err)
	assert.Equal(t, "😀Zb", string(after))
}

func TestFromLSPUnsupported(t *testing.T) {
	_, err := edit.FromLSP([]any{"nope"})
	assert.True(t, errors.Is(err, edit.ErrUnsupportedChange))
}
