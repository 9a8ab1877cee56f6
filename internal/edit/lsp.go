package edit

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

var ErrUnsupportedChange = errors.Base("unsupported content change")

// LSPChange is an incremental LSP content change. Its range is in UTF-16
// code units and is only turned into byte offsets once the text it applies
// to is known.
type LSPChange protocol.TextDocumentContentChangeEvent

func (c LSPChange) Resolve(text []byte) (Change, error) {
	if c.Range == nil {
		return Change{Offset: 0, OldLength: uint32(len(text)), Text: c.Text}, nil
	}
	s := string(text)
	start := c.Range.Start.IndexIn(s)
	end := c.Range.End.IndexIn(s)
	if end < start {
		return Change{}, errors.WithDetails(ErrOutOfRange, "start", start, "end", end)
	}
	return Change{Offset: uint32(start), OldLength: uint32(end - start), Text: c.Text}, nil
}

// LSPReplace replaces the whole document.
type LSPReplace protocol.TextDocumentContentChangeEventWhole

func (c LSPReplace) Resolve(text []byte) (Change, error) {
	return Change{Offset: 0, OldLength: uint32(len(text)), Text: c.Text}, nil
}

// FromLSP converts the content changes of a didChange notification.
func FromLSP(changes []any) ([]Event, error) {
	events := make([]Event, 0, len(changes))
	for _, raw := range changes {
		switch c := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			events = append(events, LSPChange(c))
		case protocol.TextDocumentContentChangeEventWhole:
			events = append(events, LSPReplace(c))
		default:
			return nil, errors.WithDetails(ErrUnsupportedChange, "type", fmt.Sprintf("%T", raw))
		}
	}
	return events, nil
}
