// Package token turns query captures into semantic tokens and encodes them
// for the LSP wire format.
package token

import (
	"cmp"
	"slices"

	"semtok/internal/legend"

	"gitlab.com/tozd/go/errors"
)

// MaxLength caps a single token. Editors reject longer tokens, and it doubles
// as the "rest of the line" length for the lines of a split span.
const MaxLength = 65535

var ErrReversedSpan = errors.Base("capture ends before it starts")

// Token is a semantic token on exactly one line. StartChar and Length count
// UTF-16 code units, as LSP positions do.
type Token struct {
	Line      uint32
	StartChar uint32
	Length    uint32
	Type      string
	Modifiers []string
}

// Encoded is a Token with its names resolved against a legend.
type Encoded struct {
	Line      uint32
	StartChar uint32
	Length    uint32
	Type      uint32
	Modifiers uint32
}

// Encode resolves tok against l. The boolean is false when the type was not
// in the legend and fell back to code 0.
func Encode(l *legend.Legend, tok Token) (Encoded, bool) {
	typ, ok := l.LookupType(tok.Type)
	return Encoded{
		Line:      tok.Line,
		StartChar: tok.StartChar,
		Length:    tok.Length,
		Type:      typ,
		Modifiers: l.EncodeModifiers(tok.Modifiers),
	}, ok
}

// Sort orders tokens by position. Tokens that start at the same position
// keep their capture order.
func Sort(tokens []Encoded) {
	slices.SortStableFunc(tokens, func(a, b Encoded) int {
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		return cmp.Compare(a.StartChar, b.StartChar)
	})
}
