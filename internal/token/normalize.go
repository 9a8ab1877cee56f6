package token

import (
	"semtok/internal/legend"
	"semtok/internal/parser"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

var log = commonlog.GetLogger("semtok.token")

// ModifierFunc derives modifiers for a capture. Normalizer emits none when
// it is nil.
type ModifierFunc func(c parser.Capture) []string

// Normalizer converts capture matches into single-line tokens.
type Normalizer struct {
	Legend    *legend.Legend
	Modifiers ModifierFunc
	// Strict turns a reversed capture span into an error instead of
	// dropping the capture.
	Strict bool
}

// Normalize flattens the captures of all matches, in order, into tokens.
// Captures whose name is not a legend type are dropped, except
// legend.NotInLegend which is kept for its out-of-band encoding. Captures
// spanning several lines are split with Split.
func (n *Normalizer) Normalize(matches []parser.Match) ([]Token, error) {
	var tokens []Token
	for _, m := range matches {
		for _, c := range m.Captures {
			if !n.Legend.HasType(c.Name) && c.Name != legend.NotInLegend {
				continue
			}

			tok := Token{
				Line:      c.Start.Row,
				StartChar: c.Start.Column,
				Type:      c.Name,
			}
			if n.Modifiers != nil {
				tok.Modifiers = n.Modifiers(c)
			}

			if c.Start.Row == c.End.Row {
				tok.Length = span(c.Start.Column, c.End.Column)
				tokens = append(tokens, tok)
				continue
			}

			split, err := Split(tok, c.Start, c.End)
			if err != nil {
				if n.Strict {
					return nil, errors.WithDetails(err, "capture", c.Name)
				}
				log.Warningf("dropping %s capture: %s (%d:%d-%d:%d)",
					c.Name, err, c.Start.Row, c.Start.Column, c.End.Row, c.End.Column)
				continue
			}
			tokens = append(tokens, split...)
		}
	}
	return tokens, nil
}

// Split breaks a span crossing line boundaries into one token per line. The
// first line runs from the start column for MaxLength, lines in between get
// MaxLength from column 0 and the last line ends at the end column. The true
// length of a line is never measured, so text past MaxLength on a line goes
// unhighlighted.
func Split(tok Token, start, end sitter.Point) ([]Token, error) {
	if start.Row > end.Row {
		return nil, errors.WithDetails(ErrReversedSpan,
			"startRow", start.Row, "endRow", end.Row)
	}
	if start.Row == end.Row {
		tok.Line = start.Row
		tok.StartChar = start.Column
		tok.Length = span(start.Column, end.Column)
		return []Token{tok}, nil
	}

	tokens := make([]Token, 0, end.Row-start.Row+1)
	for row := start.Row; row <= end.Row; row++ {
		t := tok
		t.Line = row
		switch row {
		case start.Row:
			t.StartChar = start.Column
			t.Length = MaxLength
		case end.Row:
			t.StartChar = 0
			t.Length = end.Column
		default:
			t.StartChar = 0
			t.Length = MaxLength
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// span is end-start clamped at zero.
func span(start, end uint32) uint32 {
	if end < start {
		return 0
	}
	return end - start
}
