package parser

import (
	"context"

	"semtok/internal/edit"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

var log = commonlog.GetLogger("semtok.parser")

// Capture is a single named node from a query match. Start and End columns
// count UTF-16 code units; StartByte and EndByte are byte offsets.
type Capture struct {
	Name      string
	Start     sitter.Point
	End       sitter.Point
	StartByte uint32
	EndByte   uint32
}

// Match groups the captures of one query pattern match.
type Match struct {
	Pattern  uint16
	Captures []Capture
}

// Grammar couples a tree-sitter language with its compiled highlight query
// and a pool of parsers for it. The language and query are shared read-only
// between goroutines; parsers are handed out one at a time.
type Grammar struct {
	name  string
	lang  *sitter.Language
	query *sitter.Query
	pool  *Pool
}

// NewGrammar compiles query for lang. parsers bounds how many documents of
// this grammar can be parsed at the same time.
func NewGrammar(name string, lang *sitter.Language, query []byte, parsers int) (*Grammar, error) {
	if lang == nil {
		return nil, errors.Errorf("grammar %s: no language", name)
	}
	q, err := sitter.NewQuery(query, lang)
	if err != nil {
		return nil, errors.Errorf("grammar %s: failed to compile query: %w", name, err)
	}
	log.Debugf("compiled %s query with %d captures", name, q.CaptureCount())
	return &Grammar{
		name:  name,
		lang:  lang,
		query: q,
		pool:  NewPool(parsers, lang),
	}, nil
}

func (g *Grammar) Name() string {
	return g.name
}

// Parse parses text, reusing old when it is non-nil. The caller owns both
// trees; old is not closed here.
func (g *Grammar) Parse(ctx context.Context, old *sitter.Tree, text []byte) (*sitter.Tree, error) {
	p, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer g.pool.Release(p)

	tree, err := p.ParseCtx(ctx, old, text)
	if err != nil {
		return nil, errors.Errorf("grammar %s: parse failed: %w", g.name, err)
	}
	return tree, nil
}

// Matches runs the highlight query over tree, applying predicate filtering,
// and returns the matches in the order the query cursor yields them.
func (g *Grammar) Matches(tree *sitter.Tree, text []byte) []Match {
	if tree == nil {
		return nil
	}
	return executeQuery(tree.RootNode(), g.query, text)
}

func executeQuery(root *sitter.Node, q *sitter.Query, source []byte) []Match {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var matches []Match
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, source)
		if len(m.Captures) == 0 {
			continue
		}

		match := Match{
			Pattern:  m.PatternIndex,
			Captures: make([]Capture, 0, len(m.Captures)),
		}
		for _, c := range m.Captures {
			if c.Node == nil {
				continue
			}
			start, end := c.Node.StartPoint(), c.Node.EndPoint()
			startByte, endByte := c.Node.StartByte(), c.Node.EndByte()
			start.Column = edit.UTF16Column(source, startByte, start.Column)
			end.Column = edit.UTF16Column(source, endByte, end.Column)
			match.Captures = append(match.Captures, Capture{
				Name:      q.CaptureNameForId(c.Index),
				Start:     start,
				End:       end,
				StartByte: startByte,
				EndByte:   endByte,
			})
		}
		matches = append(matches, match)
	}
	return matches
}

// Close frees the query and every pooled parser.
func (g *Grammar) Close() error {
	g.pool.Close()
	g.query.Close()
	return nil
}
