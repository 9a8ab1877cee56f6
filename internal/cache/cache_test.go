package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"semtok/internal/cache"
	"semtok/internal/edit"
	"semtok/internal/grammar"
	"semtok/internal/parser"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

const source = `function add(a, b) {
  return a + b;
}

const x = add(1, 2);
`

func javascript(t *testing.T) *parser.Grammar {
	t.Helper()
	b, ok := grammar.Lookup("javascript")
	require.True(t, ok)
	g, err := parser.NewGrammar(b.Name, b.Language(), []byte(b.Query), 2)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

// countingParser records whether each parse was given an old tree.
type countingParser struct {
	cache.Parser
	mu          sync.Mutex
	full        int
	incremental int
}

func (p *countingParser) Parse(ctx context.Context, old *sitter.Tree, text []byte) (*sitter.Tree, error) {
	p.mu.Lock()
	if old == nil {
		p.full++
	} else {
		p.incremental++
	}
	p.mu.Unlock()
	return p.Parser.Parse(ctx, old, text)
}

type failingParser struct{}

var errParse = errors.Base("parse failed")

func (failingParser) Parse(context.Context, *sitter.Tree, []byte) (*sitter.Tree, error) {
	return nil, errParse
}

func fullParse(t *testing.T, g *parser.Grammar, text []byte) string {
	t.Helper()
	tree, err := g.Parse(context.Background(), nil, text)
	require.NoError(t, err)
	defer tree.Close()
	return tree.RootNode().String()
}

// spans lists every node of the tree under n with its byte range.
func spans(n *sitter.Node) []string {
	out := []string{fmt.Sprintf("%s %d-%d", n.Type(), n.StartByte(), n.EndByte())}
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, spans(n.Child(i))...)
	}
	return out
}

func TestGetOrUpdate(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	p := &countingParser{Parser: g}
	c := cache.New()
	defer c.Close()

	tree, err := c.GetOrUpdate(ctx, "file:///a.js", p, []byte(source))
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "program", tree.RootNode().Type())
	assert.Equal(t, 1, p.full)
	assert.Equal(t, 1, c.Len())

	// A second request for the same text reuses the tree as hint.
	again, err := c.GetOrUpdate(ctx, "file:///a.js", p, []byte(source))
	require.NoError(t, err)
	assert.Equal(t, 1, p.full)
	assert.Equal(t, 1, p.incremental)
	assert.Equal(t, tree.RootNode().String(), again.RootNode().String())
}

func TestIncrementalMatchesFullParse(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	p := &countingParser{Parser: g}
	c := cache.New()
	defer c.Close()

	id := "file:///a.js"
	before := []byte(source)
	_, err := c.GetOrUpdate(ctx, id, p, before)
	require.NoError(t, err)

	edits, after, err := edit.Sequence(before, []edit.Event{
		// rename the function
		edit.Change{Offset: 9, OldLength: 3, Text: "sum"},
		// and break the body over a new statement
		edit.Change{Offset: 37, Text: "\n  let y = `two\nlines`;"},
	})
	require.NoError(t, err)
	c.ApplyEdits(id, before, edits, after)

	tree, err := c.GetOrUpdate(ctx, id, p, after)
	require.NoError(t, err)
	assert.Equal(t, 1, p.full)
	assert.Equal(t, 1, p.incremental)
	assert.Equal(t, fullParse(t, g, after), tree.RootNode().String())
}

func TestTwoEditsThenOneRequest(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	c := cache.New()
	defer c.Close()

	id := "file:///b.js"
	text := []byte("a+b")
	_, err := c.GetOrUpdate(ctx, id, g, text)
	require.NoError(t, err)

	for _, ev := range []edit.Event{
		edit.Change{Offset: 3, Text: "*c"},
		edit.Change{Offset: 0, OldLength: 1, Text: "foo"},
	} {
		edits, after, err := edit.Sequence(text, []edit.Event{ev})
		require.NoError(t, err)
		c.ApplyEdits(id, text, edits, after)
		text = after
	}
	assert.Equal(t, "foo+b*c", string(text))

	tree, err := c.GetOrUpdate(ctx, id, g, text)
	require.NoError(t, err)
	assert.Equal(t, fullParse(t, g, text), tree.RootNode().String())
}

func TestMissedEditsConverge(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	p := &countingParser{Parser: g}
	c := cache.New()
	defer c.Close()

	id := "file:///c.js"
	_, err := c.GetOrUpdate(ctx, id, p, []byte(source))
	require.NoError(t, err)

	// No edit notification, the text simply changed.
	changed := []byte(`function add(a, b) {
  // comment
  return a - b;
}
`)
	tree, err := c.GetOrUpdate(ctx, id, p, changed)
	require.NoError(t, err)
	assert.Equal(t, 1, p.incremental)
	assert.Equal(t, fullParse(t, g, changed), tree.RootNode().String())
}

func TestApplyEditsWithoutEntry(t *testing.T) {
	c := cache.New()
	defer c.Close()

	c.ApplyEdits("file:///missing.js", []byte("x"), []edit.Edit{{StartIndex: 0, OldEndIndex: 1, NewEndIndex: 2}}, []byte("xx"))
	assert.Equal(t, 0, c.Len())
}

func TestEditsAgainstOtherTextAreDropped(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	c := cache.New()
	defer c.Close()

	id := "file:///d.js"
	_, err := c.GetOrUpdate(ctx, id, g, []byte("a+b"))
	require.NoError(t, err)

	// The document was replaced without an edit notification, then edited.
	replaced := []byte("xxxxxxxx+y")
	edits, after, err := edit.Sequence(replaced, []edit.Event{edit.Change{Offset: 10, Text: "z"}})
	require.NoError(t, err)
	c.ApplyEdits(id, replaced, edits, after)

	tree, err := c.GetOrUpdate(ctx, id, g, after)
	require.NoError(t, err)

	fresh, err := g.Parse(ctx, nil, after)
	require.NoError(t, err)
	defer fresh.Close()
	assert.Equal(t, spans(fresh.RootNode()), spans(tree.RootNode()))
}

func TestParserChangeReparses(t *testing.T) {
	ctx := context.Background()
	js := &countingParser{Parser: javascript(t)}

	b, ok := grammar.Lookup("python")
	require.True(t, ok)
	g, err := parser.NewGrammar(b.Name, b.Language(), []byte(b.Query), 1)
	require.NoError(t, err)
	defer g.Close()
	py := &countingParser{Parser: g}

	c := cache.New()
	defer c.Close()

	_, err = c.GetOrUpdate(ctx, "file:///x", js, []byte("x = 1\n"))
	require.NoError(t, err)
	tree, err := c.GetOrUpdate(ctx, "file:///x", py, []byte("x = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "module", tree.RootNode().Type())
	assert.Equal(t, 1, py.full)
	assert.Equal(t, 0, py.incremental)
}

func TestParseError(t *testing.T) {
	ctx := context.Background()
	c := cache.New()
	defer c.Close()

	_, err := c.GetOrUpdate(ctx, "file:///a.js", failingParser{}, []byte("x"))
	assert.True(t, errors.Is(err, errParse))

	// Nothing was cached, so the next parse starts from scratch.
	p := &countingParser{Parser: javascript(t)}
	_, err = c.GetOrUpdate(ctx, "file:///a.js", p, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.full)
	assert.Equal(t, 0, p.incremental)
}

func TestWithErrorPropagates(t *testing.T) {
	c := cache.New()
	defer c.Close()

	errStop := errors.Base("stop")
	err := c.With(context.Background(), "file:///a.js", javascript(t), []byte(source), func(*sitter.Tree) error {
		return errStop
	})
	assert.True(t, errors.Is(err, errStop))
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	p := &countingParser{Parser: g}
	c := cache.New()
	defer c.Close()

	_, err := c.GetOrUpdate(ctx, "file:///a.js", p, []byte(source))
	require.NoError(t, err)
	c.Release("file:///a.js")
	assert.Equal(t, 0, c.Len())

	// Releasing twice is harmless and the next request parses from scratch.
	c.Release("file:///a.js")
	_, err = c.GetOrUpdate(ctx, "file:///a.js", p, []byte(source))
	require.NoError(t, err)
	assert.Equal(t, 2, p.full)
}

func TestClose(t *testing.T) {
	g := javascript(t)
	c := cache.New()

	_, err := c.GetOrUpdate(context.Background(), "file:///a.js", g, []byte(source))
	require.NoError(t, err)
	c.Close()
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrUpdate(context.Background(), "file:///a.js", g, []byte(source))
	assert.True(t, errors.Is(err, cache.ErrClosed))
}

func TestConcurrentDocuments(t *testing.T) {
	ctx := context.Background()
	g := javascript(t)
	c := cache.New()
	defer c.Close()

	ids := []string{"file:///1.js", "file:///2.js", "file:///3.js"}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		id := ids[i%len(ids)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.With(ctx, id, g, []byte(source), func(tree *sitter.Tree) error {
				if tree.RootNode().HasError() {
					return errors.New("unexpected syntax error")
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, len(ids), c.Len())
}
