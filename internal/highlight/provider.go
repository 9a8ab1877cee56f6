// Package highlight runs the semantic token pipeline: cached parse, query,
// normalization and encoding, gated on grammar initialization.
package highlight

import (
	"context"
	"sync"

	"semtok/internal/cache"
	"semtok/internal/edit"
	"semtok/internal/grammar"
	"semtok/internal/legend"
	"semtok/internal/parser"
	"semtok/internal/token"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("semtok.highlight")

var (
	ErrNoGrammar      = errors.Base("no grammar for document")
	ErrUnknownGrammar = errors.Base("unknown grammar")
)

// Language describes a grammar to load. The highlight query is Query, or
// the contents of QueryFile when Query is empty.
type Language struct {
	Name      string
	Globs     []string
	Language  func() *sitter.Language
	Query     []byte
	QueryFile string
}

type Options struct {
	Legend    *legend.Legend
	Languages []Language
	// Strict fails requests on reversed capture spans instead of logging
	// and skipping them.
	Strict bool
	// Parsers is the number of parsers kept per grammar.
	Parsers   int
	Modifiers token.ModifierFunc
	// Fs is where query files are read from. Defaults to the OS filesystem.
	Fs afero.Fs
}

// Provider turns document text into encoded semantic tokens. All methods are
// safe for concurrent use; requests on one document are serialized.
type Provider struct {
	opts       Options
	gate       *gate
	cache      *cache.Cache
	normalizer token.Normalizer

	mu       sync.RWMutex
	grammars map[string]*parser.Grammar
	matcher  *grammar.Matcher
	assigned map[string]string
}

func New(opts Options) *Provider {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &Provider{
		opts:  opts,
		gate:  newGate(),
		cache: cache.New(),
		normalizer: token.Normalizer{
			Legend:    opts.Legend,
			Modifiers: opts.Modifiers,
			Strict:    opts.Strict,
		},
		assigned: make(map[string]string),
	}
}

func (p *Provider) Legend() *legend.Legend {
	return p.opts.Legend
}

func (p *Provider) State() State {
	return p.gate.State()
}

// Init loads every grammar and compiles its query. Requests wait for it. A
// failed Init may be retried; calling Init while it runs or after it
// succeeded does nothing.
func (p *Provider) Init(ctx context.Context) error {
	if !p.gate.begin() {
		return p.gate.wait(ctx)
	}
	log.Info("loading grammars")

	grammars, matcher, err := p.load(ctx)
	if err == nil {
		p.mu.Lock()
		p.grammars = grammars
		p.matcher = matcher
		p.mu.Unlock()
		log.Infof("loaded %d grammars", len(grammars))
	} else {
		log.Errorf("failed to load grammars: %s", err.Error())
	}
	p.gate.finish(err)
	return err
}

func (p *Provider) load(ctx context.Context) (map[string]*parser.Grammar, *grammar.Matcher, error) {
	if p.opts.Legend == nil {
		return nil, nil, errors.New("no legend")
	}

	matcher := grammar.NewMatcher()
	for _, l := range p.opts.Languages {
		if err := matcher.Add(l.Name, l.Globs...); err != nil {
			return nil, nil, err
		}
	}

	compiled := make([]*parser.Grammar, len(p.opts.Languages))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range p.opts.Languages {
		i, l := i, l
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			query, err := p.query(l)
			if err != nil {
				return err
			}
			if l.Language == nil {
				return errors.WithDetails(ErrUnknownGrammar, "grammar", l.Name)
			}
			compiled[i], err = parser.NewGrammar(l.Name, l.Language(), query, p.opts.Parsers)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range compiled {
			if c != nil {
				c.Close()
			}
		}
		return nil, nil, err
	}

	grammars := make(map[string]*parser.Grammar, len(compiled))
	for _, c := range compiled {
		grammars[c.Name()] = c
	}
	return grammars, matcher, nil
}

func (p *Provider) query(l Language) ([]byte, error) {
	if len(l.Query) > 0 || l.QueryFile == "" {
		return l.Query, nil
	}
	q, err := afero.ReadFile(p.opts.Fs, l.QueryFile)
	if err != nil {
		return nil, errors.Errorf("grammar %s: reading query: %w", l.Name, err)
	}
	return q, nil
}

// Wait blocks until Init has finished. It returns an error wrapping
// ErrNotReady when Init failed.
func (p *Provider) Wait(ctx context.Context) error {
	return p.gate.wait(ctx)
}

// Assign pins uri to the grammar called name, overriding the glob match.
// An empty name removes the pin.
func (p *Provider) Assign(uri, name string) error {
	if name != "" && !p.known(name) {
		return errors.WithDetails(ErrUnknownGrammar, "grammar", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if name == "" {
		delete(p.assigned, uri)
	} else {
		p.assigned[uri] = name
	}
	return nil
}

func (p *Provider) known(name string) bool {
	for _, l := range p.opts.Languages {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Grammar returns the grammar that applies to uri.
func (p *Provider) Grammar(ctx context.Context, uri string) (*parser.Grammar, error) {
	if err := p.Wait(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	name, ok := p.assigned[uri]
	if !ok {
		if name, ok = p.matcher.Match(uri); !ok {
			return nil, errors.WithDetails(ErrNoGrammar, "uri", uri)
		}
	}
	g, ok := p.grammars[name]
	if !ok {
		return nil, errors.WithDetails(ErrUnknownGrammar, "grammar", name, "uri", uri)
	}
	return g, nil
}

// RequestTokens brings the tree of uri up to date with text and returns its
// tokens sorted by position. Repeating a request for unchanged text returns
// the same tokens.
func (p *Provider) RequestTokens(ctx context.Context, uri string, text []byte) ([]token.Encoded, error) {
	g, err := p.Grammar(ctx, uri)
	if err != nil {
		return nil, err
	}

	var matches []parser.Match
	err = p.cache.With(ctx, uri, g, text, func(tree *sitter.Tree) error {
		matches = g.Matches(tree, text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tokens, err := p.normalizer.Normalize(matches)
	if err != nil {
		return nil, errors.Errorf("%s: %w", uri, err)
	}

	// Normalize only keeps legend types, so no token takes the fallback code.
	encoded := make([]token.Encoded, 0, len(tokens))
	for _, t := range tokens {
		e, _ := token.Encode(p.opts.Legend, t)
		encoded = append(encoded, e)
	}
	token.Sort(encoded)
	return encoded, nil
}

// RequestRange is RequestTokens restricted to the lines first to last.
func (p *Provider) RequestRange(ctx context.Context, uri string, text []byte, first, last uint32) ([]token.Encoded, error) {
	tokens, err := p.RequestTokens(ctx, uri, text)
	if err != nil {
		return nil, err
	}
	return token.InLines(tokens, first, last), nil
}

// NotifyChange records changes to uri, made to before in order, on its
// cached tree and returns the resulting text. Nothing is parsed until the
// next request.
func (p *Provider) NotifyChange(ctx context.Context, uri string, before []byte, changes []edit.Event) ([]byte, error) {
	if err := p.Wait(ctx); err != nil {
		return nil, err
	}
	edits, after, err := edit.Sequence(before, changes)
	if err != nil {
		return nil, errors.Errorf("%s: %w", uri, err)
	}
	p.cache.ApplyEdits(uri, before, edits, after)
	return after, nil
}

// Trees is the number of documents held by the tree cache.
func (p *Provider) Trees() int {
	return p.cache.Len()
}

// Release forgets uri.
func (p *Provider) Release(uri string) {
	p.cache.Release(uri)
	p.mu.Lock()
	delete(p.assigned, uri)
	p.mu.Unlock()
}

// Close frees the cached trees and the compiled grammars.
func (p *Provider) Close() error {
	p.cache.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for name, g := range p.grammars {
		if cerr := g.Close(); cerr != nil {
			err = multierr.Append(err, errors.Errorf("grammar %s: %w", name, cerr))
		}
	}
	p.grammars = nil
	return err
}
