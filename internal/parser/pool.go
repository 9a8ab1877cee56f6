package parser

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Pool hands out tree-sitter parsers for a single language. A sitter.Parser
// must not be used by two goroutines at once.
type Pool struct {
	pool chan *sitter.Parser
	lang *sitter.Language

	// mu orders Release against Close so no parser is returned to the
	// channel after it was drained.
	mu       sync.Mutex
	isClosed bool
	closed   chan struct{}
}

// NewPool creates a Pool of n parsers. n below one is treated as one.
func NewPool(n int, lang *sitter.Language) *Pool {
	if n < 1 {
		n = 1
	}
	pp := &Pool{
		pool:   make(chan *sitter.Parser, n),
		lang:   lang,
		closed: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		pp.pool <- p
	}
	return pp
}

// Acquire blocks until a parser is free or ctx is done.
func (pp *Pool) Acquire(ctx context.Context) (*sitter.Parser, error) {
	select {
	case <-pp.closed:
		return nil, ErrPoolClosed
	default:
	}
	select {
	case p := <-pp.pool:
		return p, nil
	case <-pp.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns p to the pool. Parsers released after Close are freed.
func (pp *Pool) Release(p *sitter.Parser) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.isClosed {
		p.Close()
		return
	}
	// Never blocks: the channel has room for every parser of the pool.
	pp.pool <- p
}

// Close frees the idle parsers. Parsers still checked out are freed when
// they are released.
func (pp *Pool) Close() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.isClosed {
		return
	}
	pp.isClosed = true
	close(pp.closed)
	for {
		select {
		case p := <-pp.pool:
			p.Close()
		default:
			return
		}
	}
}
