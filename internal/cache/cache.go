// Package cache keeps one incrementally maintained syntax tree per document.
package cache

import (
	"bytes"
	"context"
	"sync"

	"semtok/internal/edit"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

var log = commonlog.GetLogger("semtok.cache")

var ErrClosed = errors.Base("tree cache is closed")

// Parser produces a tree for text, using old as the incremental hint when it
// is not nil.
type Parser interface {
	Parse(ctx context.Context, old *sitter.Tree, text []byte) (*sitter.Tree, error)
}

type entry struct {
	mu     sync.Mutex
	parser Parser
	tree   *sitter.Tree
	// text is the document the tree describes once the recorded edits are
	// taken into account. It can run ahead of the last parse.
	text     []byte
	released bool
}

// Cache maps document ids to their current parse tree. Work on one document
// is serialized; different documents proceed in parallel.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// GetOrUpdate returns the tree for text. Without an entry the text is parsed
// from scratch; otherwise the existing tree is reused as hint. The returned
// tree is owned by the cache and stays valid until the next update or release
// of id.
func (c *Cache) GetOrUpdate(ctx context.Context, id string, p Parser, text []byte) (*sitter.Tree, error) {
	var tree *sitter.Tree
	err := c.With(ctx, id, p, text, func(t *sitter.Tree) error {
		tree = t
		return nil
	})
	return tree, err
}

// With brings the tree of id up to date with text and calls fn with it while
// holding the document lock. No edit to id is applied while fn runs.
func (c *Cache) With(ctx context.Context, id string, p Parser, text []byte, fn func(tree *sitter.Tree) error) error {
	for {
		e, err := c.entry(id)
		if err != nil {
			return err
		}

		e.mu.Lock()
		if e.released {
			// Released between lookup and lock, start over with a fresh entry.
			e.mu.Unlock()
			continue
		}
		err = e.update(ctx, id, p, text)
		if err == nil {
			err = fn(e.tree)
		}
		e.mu.Unlock()
		return err
	}
}

func (c *Cache) entry(id string) (*entry, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return e, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if e, ok = c.entries[id]; !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e, nil
}

func (e *entry) update(ctx context.Context, id string, p Parser, text []byte) error {
	var old *sitter.Tree
	switch {
	case e.tree == nil:
	case e.parser != p:
		log.Debugf("%s: parser changed, parsing from scratch", id)
	default:
		old = e.tree
		if !bytes.Equal(e.text, text) {
			// Edits were missed or arrived out of order.
			if d, ok := edit.Diff(e.text, text); ok {
				log.Debugf("%s: applying diff edit at byte %d", id, d.StartIndex)
				old.Edit(sitter.EditInput(d))
			}
		}
	}

	tree, err := p.Parse(ctx, old, text)
	if err != nil {
		return errors.Errorf("%s: %w", id, err)
	}
	if e.tree != nil {
		e.tree.Close()
	}
	e.tree = tree
	e.parser = p
	e.text = bytes.Clone(text)
	return nil
}

// ApplyEdits records edits, in order, on the tree of id and remembers after
// as the text they lead to. The edits must have been computed against
// before. It never parses. Without an entry for id there is nothing to edit
// and the call is a no-op. When before is not the text the tree describes
// the edits are dropped and the next update diffs against the known text.
func (c *Cache) ApplyEdits(id string, before []byte, edits []edit.Edit, after []byte) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released || e.tree == nil {
		return
	}
	if !bytes.Equal(e.text, before) {
		log.Debugf("%s: edits based on unknown text, dropping %d", id, len(edits))
		return
	}
	for _, ed := range edits {
		e.tree.Edit(sitter.EditInput(ed))
	}
	e.text = bytes.Clone(after)
}

// Len is the number of documents with an entry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Release drops the entry for id and frees its tree.
func (c *Cache) Release(id string) {
	c.mu.Lock()
	e, ok := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()
	if ok {
		e.release()
	}
}

func (e *entry) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
	if e.tree != nil {
		e.tree.Close()
		e.tree = nil
	}
	e.text = nil
}

// Close releases every entry. Later calls to With fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	for _, e := range entries {
		e.release()
	}
	log.Debugf("released %d trees", len(entries))
}
