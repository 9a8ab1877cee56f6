// Package manager tracks the text of the documents a client has open.
package manager

import (
	"bytes"
	"slices"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var ErrNotOpen = errors.Base("document not open")

type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       []byte
}

type document struct {
	mu sync.Mutex
	Document
	closed bool
}

// DocumentManager holds the open documents. Updates to one document are
// applied one at a time, in call order.
type DocumentManager struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{docs: make(map[string]*document)}
}

// Open starts tracking d, replacing any document with the same URI.
func (dm *DocumentManager) Open(d Document) {
	d.Text = bytes.Clone(d.Text)
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if old, ok := dm.docs[d.URI]; ok {
		old.mu.Lock()
		old.closed = true
		old.mu.Unlock()
	}
	dm.docs[d.URI] = &document{Document: d}
}

// Get returns a copy of the document at uri.
func (dm *DocumentManager) Get(uri string) (Document, error) {
	doc, err := dm.lookup(uri)
	if err != nil {
		return Document{}, err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	d := doc.Document
	d.Text = bytes.Clone(d.Text)
	return d, nil
}

func (dm *DocumentManager) lookup(uri string) (*document, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	doc, ok := dm.docs[uri]
	if !ok {
		return nil, errors.WithDetails(ErrNotOpen, "uri", uri)
	}
	return doc, nil
}

// Update replaces the text of uri with the result of fn, called with the
// current text while the document is locked. The text is left alone when fn
// fails.
func (dm *DocumentManager) Update(uri string, version int32, fn func(text []byte) ([]byte, error)) error {
	doc, err := dm.lookup(uri)
	if err != nil {
		return err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.closed {
		return errors.WithDetails(ErrNotOpen, "uri", uri)
	}

	text, err := fn(doc.Text)
	if err != nil {
		return err
	}
	doc.Text = text
	doc.Version = version
	return nil
}

// Release stops tracking uri.
func (dm *DocumentManager) Release(uri string) {
	dm.mu.Lock()
	doc, ok := dm.docs[uri]
	delete(dm.docs, uri)
	dm.mu.Unlock()
	if ok {
		doc.mu.Lock()
		doc.closed = true
		doc.mu.Unlock()
	}
}

// URIs lists the open documents in sorted order.
func (dm *DocumentManager) URIs() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	uris := make([]string, 0, len(dm.docs))
	for uri := range dm.docs {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}
