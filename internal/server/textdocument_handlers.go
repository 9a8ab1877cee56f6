package server

import (
	"semtok/internal/edit"
	"semtok/internal/highlight"
	"semtok/internal/manager"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	sess, err := s.current()
	if err != nil {
		return err
	}
	doc := params.TextDocument
	s.docs.Open(manager.Document{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    doc.Version,
		Text:       []byte(doc.Text),
	})

	// A language id naming a configured language wins over the globs.
	for _, l := range sess.cfg.Languages {
		if l.Name == doc.LanguageID {
			return sess.provider.Assign(doc.URI, doc.LanguageID)
		}
	}
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	sess, err := s.current()
	if err != nil {
		return err
	}
	events, err := edit.FromLSP(params.ContentChanges)
	if err != nil {
		return err
	}

	uri := params.TextDocument.URI
	return s.docs.Update(uri, params.TextDocument.Version, func(text []byte) ([]byte, error) {
		after, err := sess.provider.NotifyChange(s.ctx, uri, text, events)
		if errors.Is(err, highlight.ErrNotReady) {
			// Keep the text current even without a highlighter.
			_, after, err = edit.Sequence(text, events)
		}
		return after, err
	})
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	if params.Text == nil {
		return nil
	}
	d, err := s.docs.Get(params.TextDocument.URI)
	if err != nil {
		return err
	}
	// The tree catches up with the saved text on the next request.
	return s.docs.Update(d.URI, d.Version, func([]byte) ([]byte, error) {
		return []byte(*params.Text), nil
	})
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.docs.Release(uri)

	sess, err := s.current()
	if err != nil {
		return err
	}
	sess.provider.Release(uri)
	return sess.store.Delete(s.ctx, uri)
}
