package server

import (
	"time"

	"semtok/internal/store"
	"semtok/internal/token"

	"github.com/google/uuid"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

// tokens computes the encoded token array of an open document and records
// it under a new result id.
func (s *Server) tokens(sess *session, uri string) (string, []uint32, error) {
	d, err := s.docs.Get(uri)
	if err != nil {
		return "", nil, err
	}
	encoded, err := sess.provider.RequestTokens(s.ctx, uri, d.Text)
	if err != nil {
		return "", nil, err
	}

	data := token.Relative(encoded)
	id := uuid.NewString()
	err = sess.store.Put(s.ctx, store.Snapshot{URI: uri, ResultID: id, Data: data, Updated: time.Now()})
	if err != nil {
		// Only delta requests suffer; they fall back to full results.
		log.Warningf("%s: %s", uri, err.Error())
	}
	return id, data, nil
}

func (s *Server) semanticTokensFull(
	context *glsp.Context,
	params *protocol.SemanticTokensParams,
) (*protocol.SemanticTokens, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	id, data, err := s.tokens(sess, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return &protocol.SemanticTokens{ResultID: &id, Data: data}, nil
}

func (s *Server) semanticTokensFullDelta(
	context *glsp.Context,
	params *protocol.SemanticTokensDeltaParams,
) (any, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	uri := params.TextDocument.URI

	prev, err := sess.store.Get(s.ctx, uri)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warningf("%s: %s", uri, err.Error())
	}

	id, data, err := s.tokens(sess, uri)
	if err != nil {
		return nil, err
	}
	if prev.ResultID == "" || prev.ResultID != params.PreviousResultID {
		log.Debugf("%s: unknown result id %q, sending full result", uri, params.PreviousResultID)
		return &protocol.SemanticTokens{ResultID: &id, Data: data}, nil
	}

	edits := make([]protocol.SemanticTokensEdit, 0, 1)
	for _, e := range token.Delta(prev.Data, data) {
		edits = append(edits, protocol.SemanticTokensEdit{
			Start:       e.Start,
			DeleteCount: e.DeleteCount,
			Data:        e.Data,
		})
	}
	return &protocol.SemanticTokensDelta{ResultId: &id, Edits: edits}, nil
}

func (s *Server) semanticTokensRange(
	context *glsp.Context,
	params *protocol.SemanticTokensRangeParams,
) (any, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	uri := params.TextDocument.URI
	d, err := s.docs.Get(uri)
	if err != nil {
		return nil, err
	}

	encoded, err := sess.provider.RequestRange(s.ctx, uri, d.Text, params.Range.Start.Line, params.Range.End.Line)
	if err != nil {
		return nil, err
	}
	return &protocol.SemanticTokens{Data: token.Relative(encoded)}, nil
}
