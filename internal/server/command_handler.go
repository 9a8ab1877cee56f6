package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
)

const (
	// CommandSetGrammar pins a document to a grammar: [uri, grammar].
	// An empty grammar goes back to matching by file name.
	CommandSetGrammar = "semtok.setGrammar"
	// CommandStatus reports the highlighter state and the open documents.
	CommandStatus = "semtok.status"
	// CommandPrune queues a pass over the snapshot store that drops
	// snapshots older than the configured TTL.
	CommandPrune = "semtok.prune"
)

var ErrBadArguments = errors.Base("bad command arguments")

type Status struct {
	State     string   `json:"state"`
	Documents []string `json:"documents"`
	Trees     int      `json:"trees"`
}

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	switch params.Command {
	case CommandSetGrammar:
		uri, name, err := stringPair(params.Arguments)
		if err != nil {
			return nil, err
		}
		log.Infof("%s: grammar set to %q", uri, name)
		if err := sess.provider.Assign(uri, name); err != nil {
			return nil, err
		}
		if context != nil && context.Call != nil {
			go context.Call(protocol.MethodWorkspaceSemanticTokensRefresh, nil, nil)
		}
		return nil, nil
	case CommandStatus:
		return Status{
			State:     sess.provider.State().String(),
			Documents: s.docs.URIs(),
			Trees:     sess.provider.Trees(),
		}, nil
	case CommandPrune:
		return nil, sess.sched.Submit(sess.prune)
	}
	return nil, errors.Errorf("unknown command %q", params.Command)
}

func stringPair(args []any) (string, string, error) {
	if len(args) != 2 {
		return "", "", errors.WithDetails(ErrBadArguments, "count", len(args))
	}
	a, ok := args[0].(string)
	if !ok {
		return "", "", errors.WithDetails(ErrBadArguments, "index", 0)
	}
	b, ok := args[1].(string)
	if !ok {
		return "", "", errors.WithDetails(ErrBadArguments, "index", 1)
	}
	return a, b, nil
}
