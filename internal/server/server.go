// Package server exposes the semantic token provider as a language server.
package server

import (
	"context"
	"sync"

	"semtok/internal/config"
	"semtok/internal/highlight"
	"semtok/internal/manager"
	"semtok/internal/scheduler"
	"semtok/internal/store"

	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"gitlab.com/tozd/go/errors"
)

const Name = "semtok"

var log = commonlog.GetLogger("semtok.server")

var ErrNotInitialized = errors.Base("server not initialized")

type Options struct {
	// Config is the starting configuration. The client's
	// initializationOptions are applied on top of it.
	Config  config.Config
	Fs      afero.Fs
	Version string
	Debug   bool
}

// session is what initialize sets up and shutdown tears down.
type session struct {
	cfg      config.Config
	provider *highlight.Provider
	store    store.Store
	sched    *scheduler.Scheduler
	prune    scheduler.Task
}

type Server struct {
	opts    Options
	handler protocol.Handler
	docs    *manager.DocumentManager

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	session *session
}

func New(opts Options) *Server {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		docs:   manager.NewDocumentManager(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.handler = protocol.Handler{
		Initialize:                          s.initialize,
		Initialized:                         s.initialized,
		Shutdown:                            s.shutdown,
		SetTrace:                            s.setTrace,
		TextDocumentDidOpen:                 s.textDocumentDidOpen,
		TextDocumentDidChange:               s.textDocumentDidChange,
		TextDocumentDidSave:                 s.textDocumentDidSave,
		TextDocumentDidClose:                s.textDocumentDidClose,
		TextDocumentSemanticTokensFull:      s.semanticTokensFull,
		TextDocumentSemanticTokensFullDelta: s.semanticTokensFullDelta,
		TextDocumentSemanticTokensRange:     s.semanticTokensRange,
		WorkspaceExecuteCommand:             s.workspaceExecuteCommand,
	}
	return s
}

func (s *Server) glsp() *glspserver.Server {
	return glspserver.NewServer(&s.handler, Name, s.opts.Debug)
}

func (s *Server) RunStdio() error {
	return s.glsp().RunStdio()
}

func (s *Server) RunTCP(address string) error {
	return s.glsp().RunTCP(address)
}

func (s *Server) RunWebSocket(address string) error {
	return s.glsp().RunWebSocket(address)
}

func (s *Server) current() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, ErrNotInitialized
	}
	return s.session, nil
}
