package server

import (
	"context"
	"time"

	"semtok/internal/config"
	"semtok/internal/scheduler"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Overlay(s.opts.Config, params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root := ""
	if params.RootURI != nil {
		root = *params.RootURI
	}

	sess, err := s.open(cfg, root)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.session
	s.session = sess
	s.mu.Unlock()
	if old != nil {
		log.Warning("initialize received twice, replacing session")
		if err := old.close(); err != nil {
			log.Errorf("closing previous session: %s", err.Error())
		}
	}

	// Grammars load in the background; requests wait on the provider.
	go func() {
		if err := sess.provider.Init(s.ctx); err != nil {
			log.Criticalf("highlighter unavailable: %s", err.Error())
		}
	}()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	legend := sess.provider.Legend()
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     legend.Types(),
			TokenModifiers: legend.Modifiers(),
		},
		Full:  &protocol.SemanticDelta{Delta: &protocol.True},
		Range: true,
	}

	version := s.opts.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

func (s *Server) open(cfg config.Config, root string) (*session, error) {
	prune, ttl, err := cfg.Durations()
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg, s.opts.Fs)
	if err != nil {
		return nil, err
	}
	st, err := OpenStore(cfg, root)
	if err != nil {
		return nil, errors.Errorf("failed to open snapshot store: %w", err)
	}

	task := scheduler.Task{
		Name: "prune snapshots",
		Execute: func(ctx context.Context) error {
			n, err := st.Prune(ctx, time.Now().Add(-ttl))
			if err == nil && n > 0 {
				log.Infof("pruned %d snapshots", n)
			}
			return err
		},
	}
	sched := scheduler.New(8)
	sched.Run()
	if prune > 0 {
		sched.Every(prune, task)
	}

	return &session{cfg: cfg, provider: provider, store: st, sched: sched, prune: task}, nil
}

func (sess *session) close() error {
	sess.sched.Stop()
	return multierr.Combine(sess.provider.Close(), sess.store.Close())
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	s.cancel()
	if sess == nil {
		return nil
	}
	return sess.close()
}

func (s *Server) setTrace(
	context *glsp.Context,
	params *protocol.SetTraceParams,
) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
