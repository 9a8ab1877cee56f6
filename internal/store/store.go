// Package store keeps the last token result sent for each document so that
// delta requests can be answered against it.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

var ErrNotFound = errors.Base("snapshot not found")

// Snapshot is an encoded token array as it was sent to the client.
type Snapshot struct {
	URI      string
	ResultID string
	Data     []uint32
	Updated  time.Time
}

type Store interface {
	// Put replaces the snapshot of s.URI.
	Put(ctx context.Context, s Snapshot) error
	// Get returns the snapshot of uri or ErrNotFound.
	Get(ctx context.Context, uri string) (Snapshot, error)
	Delete(ctx context.Context, uri string) error
	// Prune removes snapshots not updated since before and reports how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Memory is a Store that lives in process memory.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]Snapshot)}
}

func (m *Memory) Put(_ context.Context, s Snapshot) error {
	s.Data = slices.Clone(s.Data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.URI] = s
	return nil
}

func (m *Memory) Get(_ context.Context, uri string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[uri]
	if !ok {
		return Snapshot{}, errors.WithDetails(ErrNotFound, "uri", uri)
	}
	s.Data = slices.Clone(s.Data)
	return s, nil
}

func (m *Memory) Delete(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, uri)
	return nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for uri, s := range m.snapshots {
		if s.Updated.Before(before) {
			delete(m.snapshots, uri)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error {
	return nil
}
