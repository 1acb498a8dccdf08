// Package memstore is an in-memory docstore.Store used by tests and the
// memory driver.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to resolve server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRules installs owner rules.
func WithRules(rules docstore.Rules) Option {
	return func(s *Store) { s.rules = rules }
}

// WithPendingWrites makes Add commit in two steps: watchers first see the
// document with its server timestamps still pending, then the resolved
// version. This mirrors a store that echoes local writes before the server
// acknowledges them.
func WithPendingWrites() Option {
	return func(s *Store) { s.pendingWrites = true }
}

// Store keeps documents per collection in insertion order.
type Store struct {
	mu            sync.RWMutex
	collections   map[string][]docstore.Document
	hub           *docstore.Hub
	rules         docstore.Rules
	now           func() time.Time
	pendingWrites bool
	closed        bool
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string][]docstore.Document),
		hub:         docstore.NewHub(),
		rules:       docstore.NewRules(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add 追加一条文档并通知所有监听者。
func (s *Store) Add(ctx context.Context, principal, collection string, fields docstore.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.rules.CheckWrite(principal, collection, fields); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", docstore.ErrClosed
	}

	id := uuid.NewString()
	stored := fields.Clone()
	if stored == nil {
		stored = docstore.Fields{}
	}

	if s.pendingWrites && docstore.HasPending(stored) {
		s.collections[collection] = append(s.collections[collection], docstore.Document{ID: id, Fields: stored.Clone()})
		s.hub.Broadcast(collection, s.evaluateLocked)
		docs := s.collections[collection]
		docstore.ResolveServerTimestamps(docs[len(docs)-1].Fields, s.now())
		s.hub.Broadcast(collection, s.evaluateLocked)
		return id, nil
	}

	docstore.ResolveServerTimestamps(stored, s.now())
	s.collections[collection] = append(s.collections[collection], docstore.Document{ID: id, Fields: stored})
	s.hub.Broadcast(collection, s.evaluateLocked)
	return id, nil
}

// Query runs q once.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.rules.CheckRead(q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	docs, _ := s.evaluateLocked(q)
	return docstore.CloneDocs(docs), nil
}

// Watch registers a live query. The first event carries the current result
// set.
func (s *Store) Watch(ctx context.Context, q docstore.Query) (docstore.Watcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.rules.CheckRead(q); err != nil {
		return nil, err
	}

	// 持有写锁，保证初始快照与后续广播之间没有遗漏的写入。
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	docs, _ := s.evaluateLocked(q)
	return s.hub.Register(q, docs)
}

// Fail ends every live watcher with err, simulating a dropped listener.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.Broadcast("", func(docstore.Query) ([]docstore.Document, error) {
		return nil, fmt.Errorf("watch: %w", err)
	})
}

// Seed inserts documents as-is, bypassing rules and timestamp resolution.
// Used to load legacy records carrying epoch or ISO timestamps.
func (s *Store) Seed(collection string, docs ...docstore.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		s.collections[collection] = append(s.collections[collection], docstore.Document{ID: d.ID, Fields: d.Fields.Clone()})
	}
	s.hub.Broadcast(collection, s.evaluateLocked)
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Watchers returns the number of live watchers.
func (s *Store) Watchers() int {
	return s.hub.Len()
}

// Close stops every watcher.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

func (s *Store) evaluateLocked(q docstore.Query) ([]docstore.Document, error) {
	return docstore.Evaluate(q, s.collections[q.Collection]), nil
}
