// Package sqlitestore persists documents in SQLite and serves live watchers
// by re-running their queries after every committed write.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
)

// Store is a docstore.Store over the documents table.
type Store struct {
	db    *sql.DB
	rules docstore.Rules
	now   func() time.Time

	// mu serialises writes with watcher registration and fan-out so each
	// watcher observes commits in order.
	mu     sync.Mutex
	hub    *docstore.Hub
	closed bool
}

// New wraps an opened database; see storage.OpenDB.
func New(db *sql.DB, rules docstore.Rules) *Store {
	return &Store{
		db:    db,
		rules: rules,
		now:   time.Now,
		hub:   docstore.NewHub(),
	}
}

// Add 写入文档，服务端时间戳在提交时解析。
func (s *Store) Add(ctx context.Context, principal, collection string, fields docstore.Fields) (string, error) {
	if err := s.rules.CheckWrite(principal, collection, fields); err != nil {
		return "", err
	}

	stored := fields.Clone()
	if stored == nil {
		stored = docstore.Fields{}
	}
	docstore.ResolveServerTimestamps(stored, s.now())

	data, err := docstore.EncodeFields(stored)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	owner := ""
	if field, ok := s.rules.OwnerField(collection); ok {
		owner, _ = stored[field].(string)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", docstore.ErrClosed
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, owner_id, data) VALUES (?, ?, ?, ?)`,
		id, collection, owner, string(data),
	); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	s.hub.Broadcast(collection, func(q docstore.Query) ([]docstore.Document, error) {
		return s.load(context.Background(), q)
	})
	return id, nil
}

// Query runs q once.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := s.rules.CheckRead(q); err != nil {
		return nil, err
	}
	return s.load(ctx, q)
}

// Watch registers a live query; the first event is the current result set.
func (s *Store) Watch(ctx context.Context, q docstore.Query) (docstore.Watcher, error) {
	if err := s.rules.CheckRead(q); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}

	docs, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.hub.Register(q, docs)
}

// Close stops every watcher. The database handle belongs to the caller.
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

// load pushes the collection and owner filters down to SQL and evaluates the
// rest with docstore.Evaluate.
func (s *Store) load(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var (
		where = []string{"collection = ?"}
		args  = []any{q.Collection}
	)
	if field, ok := s.rules.OwnerField(q.Collection); ok {
		for _, f := range q.Filters {
			if f.Field != field {
				continue
			}
			if owner, isString := f.Value.(string); isString {
				where = append(where, "owner_id = ?")
				args = append(args, owner)
			}
			break
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE `+strings.Join(where, " AND ")+` ORDER BY seq`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := docstore.DecodeFields([]byte(data))
		if err != nil {
			logging.L().Warnw("[store] skipping undecodable document", "id", id, "error", err)
			continue
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docstore.Evaluate(q, docs), nil
}
