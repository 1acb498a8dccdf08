// Package docstore describes the document store the client reads and writes:
// append-only collections of schemaless documents, equality/order/limit
// queries, and live watchers that push the full result set on every change.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrClosed           = errors.New("store closed")
)

// Fields holds a document's data. Values are strings, bools, float64/int
// numbers, nested Fields/map[string]any, []any, or Timestamp.
type Fields map[string]any

// Document is a stored record as the store returns it.
type Document struct {
	ID     string
	Fields Fields
}

// Direction orders query results.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Filter is an equality term.
type Filter struct {
	Field string
	Value any
}

// Order names the sort field.
type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents from one collection. Principal is the identity the
// query runs as; owner rules are checked against it.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    Order
	Limit      int
	Principal  string
}

// Event is one watcher delivery: the full current result set, or a terminal
// error after which the watcher delivers nothing else.
type Event struct {
	Docs []Document
	Err  error
}

// Watcher streams events for one query. The channel is closed after a
// terminal error or Stop.
type Watcher interface {
	Events() <-chan Event
	Stop()
}

// Store is implemented by the memory and SQLite backends. Implementations are
// safe for concurrent use.
type Store interface {
	// Add appends a document and returns its id. ServerTimestamp values are
	// resolved by the store.
	Add(ctx context.Context, principal, collection string, fields Fields) (string, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Watch(ctx context.Context, q Query) (Watcher, error)
	Close() error
}
