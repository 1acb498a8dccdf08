package livequery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/docstore/memstore"
	"github.com/zhouzirui/mindscope/backend/internal/livequery"
	"github.com/zhouzirui/mindscope/backend/internal/loop"
)

var rules = docstore.NewRules(docstore.OwnerRule{Collection: "notes", Field: "ownerId"})

func spec(owner string) livequery.Spec {
	return livequery.Spec{
		Collection: "notes",
		Filters:    []docstore.Filter{{Field: "ownerId", Value: owner}},
		OrderBy:    docstore.Order{Field: "createdAt", Direction: docstore.Descending},
		Principal:  owner,
	}
}

// drainUntil steps the loop until cond holds.
func drainUntil(t *testing.T, l *loop.Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		if l.Drain() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func add(t *testing.T, store docstore.Store, owner, text string) {
	t.Helper()
	_, err := store.Add(context.Background(), owner, "notes", docstore.Fields{
		"ownerId":   owner,
		"text":      text,
		"createdAt": docstore.ServerTimestamp(),
	})
	if err != nil {
		t.Fatalf("Add err: %v", err)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	l := loop.New()
	store := memstore.New(memstore.WithRules(rules))
	ctx := context.Background()

	var snapshots [][]docstore.Document
	h, err := livequery.Subscribe(ctx, l, store, rules, spec("u1"), func(docs []docstore.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	if h.State() != livequery.Active {
		t.Fatalf("unexpected state %s", h.State())
	}

	drainUntil(t, l, func() bool { return len(snapshots) == 1 })
	add(t, store, "u1", "hello")
	drainUntil(t, l, func() bool { return len(snapshots) == 2 })

	if len(snapshots[0]) != 0 || len(snapshots[1]) != 1 || snapshots[1][0].Fields["text"] != "hello" {
		t.Fatalf("unexpected snapshots: %+v", snapshots)
	}
	h.Release()
}

func TestSubscribeRejectsUnscopedQuery(t *testing.T) {
	l := loop.New()
	store := memstore.New(memstore.WithRules(rules))
	ctx := context.Background()

	bad := spec("u1")
	bad.Filters = nil
	if _, err := livequery.Subscribe(ctx, l, store, rules, bad, nil, nil); !errors.Is(err, livequery.ErrUnscopedQuery) {
		t.Fatalf("expected ErrUnscopedQuery, got %v", err)
	}

	foreign := spec("u1")
	foreign.Principal = "u2"
	if _, err := livequery.Subscribe(ctx, l, store, rules, foreign, nil, nil); !errors.Is(err, livequery.ErrUnscopedQuery) {
		t.Fatalf("expected ErrUnscopedQuery for foreign owner, got %v", err)
	}
	if store.Watchers() != 0 {
		t.Fatal("watcher opened for rejected spec")
	}
}

func TestStoreRejectionIsSubscriptionError(t *testing.T) {
	l := loop.New()
	store := memstore.New(memstore.WithRules(rules))

	// client-side rules are empty, so only the store catches the leak
	_, err := livequery.Subscribe(context.Background(), l, store, docstore.NewRules(), livequery.Spec{Collection: "notes", Principal: "u1"}, nil, nil)
	var subErr *livequery.SubscriptionError
	if !errors.As(err, &subErr) || !errors.Is(err, docstore.ErrPermissionDenied) {
		t.Fatalf("expected SubscriptionError wrapping permission denied, got %v", err)
	}
}

func TestNoCallbackAfterRelease(t *testing.T) {
	l := loop.New()
	store := memstore.New(memstore.WithRules(rules))

	calls := 0
	h, err := livequery.Subscribe(context.Background(), l, store, rules, spec("u1"), func([]docstore.Document) { calls++ }, nil)
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}

	// initial snapshot is queued on the loop but not yet run
	deadline := time.Now().Add(2 * time.Second)
	for l.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial delivery never posted")
		}
		time.Sleep(time.Millisecond)
	}

	h.Release()
	h.Release()
	add(t, store, "u1", "late")
	time.Sleep(20 * time.Millisecond)
	l.Drain()

	if calls != 0 {
		t.Fatalf("callback fired after release: %d", calls)
	}
	if h.State() != livequery.Released {
		t.Fatalf("unexpected state %s", h.State())
	}
	if store.Watchers() != 0 {
		t.Fatal("store watcher not stopped")
	}
}

func TestErrorIsTerminal(t *testing.T) {
	l := loop.New()
	store := memstore.New(memstore.WithRules(rules))

	var (
		snapshots int
		failures  []*livequery.SubscriptionError
	)
	h, err := livequery.Subscribe(context.Background(), l, store, rules, spec("u1"),
		func([]docstore.Document) { snapshots++ },
		func(err *livequery.SubscriptionError) { failures = append(failures, err) },
	)
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	drainUntil(t, l, func() bool { return snapshots == 1 })

	store.Fail(errors.New("listener lost"))
	drainUntil(t, l, func() bool { return len(failures) == 1 })

	if h.State() != livequery.Errored {
		t.Fatalf("unexpected state %s", h.State())
	}
	if failures[0].Collection != "notes" {
		t.Fatalf("unexpected collection: %s", failures[0].Collection)
	}

	add(t, store, "u1", "after failure")
	time.Sleep(20 * time.Millisecond)
	l.Drain()
	h.Release()
	if snapshots != 1 || len(failures) != 1 || h.State() != livequery.Errored {
		t.Fatalf("callbacks after terminal error: snapshots=%d failures=%d state=%s", snapshots, len(failures), h.State())
	}
}
