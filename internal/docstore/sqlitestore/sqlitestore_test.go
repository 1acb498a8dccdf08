package sqlitestore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/docstore/sqlitestore"
	"github.com/zhouzirui/mindscope/backend/internal/storage"
)

var ownerRules = docstore.NewRules(docstore.OwnerRule{Collection: "notes", Field: "ownerId"})

func testStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	store := sqlitestore.New(db, ownerRules)
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})
	return store
}

func scoped(owner string) docstore.Query {
	return docstore.Query{
		Collection: "notes",
		Filters:    []docstore.Filter{{Field: "ownerId", Value: owner}},
		OrderBy:    docstore.Order{Field: "createdAt", Direction: docstore.Ascending},
		Principal:  owner,
	}
}

func TestAddAndQuery(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u2", "u1"} {
		fields := docstore.Fields{
			"ownerId":   owner,
			"text":      "hello " + owner,
			"scores":    docstore.Fields{"positive": 0.5},
			"createdAt": docstore.ServerTimestamp(),
		}
		if _, err := store.Add(ctx, owner, "notes", fields); err != nil {
			t.Fatalf("Add err: %v", err)
		}
	}

	docs, err := store.Query(ctx, scoped("u1"))
	if err != nil {
		t.Fatalf("Query err: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs for u1, got %d", len(docs))
	}
	ts, ok := docs[0].Fields["createdAt"].(docstore.Timestamp)
	if !ok || ts.Kind() != docstore.TimestampNative {
		t.Fatalf("createdAt not resolved: %#v", docs[0].Fields["createdAt"])
	}
	if docs[0].Fields["scores"].(docstore.Fields)["positive"] != 0.5 {
		t.Fatalf("nested scores lost: %#v", docs[0].Fields["scores"])
	}
}

func TestRulesEnforced(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "u1", "notes", docstore.Fields{"ownerId": "u2"}); !errors.Is(err, docstore.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := store.Query(ctx, docstore.Query{Collection: "notes", Principal: "u1"}); !errors.Is(err, docstore.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestWatchSeesCommits(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	w, err := store.Watch(ctx, scoped("u1"))
	if err != nil {
		t.Fatalf("Watch err: %v", err)
	}
	defer w.Stop()

	recv := func() docstore.Event {
		t.Helper()
		select {
		case ev := <-w.Events():
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
		return docstore.Event{}
	}

	if ev := recv(); len(ev.Docs) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(ev.Docs))
	}
	if _, err := store.Add(ctx, "u1", "notes", docstore.Fields{"ownerId": "u1", "createdAt": docstore.ServerTimestamp()}); err != nil {
		t.Fatalf("Add err: %v", err)
	}
	if ev := recv(); ev.Err != nil || len(ev.Docs) != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	store.Close()
	if ev := recv(); !errors.Is(ev.Err, docstore.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %+v", ev)
	}
}
