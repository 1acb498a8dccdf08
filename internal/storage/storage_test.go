package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func testDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

func TestMigrationsApplied(t *testing.T) {
	db, _ := testDB(t)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("applied %d migrations, want %d", count, len(migrations))
	}

	if _, err := db.Exec(`INSERT INTO users (id, email, password_hash) VALUES ('u1', 'a@b.c', 'x')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (id, email, password_hash) VALUES ('u2', 'a@b.c', 'y')`); err == nil {
		t.Fatal("expected unique constraint violation on email")
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	db, path := testDB(t)
	if _, err := db.Exec(`INSERT INTO documents (id, collection, data) VALUES ('d1', 'c', '{}')`); err != nil {
		t.Fatalf("insert document: %v", err)
	}
	db.Close()

	again, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	var count int
	if err := again.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if count != 1 {
		t.Fatalf("documents lost on reopen: %d", count)
	}
}

func TestPragmasApplyToEveryConnection(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()

	// 同时持有两条连接，迫使连接池新建第二条
	first, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("first conn: %v", err)
	}
	defer first.Close()
	second, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("second conn: %v", err)
	}
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != busyTimeoutMillis {
			t.Fatalf("conn %d busy_timeout = %d, want %d", i, timeout, busyTimeoutMillis)
		}

		var mode string
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d journal_mode: %v", i, err)
		}
		if !strings.EqualFold(mode, "wal") {
			t.Fatalf("conn %d journal_mode = %q, want wal", i, mode)
		}
	}
}
