package loop

import (
	"context"
	"testing"
	"time"
)

func TestDrainRunsTasksInOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	if ran := l.Drain(); ran != 3 {
		t.Fatalf("expected 3 tasks, ran %d", ran)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task order mismatch: %v", got)
		}
	}
}

func TestDrainIncludesTasksPostedWhileDraining(t *testing.T) {
	l := New()
	var got []string
	l.Post(func() {
		got = append(got, "first")
		l.Post(func() { got = append(got, "nested") })
	})

	l.Drain()
	if len(got) != 2 || got[1] != "nested" {
		t.Fatalf("expected nested task to run, got %v", got)
	}
}

func TestPostAfterCloseIsDropped(t *testing.T) {
	l := New()
	l.Close()
	l.Close()

	if l.Post(func() { t.Fatal("task ran after close") }) {
		t.Fatal("expected Post to report false after close")
	}
	if ran := l.Drain(); ran != 0 {
		t.Fatalf("expected nothing to run, ran %d", ran)
	}
}

func TestRunAndDo(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	value := 0
	if err := l.Do(ctx, func() { value = 42 }); err != nil {
		t.Fatalf("Do err: %v", err)
	}
	if value != 42 {
		t.Fatalf("expected task to run on loop, got %d", value)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if err := l.Do(context.Background(), func() {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
