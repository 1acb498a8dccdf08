package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/mindscope/backend/internal/loop"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/service/auth"
	"github.com/zhouzirui/mindscope/backend/internal/session"
)

type failingProvider struct {
	*auth.Service
}

func (failingProvider) SignOut(context.Context, string) error {
	return errors.New("provider unreachable")
}

func (failingProvider) Verify(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, errors.New("provider unreachable")
}

func newProvider(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.NewMemoryRepository(), "secret", time.Hour, auth.WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	return svc
}

func uids(seen []*identity.Identity) []string {
	out := make([]string, len(seen))
	for i, who := range seen {
		if who != nil {
			out[i] = who.Email
		}
	}
	return out
}

func TestObserveReceivesCurrentThenTransitions(t *testing.T) {
	l := loop.New()
	provider := newProvider(t)
	tracker := session.NewTracker(l, provider)
	ctx := context.Background()

	var seen []*identity.Identity
	dispose := tracker.Observe(func(who *identity.Identity) { seen = append(seen, who) })
	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("expected immediate nil delivery, got %v", uids(seen))
	}

	if _, err := tracker.SignUp(ctx, "a@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	l.Drain()
	tracker.SignOut(ctx)
	l.Drain()
	if _, err := tracker.SignUp(ctx, "b@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	l.Drain()

	got := uids(seen)
	want := []string{"", "a@example.com", "", "b@example.com"}
	if len(got) != len(want) {
		t.Fatalf("unexpected deliveries: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery %d: got %q want %q", i, got[i], want[i])
		}
	}

	dispose()
	dispose()
	tracker.SignOut(ctx)
	l.Drain()
	if len(seen) != len(want) {
		t.Fatalf("observer called after dispose")
	}
}

func TestSignInFailureLeavesStateUnchanged(t *testing.T) {
	l := loop.New()
	tracker := session.NewTracker(l, newProvider(t))

	_, err := tracker.SignIn(context.Background(), "ghost@example.com", "secret1")
	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected wrapped ErrInvalidCredentials, got %v", err)
	}
	if authErr.Message() != "Incorrect email or password." {
		t.Fatalf("unexpected message: %s", authErr.Message())
	}
	if l.Pending() != 0 || tracker.Current() != nil {
		t.Fatal("failed sign-in changed state")
	}
}

func TestSignOutEndsSignedOutWhenProviderFails(t *testing.T) {
	l := loop.New()
	tracker := session.NewTracker(l, failingProvider{newProvider(t)})
	ctx := context.Background()

	if _, err := tracker.SignUp(ctx, "c@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	l.Drain()
	if tracker.Current() == nil {
		t.Fatal("expected signed in")
	}

	tracker.SignOut(ctx)
	l.Drain()
	if tracker.Current() != nil || tracker.Token() != "" {
		t.Fatal("expected signed out after failed provider sign-out")
	}
}

func TestRestore(t *testing.T) {
	provider := newProvider(t)
	ctx := context.Background()
	creds, err := provider.SignUp(ctx, "d@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}

	l := loop.New()
	tracker := session.NewTracker(l, provider)
	if who := tracker.Restore(ctx, creds.Token); who == nil || who.UID != creds.Identity.UID {
		t.Fatalf("restore failed: %+v", who)
	}
	l.Drain()
	if tracker.Current() == nil || tracker.Token() != creds.Token {
		t.Fatal("restored identity not applied")
	}

	other := session.NewTracker(loop.New(), failingProvider{provider})
	if who := other.Restore(ctx, creds.Token); who != nil {
		t.Fatalf("expected no identity when provider fails, got %+v", who)
	}
	if who := tracker.Restore(ctx, "garbage"); who != nil {
		t.Fatalf("expected no identity for invalid token, got %+v", who)
	}
}

func TestCloseDropsObservers(t *testing.T) {
	l := loop.New()
	tracker := session.NewTracker(l, newProvider(t))

	calls := 0
	tracker.Observe(func(*identity.Identity) { calls++ })
	tracker.Close()

	if _, err := tracker.SignUp(context.Background(), "e@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	l.Drain()
	if calls != 1 {
		t.Fatalf("observer called after Close: %d", calls)
	}
}

func TestSignOutRevokesTokenBeforeSignInApplied(t *testing.T) {
	provider := newProvider(t)
	l := loop.New()
	tracker := session.NewTracker(l, provider)
	ctx := context.Background()

	creds, err := tracker.SignUp(ctx, "e@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp err: %v", err)
	}
	// the sign-up transition is still queued
	tracker.SignOut(ctx)

	if _, err := provider.Verify(ctx, creds.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected token revoked, got %v", err)
	}

	l.Drain()
	if tracker.Current() != nil || tracker.Token() != "" {
		t.Fatal("expected signed out once the loop drains")
	}
}
