// Package session tracks the signed-in identity of one client session and
// notifies observers on the session's event loop.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/loop"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/service/auth"
)

// Provider is the identity provider the tracker talks to.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (auth.Credentials, error)
	SignUp(ctx context.Context, email, password string) (auth.Credentials, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

// Observer receives the current identity, nil when signed out.
type Observer func(*identity.Identity)

// Tracker holds the current identity. Observe, Current and Close must run on
// the loop; SignIn, SignUp, SignOut and Restore block on the provider and
// must not.
type Tracker struct {
	loop     *loop.Loop
	provider Provider

	tokenMu sync.Mutex
	token   string // applied by the last transition
	issued  string // carried by the last posted transition

	// loop-owned
	current   *identity.Identity
	observers map[int]Observer
	nextID    int
	closed    bool
}

// NewTracker starts signed out.
func NewTracker(l *loop.Loop, provider Provider) *Tracker {
	return &Tracker{
		loop:      l,
		provider:  provider,
		observers: make(map[int]Observer),
	}
}

// Observe calls cb with the current identity and then on every transition.
// The returned func disposes the observation and is safe to call twice.
func (t *Tracker) Observe(cb Observer) func() {
	if t.closed {
		cb(nil)
		return func() {}
	}

	id := t.nextID
	t.nextID++
	t.observers[id] = cb
	cb(t.snapshot())

	return func() { delete(t.observers, id) }
}

// Current returns a copy of the current identity.
func (t *Tracker) Current() *identity.Identity {
	return t.snapshot()
}

// Token returns the session token of the current identity. Safe from any
// goroutine.
func (t *Tracker) Token() string {
	t.tokenMu.Lock()
	defer t.tokenMu.Unlock()
	return t.token
}

// SignIn 验证账号密码，成功后在事件循环上切换身份。
func (t *Tracker) SignIn(ctx context.Context, email, password string) (auth.Credentials, error) {
	creds, err := t.provider.SignIn(ctx, email, password)
	if err != nil {
		return auth.Credentials{}, &AuthError{Op: "sign in", Err: err}
	}
	t.post(&creds.Identity, creds.Token)
	return creds, nil
}

// SignUp creates an account and switches to it.
func (t *Tracker) SignUp(ctx context.Context, email, password string) (auth.Credentials, error) {
	creds, err := t.provider.SignUp(ctx, email, password)
	if err != nil {
		return auth.Credentials{}, &AuthError{Op: "sign up", Err: err}
	}
	t.post(&creds.Identity, creds.Token)
	return creds, nil
}

// SignOut always ends signed out; a provider failure is only logged. It
// revokes the most recently issued token even when its sign-in has not been
// applied on the loop yet.
func (t *Tracker) SignOut(ctx context.Context) {
	t.tokenMu.Lock()
	token := t.issued
	t.tokenMu.Unlock()

	if token != "" {
		if err := t.provider.SignOut(ctx, token); err != nil {
			logging.L().Warnw("[session] provider sign-out failed", "error", err)
		}
	}
	t.post(nil, "")
}

// Restore resumes a session from a token. An invalid token or unreachable
// provider leaves the tracker signed out.
func (t *Tracker) Restore(ctx context.Context, token string) *identity.Identity {
	if token == "" {
		return nil
	}
	who, err := t.provider.Verify(ctx, token)
	if err != nil {
		logging.L().Infow("[session] token restore failed", "error", err)
		return nil
	}
	t.post(&who, token)
	return &who
}

// Close drops every observer. Later transitions are ignored.
func (t *Tracker) Close() {
	t.closed = true
	t.observers = make(map[int]Observer)
}

func (t *Tracker) post(who *identity.Identity, token string) {
	t.tokenMu.Lock()
	defer t.tokenMu.Unlock()
	t.issued = token
	t.loop.Post(func() { t.transition(who, token) })
}

func (t *Tracker) transition(who *identity.Identity, token string) {
	if t.closed {
		return
	}
	t.tokenMu.Lock()
	t.token = token
	t.tokenMu.Unlock()
	if sameIdentity(t.current, who) {
		return
	}
	t.current = who

	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		// an earlier observer may have disposed this one
		cb, ok := t.observers[id]
		if !ok {
			continue
		}
		cb(t.snapshot())
	}
}

func (t *Tracker) snapshot() *identity.Identity {
	if t.current == nil {
		return nil
	}
	cp := *t.current
	return &cp
}

func sameIdentity(a, b *identity.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}
