package screen

import (
	"context"
	"errors"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/livequery"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
)

// live is the part every list screen shares: follow the tracker, keep one
// subscription scoped to the current identity, and hold the latest snapshot.
type live struct {
	deps *Deps
	name Name
	// spec builds the query for a signed-in identity.
	spec func(who identity.Identity) livequery.Spec
	// errorText is shown when the subscription fails.
	errorText string
	// changed is called after any state change.
	changed func()
	// identityChanged lets a screen reset per-identity state.
	identityChanged func(who *identity.Identity)

	identity *identity.Identity
	handle   *livequery.Handle
	dispose  func()
	docs     []docstore.Document
	loading  bool
	err      string
	active   bool
}

func (l *live) activate() {
	if l.active {
		return
	}
	l.active = true
	l.dispose = l.deps.Tracker.Observe(l.onIdentity)
}

// deactivate releases the handle, then the tracker observation.
func (l *live) deactivate() {
	if !l.active {
		return
	}
	l.active = false
	l.handle.Release()
	l.handle = nil
	if l.dispose != nil {
		l.dispose()
		l.dispose = nil
	}
	l.docs = nil
	l.loading = false
	l.err = ""
	l.identity = nil
}

func (l *live) onIdentity(who *identity.Identity) {
	l.handle.Release()
	l.handle = nil
	l.identity = who
	l.docs = nil
	l.err = ""
	l.loading = false
	if l.identityChanged != nil {
		l.identityChanged(who)
	}

	if who != nil {
		l.loading = true
		h, err := livequery.Subscribe(context.Background(), l.deps.Loop, l.deps.Store, l.deps.Rules,
			l.spec(*who), l.onSnapshot, l.onError)
		if err != nil {
			l.failed(err)
		} else {
			l.handle = h
		}
	}
	l.changed()
}

func (l *live) onSnapshot(docs []docstore.Document) {
	l.docs = docs
	l.loading = false
	l.changed()
}

func (l *live) onError(err *livequery.SubscriptionError) {
	l.failed(err)
	l.changed()
}

func (l *live) failed(err error) {
	l.loading = false
	l.err = l.errorText
	if errors.Is(err, docstore.ErrPermissionDenied) || errors.Is(err, livequery.ErrUnscopedQuery) {
		l.err = "You don't have permission to view this data."
	}
	logging.L().Warnw("[screen] subscription failed", "screen", l.name, "error", err)
}

func (l *live) dismissError() {
	if l.err == "" {
		return
	}
	l.err = ""
	l.changed()
}

func (l *live) signedIn() bool { return l.identity != nil }
