// Package livequery opens store watchers on behalf of a screen and delivers
// their snapshots on the client session's event loop.
package livequery

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/loop"
)

// ErrUnscopedQuery is returned before subscribing when an owner-scoped
// collection is queried without an owner filter for the principal.
var ErrUnscopedQuery = errors.New("query is not scoped to the current identity")

// SubscriptionError is the terminal failure delivered to onError.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription to %s failed: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// State of a handle.
type State int

const (
	Created State = iota
	Active
	Released
	Errored
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Active:
		return "active"
	case Released:
		return "released"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Spec describes the live query.
type Spec struct {
	Collection string
	Filters    []docstore.Filter
	OrderBy    docstore.Order
	Limit      int
	Principal  string
}

func (s Spec) query() docstore.Query {
	return docstore.Query{
		Collection: s.Collection,
		Filters:    append([]docstore.Filter(nil), s.Filters...),
		OrderBy:    s.OrderBy,
		Limit:      s.Limit,
		Principal:  s.Principal,
	}
}

// Handle is one subscription. Its state is owned by the loop: Release and
// State must be called there, and callbacks only fire there.
type Handle struct {
	loop       *loop.Loop
	spec       Spec
	watcher    docstore.Watcher
	onSnapshot func([]docstore.Document)
	onError    func(*SubscriptionError)
	state      State
}

// Subscribe checks the scope, opens a store watcher and starts forwarding
// its events to l. It must be called on the loop.
func Subscribe(
	ctx context.Context,
	l *loop.Loop,
	store docstore.Store,
	rules docstore.Rules,
	spec Spec,
	onSnapshot func([]docstore.Document),
	onError func(*SubscriptionError),
) (*Handle, error) {
	if err := checkScope(rules, spec); err != nil {
		return nil, err
	}

	h := &Handle{
		loop:       l,
		spec:       spec,
		onSnapshot: onSnapshot,
		onError:    onError,
		state:      Created,
	}

	w, err := store.Watch(ctx, spec.query())
	if err != nil {
		return nil, &SubscriptionError{Collection: spec.Collection, Err: err}
	}
	h.watcher = w
	h.state = Active

	go h.forward(w.Events())
	return h, nil
}

// State reports the handle state.
func (h *Handle) State() State {
	return h.state
}

// Release stops the subscription. After it returns no callback fires for h,
// even if a delivery is already queued on the loop.
func (h *Handle) Release() {
	if h == nil || h.state != Active {
		return
	}
	h.state = Released
	h.watcher.Stop()
}

// forward runs off-loop and only posts; state is checked when each post
// executes.
func (h *Handle) forward(events <-chan docstore.Event) {
	for ev := range events {
		ev := ev
		if !h.loop.Post(func() { h.deliver(ev) }) {
			h.watcher.Stop()
			return
		}
	}
}

func (h *Handle) deliver(ev docstore.Event) {
	if h.state != Active {
		return
	}
	if ev.Err != nil {
		h.state = Errored
		h.watcher.Stop()
		logging.L().Warnw("[livequery] subscription failed", "collection", h.spec.Collection, "error", ev.Err)
		if h.onError != nil {
			h.onError(&SubscriptionError{Collection: h.spec.Collection, Err: ev.Err})
		}
		return
	}
	if h.onSnapshot != nil {
		h.onSnapshot(ev.Docs)
	}
}

func checkScope(rules docstore.Rules, spec Spec) error {
	field, scoped := rules.OwnerField(spec.Collection)
	if !scoped {
		return nil
	}
	if spec.Principal == "" {
		return ErrUnscopedQuery
	}
	for _, f := range spec.Filters {
		if f.Field == field {
			if v, ok := f.Value.(string); ok && v == spec.Principal {
				return nil
			}
			return ErrUnscopedQuery
		}
	}
	return ErrUnscopedQuery
}
