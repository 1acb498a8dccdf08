// Package screen holds the per-screen controllers of a client session. All
// controller methods run on the session's event loop.
package screen

import (
	"context"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/inference"
	"github.com/zhouzirui/mindscope/backend/internal/loop"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
	"github.com/zhouzirui/mindscope/backend/internal/session"
)

// Name identifies a screen.
type Name string

const (
	Login    Name = "login"
	Analyze  Name = "analyze"
	History  Name = "history"
	Patterns Name = "patterns"
	Chat     Name = "chat"
)

// Valid reports whether n is a navigable screen.
func (n Name) Valid() bool {
	switch n {
	case Analyze, History, Patterns, Chat:
		return true
	}
	return false
}

// Inference is the slice of the backend client the controllers use.
type Inference interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
	Converse(ctx context.Context, message string, history []chat.Turn) (inference.ChatResponse, error)
}

// Frame is a full state snapshot of one screen.
type Frame struct {
	Screen Name `json:"screen"`
	Data   any  `json:"data"`
}

// Deps are shared by every controller of a client session.
type Deps struct {
	Loop      *loop.Loop
	Store     docstore.Store
	Rules     docstore.Rules
	Tracker   *session.Tracker
	Inference Inference

	// Publish receives a frame whenever a screen's state changes. Called on
	// the loop.
	Publish func(Frame)
	// Now drives relative-time labels.
	Now func() time.Time
	// Go runs async actions; defaults to a new goroutine.
	Go func(func())
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) spawn(fn func()) {
	if d.Go != nil {
		d.Go(fn)
		return
	}
	go fn()
}

func (d *Deps) publish(name Name, data any) {
	if d.Publish != nil {
		d.Publish(Frame{Screen: name, Data: data})
	}
}

// Controller is one screen.
type Controller interface {
	Name() Name
	Activate()
	Deactivate()
	DismissError()
	// Publish pushes the current state.
	Publish()
}

// OwnerRules scopes both record collections to their ownerId field.
func OwnerRules() docstore.Rules {
	return docstore.NewRules(
		docstore.OwnerRule{Collection: analysis.Collection, Field: analysis.FieldOwnerID},
		docstore.OwnerRule{Collection: chat.Collection, Field: chat.FieldOwnerID},
	)
}
