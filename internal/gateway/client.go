// Package gateway binds one connected client to its own event loop, session
// tracker and screen navigator.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/loop"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/screen"
	"github.com/zhouzirui/mindscope/backend/internal/session"
)

// Inbound command types.
const (
	CmdSignIn        = "signIn"
	CmdSignUp        = "signUp"
	CmdSignOut       = "signOut"
	CmdRestore       = "restore"
	CmdNavigate      = "navigate"
	CmdAnalyze       = "analyze"
	CmdClearAnalysis = "clearAnalysis"
	CmdChat          = "chat"
	CmdDismissError  = "dismissError"
)

// Outbound message types.
const (
	TypeSession = "session"
	TypeScreen  = "screen"
	TypeError   = "error"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("invalid command payload")
)

// Command is one inbound client message.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is one message pushed to the client.
type Outbound struct {
	Type      string      `json:"type"`
	Screen    screen.Name `json:"screen,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// SessionState is the payload of a session message.
type SessionState struct {
	SignedIn bool   `json:"signedIn"`
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
}

// ErrorState is the payload of an error message.
type ErrorState struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

type navigatePayload struct {
	Screen screen.Name `json:"screen"`
}

type textPayload struct {
	Text string `json:"text"`
}

// Options are the process-wide services shared by every client.
type Options struct {
	Store     docstore.Store
	Rules     docstore.Rules
	Provider  session.Provider
	Inference screen.Inference
	Now       func() time.Time
}

// Client is one client session. Send is called for every outbound message
// and must be safe for concurrent use.
type Client struct {
	loop    *loop.Loop
	tracker *session.Tracker
	nav     *screen.Navigator
	send    func(Outbound)
	now     func() time.Time

	// loop-owned
	dispose func()
	torn    bool

	closeOnce sync.Once
}

// NewClient wires a client session. Call Start to run its loop.
func NewClient(opts Options, send func(Outbound)) *Client {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := loop.New()
	tracker := session.NewTracker(l, opts.Provider)
	c := &Client{
		loop:    l,
		tracker: tracker,
		send:    send,
		now:     now,
	}

	c.nav = screen.NewNavigator(&screen.Deps{
		Loop:      l,
		Store:     opts.Store,
		Rules:     opts.Rules,
		Tracker:   tracker,
		Inference: opts.Inference,
		Now:       now,
		Publish: func(f screen.Frame) {
			c.emit(Outbound{Type: TypeScreen, Screen: f.Screen, Data: f.Data})
		},
	})
	return c
}

// Start runs the loop in the background until ctx is cancelled or Close is
// called, and begins following the tracker.
func (c *Client) Start(ctx context.Context) {
	go func() {
		if err := c.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.L().Warnw("[gateway] client loop stopped", "error", err)
		}
	}()

	c.loop.Post(func() {
		c.dispose = c.tracker.Observe(c.onIdentity)
		c.nav.Start()
	})
}

// Close deactivates the current screen and stops the loop. Safe to call
// twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.loop.Do(ctx, c.teardown); errors.Is(err, loop.ErrClosed) {
			// the loop already stopped, so nothing else touches the controllers
			c.teardown()
		} else if err != nil {
			logging.L().Warnw("[gateway] client teardown timed out", "error", err)
		}
		c.loop.Close()
	})
}

func (c *Client) teardown() {
	if c.torn {
		return
	}
	c.torn = true
	c.nav.Stop()
	if c.dispose != nil {
		c.dispose()
	}
	c.tracker.Close()
}

// Done is closed once the client's loop has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.loop.Done()
}

// Restore resumes a session from a token and reports whether it was valid.
func (c *Client) Restore(ctx context.Context, token string) bool {
	return c.tracker.Restore(ctx, token) != nil
}

// Navigate switches the current screen.
func (c *Client) Navigate(ctx context.Context, name screen.Name) error {
	var navErr error
	if err := c.loop.Do(ctx, func() { navErr = c.nav.Navigate(name) }); err != nil {
		return err
	}
	return navErr
}

// Handle executes one inbound command. Errors are reported to the client as
// error messages; the returned error is for logging.
func (c *Client) Handle(ctx context.Context, cmd Command) error {
	err := c.dispatch(ctx, cmd)
	if err != nil {
		c.emit(Outbound{Type: TypeError, Data: ErrorState{Command: cmd.Type, Message: userMessage(err)}})
	}
	return err
}

func (c *Client) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdSignIn, CmdSignUp:
		var p credentialsPayload
		if err := decode(cmd.Data, &p); err != nil {
			return err
		}
		var err error
		if cmd.Type == CmdSignIn {
			_, err = c.tracker.SignIn(ctx, p.Email, p.Password)
		} else {
			_, err = c.tracker.SignUp(ctx, p.Email, p.Password)
		}
		return err

	case CmdSignOut:
		c.tracker.SignOut(ctx)
		return nil

	case CmdRestore:
		var p tokenPayload
		if err := decode(cmd.Data, &p); err != nil {
			return err
		}
		if !c.Restore(ctx, p.Token) {
			return errSessionExpired
		}
		return nil

	case CmdNavigate:
		var p navigatePayload
		if err := decode(cmd.Data, &p); err != nil {
			return err
		}
		return c.Navigate(ctx, p.Screen)

	case CmdAnalyze:
		var p textPayload
		if err := decode(cmd.Data, &p); err != nil {
			return err
		}
		return c.onLoop(ctx, func() error {
			a, err := c.nav.Analyzer()
			if err != nil {
				return err
			}
			a.Submit(p.Text)
			return nil
		})

	case CmdClearAnalysis:
		return c.onLoop(ctx, func() error {
			a, err := c.nav.Analyzer()
			if err != nil {
				return err
			}
			a.Clear()
			return nil
		})

	case CmdChat:
		var p textPayload
		if err := decode(cmd.Data, &p); err != nil {
			return err
		}
		return c.onLoop(ctx, func() error {
			ch, err := c.nav.Chat()
			if err != nil {
				return err
			}
			ch.Send(p.Text)
			return nil
		})

	case CmdDismissError:
		return c.onLoop(ctx, func() error {
			c.nav.DismissError()
			return nil
		})

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func (c *Client) onLoop(ctx context.Context, fn func() error) error {
	var fnErr error
	if err := c.loop.Do(ctx, func() { fnErr = fn() }); err != nil {
		return err
	}
	return fnErr
}

// onIdentity runs on the loop.
func (c *Client) onIdentity(who *identity.Identity) {
	state := SessionState{}
	if who != nil {
		state = SessionState{
			SignedIn: true,
			UID:      who.UID,
			Email:    who.Email,
			Token:    c.tracker.Token(),
		}
	}
	c.emit(Outbound{Type: TypeSession, Data: state})
}

func (c *Client) emit(msg Outbound) {
	if c.send == nil {
		return
	}
	msg.Timestamp = c.now().UnixMilli()
	c.send(msg)
}

var errSessionExpired = errors.New("session expired")

func decode(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return ErrBadPayload
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

func userMessage(err error) string {
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message()
	case errors.Is(err, errSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, screen.ErrSignedOut):
		return "Please sign in to continue."
	case errors.Is(err, screen.ErrUnknownScreen):
		return "That page does not exist."
	case errors.Is(err, screen.ErrNotActive):
		return "Open that page first."
	case errors.Is(err, ErrBadPayload), errors.Is(err, ErrUnknownCommand):
		return "Invalid request."
	case errors.Is(err, loop.ErrClosed), errors.Is(err, context.Canceled):
		return "Connection closed."
	default:
		return strings.TrimSpace(err.Error())
	}
}
