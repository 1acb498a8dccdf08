package screen

import (
	"errors"
	"fmt"

	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
)

var (
	ErrUnknownScreen = errors.New("unknown screen")
	ErrSignedOut     = errors.New("sign in to continue")
	ErrNotActive     = errors.New("screen is not active")
)

// LoginState is the frame shown while signed out.
type LoginState struct {
	SignedIn bool `json:"signedIn"`
}

// Navigator gates the screens behind sign-in and keeps at most one screen
// controller active.
type Navigator struct {
	deps        *Deps
	controllers map[Name]Controller
	current     Name
	identity    *identity.Identity
	dispose     func()
}

// NewNavigator builds the four controllers. Call Start on the loop.
func NewNavigator(deps *Deps) *Navigator {
	return &Navigator{
		deps: deps,
		controllers: map[Name]Controller{
			Analyze:  NewAnalyzer(deps),
			History:  NewHistory(deps),
			Patterns: NewPatterns(deps),
			Chat:     NewChat(deps),
		},
		current: Login,
	}
}

// Start follows the tracker: signing out drops to the login screen,
// signing in lands on the analyzer.
func (n *Navigator) Start() {
	if n.dispose != nil {
		return
	}
	n.dispose = n.deps.Tracker.Observe(n.onIdentity)
}

// Stop deactivates the current screen and stops following the tracker.
func (n *Navigator) Stop() {
	n.deactivateCurrent()
	if n.dispose != nil {
		n.dispose()
		n.dispose = nil
	}
}

func (n *Navigator) onIdentity(who *identity.Identity) {
	n.identity = who
	if who == nil {
		n.deactivateCurrent()
		n.current = Login
		n.deps.publish(Login, LoginState{})
		return
	}
	if n.current == Login {
		n.switchTo(Analyze)
	}
}

// Navigate switches screens, deactivating the current one first.
func (n *Navigator) Navigate(name Name) error {
	if !name.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	if n.identity == nil {
		return ErrSignedOut
	}
	if name == n.current {
		n.controllers[name].Publish()
		return nil
	}
	n.switchTo(name)
	return nil
}

// Current returns the shown screen.
func (n *Navigator) Current() Name { return n.current }

// DismissError clears the banner of the current screen.
func (n *Navigator) DismissError() {
	if c, ok := n.controllers[n.current]; ok {
		c.DismissError()
	}
}

// Analyzer returns the analyzer when it is the current screen.
func (n *Navigator) Analyzer() (*AnalyzerScreen, error) {
	if n.current != Analyze {
		return nil, ErrNotActive
	}
	return n.controllers[Analyze].(*AnalyzerScreen), nil
}

// Chat returns the chat screen when it is the current screen.
func (n *Navigator) Chat() (*ChatScreen, error) {
	if n.current != Chat {
		return nil, ErrNotActive
	}
	return n.controllers[Chat].(*ChatScreen), nil
}

// Controller returns a screen by name.
func (n *Navigator) Controller(name Name) (Controller, bool) {
	c, ok := n.controllers[name]
	return c, ok
}

func (n *Navigator) switchTo(name Name) {
	n.deactivateCurrent()
	n.current = name
	n.controllers[name].Activate()
}

func (n *Navigator) deactivateCurrent() {
	if c, ok := n.controllers[n.current]; ok {
		c.Deactivate()
	}
}
