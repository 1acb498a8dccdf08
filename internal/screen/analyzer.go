package screen

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
)

// Analyzer messages.
const (
	ErrEmptyText      = "Please enter some text to analyze"
	ErrAnalyzeFailed  = "Failed to analyze sentiment. Please make sure the inference server is running."
	errTooLongPattern = "Text is too long (maximum %d characters)"
)

// AnalyzerState is the analyzer frame.
type AnalyzerState struct {
	SignedIn bool             `json:"signedIn"`
	Text     string           `json:"text"`
	Phase    string           `json:"phase"`
	Loading  bool             `json:"loading"`
	Result   *analysis.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// AnalyzerScreen scores one text at a time and, when signed in, records
// each successful result.
type AnalyzerScreen struct {
	deps *Deps

	identity *identity.Identity
	dispose  func()
	active   bool

	action Action
	text   string
	result *analysis.Result
	err    string
}

// NewAnalyzer creates the controller.
func NewAnalyzer(deps *Deps) *AnalyzerScreen {
	return &AnalyzerScreen{deps: deps}
}

func (a *AnalyzerScreen) Name() Name { return Analyze }

func (a *AnalyzerScreen) Activate() {
	if a.active {
		return
	}
	a.active = true
	a.dispose = a.deps.Tracker.Observe(func(who *identity.Identity) {
		a.identity = who
		a.Publish()
	})
}

func (a *AnalyzerScreen) Deactivate() {
	if !a.active {
		return
	}
	a.active = false
	if a.dispose != nil {
		a.dispose()
		a.dispose = nil
	}
	a.action.Reset()
	a.identity = nil
	a.text = ""
	a.result = nil
	a.err = ""
}

func (a *AnalyzerScreen) DismissError() {
	if a.err == "" {
		return
	}
	a.err = ""
	a.Publish()
}

// Clear resets text, result and error.
func (a *AnalyzerScreen) Clear() {
	if a.action.Phase() == Pending {
		return
	}
	a.action.Reset()
	a.text = ""
	a.result = nil
	a.err = ""
	a.Publish()
}

// Submit validates text and starts an analysis. On failure nothing is
// written and the previous result is cleared.
func (a *AnalyzerScreen) Submit(text string) {
	if !a.active || a.action.Phase() == Pending {
		return
	}
	a.text = text

	if strings.TrimSpace(text) == "" {
		a.err = ErrEmptyText
		a.Publish()
		return
	}
	if utf8.RuneCountInString(text) > analysis.MaxTextLength {
		a.err = fmt.Sprintf(errTooLongPattern, analysis.MaxTextLength)
		a.Publish()
		return
	}

	ticket, _ := a.action.Begin()
	a.result = nil
	a.err = ""
	a.Publish()

	var (
		store  = a.deps.Store
		client = a.deps.Inference
		who    *identity.Identity
	)
	if a.identity != nil {
		cp := *a.identity
		who = &cp
	}

	a.deps.spawn(func() {
		ctx := context.Background()
		res, err := client.Analyze(ctx, text)
		if err == nil && who != nil {
			record := analysis.Record{OwnerID: who.UID, Text: text, Result: res}
			if _, werr := store.Add(ctx, who.UID, analysis.Collection, record.Fields()); werr != nil {
				logging.L().Errorw("[screen] write analysis failed", "uid", who.UID, "error", werr)
			}
		}
		a.deps.Loop.Post(func() { a.finish(ticket, res, err) })
	})
}

func (a *AnalyzerScreen) finish(ticket uint64, res analysis.Result, err error) {
	if !a.action.Finish(ticket, err) {
		return
	}
	if err != nil {
		logging.L().Warnw("[screen] analyze failed", "error", err)
		a.result = nil
		a.err = ErrAnalyzeFailed
	} else {
		a.result = &res
	}
	a.Publish()
}

// Phase exposes the action phase.
func (a *AnalyzerScreen) Phase() Phase { return a.action.Phase() }

func (a *AnalyzerScreen) State() AnalyzerState {
	return AnalyzerState{
		SignedIn: a.identity != nil,
		Text:     a.text,
		Phase:    a.action.Phase().String(),
		Loading:  a.action.Phase() == Pending,
		Result:   a.result,
		Error:    a.err,
	}
}

func (a *AnalyzerScreen) Publish() {
	a.deps.publish(Analyze, a.State())
}
