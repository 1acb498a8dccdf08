package screen

import (
	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/livequery"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/view"
)

// PatternsState is the chart frame.
type PatternsState struct {
	SignedIn bool         `json:"signedIn"`
	Loading  bool         `json:"loading"`
	Empty    bool         `json:"empty"`
	Error    string       `json:"error,omitempty"`
	Points   []view.Point `json:"points"`
}

// PatternsScreen charts every analysis of the user, oldest first.
type PatternsScreen struct {
	live
}

// NewPatterns creates the controller.
func NewPatterns(deps *Deps) *PatternsScreen {
	p := &PatternsScreen{}
	p.live = live{
		deps:      deps,
		name:      Patterns,
		spec:      patternsSpec,
		errorText: "Failed to load sentiment patterns.",
	}
	p.changed = p.Publish
	return p
}

func patternsSpec(who identity.Identity) livequery.Spec {
	return livequery.Spec{
		Collection: analysis.Collection,
		Filters:    []docstore.Filter{{Field: analysis.FieldOwnerID, Value: who.UID}},
		OrderBy:    docstore.Order{Field: analysis.FieldCreatedAt, Direction: docstore.Ascending},
		Principal:  who.UID,
	}
}

func (p *PatternsScreen) Name() Name    { return Patterns }
func (p *PatternsScreen) Activate()     { p.activate() }
func (p *PatternsScreen) Deactivate()   { p.deactivate() }
func (p *PatternsScreen) DismissError() { p.dismissError() }

func (p *PatternsScreen) State() PatternsState {
	points := make([]view.Point, 0, len(p.docs))
	for _, doc := range p.docs {
		points = append(points, view.ProjectPoint(doc))
	}
	return PatternsState{
		SignedIn: p.signedIn(),
		Loading:  p.loading,
		Empty:    p.signedIn() && !p.loading && p.err == "" && len(points) == 0,
		Error:    p.err,
		Points:   points,
	}
}

func (p *PatternsScreen) Publish() {
	p.deps.publish(Patterns, p.State())
}
