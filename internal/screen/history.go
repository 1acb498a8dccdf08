package screen

import (
	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/livequery"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/view"
)

// HistoryLimit is the number of most recent analyses listed.
const HistoryLimit = 100

// HistoryState is the history screen frame.
type HistoryState struct {
	SignedIn bool               `json:"signedIn"`
	Loading  bool               `json:"loading"`
	Empty    bool               `json:"empty"`
	Error    string             `json:"error,omitempty"`
	Rows     []view.AnalysisRow `json:"rows"`
}

// HistoryScreen lists the signed-in user's analyses, newest first.
type HistoryScreen struct {
	live
}

// NewHistory creates the controller.
func NewHistory(deps *Deps) *HistoryScreen {
	h := &HistoryScreen{}
	h.live = live{
		deps:      deps,
		name:      History,
		spec:      historySpec,
		errorText: "Failed to load history.",
	}
	h.changed = h.Publish
	return h
}

func historySpec(who identity.Identity) livequery.Spec {
	return livequery.Spec{
		Collection: analysis.Collection,
		Filters:    []docstore.Filter{{Field: analysis.FieldOwnerID, Value: who.UID}},
		OrderBy:    docstore.Order{Field: analysis.FieldCreatedAt, Direction: docstore.Descending},
		Limit:      HistoryLimit,
		Principal:  who.UID,
	}
}

func (h *HistoryScreen) Name() Name    { return History }
func (h *HistoryScreen) Activate()     { h.activate() }
func (h *HistoryScreen) Deactivate()   { h.deactivate() }
func (h *HistoryScreen) DismissError() { h.dismissError() }

// State projects the latest snapshot; relative times use the current clock.
func (h *HistoryScreen) State() HistoryState {
	now := h.deps.now()
	rows := make([]view.AnalysisRow, 0, len(h.docs))
	for _, doc := range h.docs {
		rows = append(rows, view.ProjectAnalysis(doc, now))
	}
	return HistoryState{
		SignedIn: h.signedIn(),
		Loading:  h.loading,
		Empty:    h.signedIn() && !h.loading && h.err == "" && len(rows) == 0,
		Error:    h.err,
		Rows:     rows,
	}
}

func (h *HistoryScreen) Publish() {
	h.deps.publish(History, h.State())
}
