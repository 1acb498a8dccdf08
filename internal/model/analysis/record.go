// Package analysis describes one-shot sentiment results as stored and as
// exchanged with the inference backend.
package analysis

import "github.com/zhouzirui/mindscope/backend/internal/docstore"

// Collection stores analysis results.
const Collection = "sentimentHistory"

// Stored field names.
const (
	FieldOwnerID   = "ownerId"
	FieldText      = "text"
	FieldSentiment = "sentiment"
	FieldScores    = "scores"
	FieldCreatedAt = "createdAt"
)

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
	Unknown  = "unknown"
)

// MaxTextLength bounds the analyzer input, counted in runes.
const MaxTextLength = 2000

// Scores is the probability-like score vector. Compound is only reported by
// the backend and is not stored.
type Scores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
	Compound float64 `json:"compound,omitempty"`
}

// Result is the backend's verdict for one text.
type Result struct {
	Sentiment string `json:"sentiment"`
	Scores    Scores `json:"scores"`
}

// Record is an analysis written by its owner.
type Record struct {
	OwnerID string
	Text    string
	Result  Result
}

// Fields builds the stored document.
func (r Record) Fields() docstore.Fields {
	sentiment := r.Result.Sentiment
	if sentiment == "" {
		sentiment = Unknown
	}
	return docstore.Fields{
		FieldOwnerID:   r.OwnerID,
		FieldText:      r.Text,
		FieldSentiment: sentiment,
		FieldScores: docstore.Fields{
			Positive: r.Result.Scores.Positive,
			Neutral:  r.Result.Scores.Neutral,
			Negative: r.Result.Scores.Negative,
		},
		FieldCreatedAt: docstore.ServerTimestamp(),
	}
}
