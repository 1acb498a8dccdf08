// Package view turns stored documents into display rows. Every function here
// is pure; "now" is always passed in.
package view

import (
	"fmt"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

// UnknownTime is shown for records without a resolvable timestamp.
const UnknownTime = "Unknown time"

// UnknownDate labels chart points without a timestamp.
const UnknownDate = "Unknown"

// MissingSentiment is shown when a record has no label.
const MissingSentiment = "-"

// AnalysisRow is one history entry.
type AnalysisRow struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Sentiment string     `json:"sentiment"`
	Timestamp *time.Time `json:"timestamp"`
	TimeAgo   string     `json:"timeAgo"`
}

// ChatRow is one chat bubble.
type ChatRow struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Crisis    bool       `json:"crisis"`
	Timestamp *time.Time `json:"timestamp"`
	Clock     string     `json:"clock"`
}

// Point is one chart sample, scores as percentages.
type Point struct {
	Date     string  `json:"date"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Instant normalises a stored time value: tagged timestamps, raw epoch
// milliseconds and raw ISO strings resolve; pending, absent, unparseable or
// foreign values yield nil.
func Instant(v any) *time.Time {
	var ts docstore.Timestamp
	switch raw := v.(type) {
	case docstore.Timestamp:
		ts = raw
	case float64:
		return millis(int64(raw))
	case int64:
		return millis(raw)
	case int:
		return millis(int64(raw))
	case string:
		parsed, ok := docstore.ParseISO(raw)
		if !ok {
			return nil
		}
		return &parsed
	default:
		return nil
	}

	var t time.Time
	switch ts.Kind() {
	case docstore.TimestampNative:
		t = ts.Native()
	case docstore.TimestampEpochMillis:
		t = time.UnixMilli(ts.Millis()).UTC()
	case docstore.TimestampISO:
		parsed, ok := docstore.ParseISO(ts.ISO())
		if !ok {
			return nil
		}
		t = parsed
	case docstore.TimestampPending:
		return nil
	default:
		return nil
	}
	return &t
}

func millis(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}

// ProjectAnalysis builds a history row.
func ProjectAnalysis(doc docstore.Document, now time.Time) AnalysisRow {
	ts := Instant(doc.Fields[analysis.FieldCreatedAt])
	sentiment := stringField(doc.Fields, analysis.FieldSentiment)
	if sentiment == "" {
		sentiment = MissingSentiment
	}
	return AnalysisRow{
		ID:        doc.ID,
		Text:      stringField(doc.Fields, analysis.FieldText),
		Sentiment: sentiment,
		Timestamp: ts,
		TimeAgo:   TimeAgo(ts, now),
	}
}

// ProjectChat builds a chat row.
func ProjectChat(doc docstore.Document) ChatRow {
	ts := Instant(doc.Fields[chat.FieldCreatedAt])
	role := stringField(doc.Fields, chat.FieldRole)
	if role == "" {
		role = chat.RoleAssistant
	}
	crisis, _ := doc.Fields[chat.FieldCrisis].(bool)

	row := ChatRow{
		ID:        doc.ID,
		Role:      role,
		Content:   stringField(doc.Fields, chat.FieldContent),
		Crisis:    crisis,
		Timestamp: ts,
	}
	if ts != nil {
		row.Clock = ts.Local().Format("15:04")
	}
	return row
}

// ProjectPoint builds a chart point.
func ProjectPoint(doc docstore.Document) Point {
	p := Point{Date: UnknownDate}
	if ts := Instant(doc.Fields[analysis.FieldCreatedAt]); ts != nil {
		p.Date = ts.Local().Format("Jan 2, 2006")
	}

	scores := mapField(doc.Fields, analysis.FieldScores)
	p.Positive = numberField(scores, "positive") * 100
	p.Neutral = numberField(scores, "neutral") * 100
	p.Negative = numberField(scores, "negative") * 100
	return p
}

// TimeAgo formats ts relative to now, or UnknownTime.
func TimeAgo(ts *time.Time, now time.Time) string {
	if ts == nil {
		return UnknownTime
	}
	return FormatRelative(*ts, now)
}

// FormatRelative renders t relative to now with half-open thresholds.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

func stringField(f docstore.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func mapField(f docstore.Fields, key string) docstore.Fields {
	switch m := f[key].(type) {
	case docstore.Fields:
		return m
	case map[string]any:
		return docstore.Fields(m)
	}
	return nil
}

func numberField(f docstore.Fields, key string) float64 {
	switch n := f[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
