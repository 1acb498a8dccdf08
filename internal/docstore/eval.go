package docstore

import (
	"sort"
	"strings"
	"time"
)

// Evaluate applies q's filters, ordering and limit to docs. Backends that
// cannot push a query down run it through Evaluate so both agree on
// semantics. Documents with equal sort keys keep their input order.
func Evaluate(q Query, docs []Document) []Document {
	matched := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if Matches(q, doc) {
			matched = append(matched, doc)
		}
	}

	if q.OrderBy.Field != "" {
		field := q.OrderBy.Field
		desc := q.OrderBy.Direction == Descending
		sort.SliceStable(matched, func(i, j int) bool {
			c := Compare(matched[i].Fields[field], matched[j].Fields[field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

// Matches reports whether doc satisfies every equality filter of q.
func Matches(q Query, doc Document) bool {
	for _, f := range q.Filters {
		v, ok := doc.Fields[f.Field]
		if !ok || !Equal(v, f.Value) {
			return false
		}
	}
	return true
}

// Equal compares two field values.
func Equal(a, b any) bool {
	if an, ok := number(a); ok {
		bn, ok := number(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case Timestamp:
		bv, ok := b.(Timestamp)
		if !ok {
			return false
		}
		at, aok := av.Instant()
		bt, bok := bv.Instant()
		if !aok || !bok {
			return av.Kind() == bv.Kind() && !aok && !bok
		}
		return at.Equal(bt)
	default:
		return false
	}
}

// value classes, ordered the way mixed-type fields sort.
const (
	rankMissing = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

// Unresolved server timestamps sort after every resolved time, so a
// just-written document shows up as the newest.
var pendingInstant = time.Unix(1<<62, 0)

// Compare orders two field values: missing < bool < number < time < string.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}

	switch ra {
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		an, _ := number(a)
		bn, _ := number(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case rankTime:
		return instantOf(a.(Timestamp)).Compare(instantOf(b.(Timestamp)))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func instantOf(ts Timestamp) time.Time {
	if t, ok := ts.Instant(); ok {
		return t
	}
	return pendingInstant
}

func rank(v any) int {
	if v == nil {
		return rankMissing
	}
	if _, ok := number(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case bool:
		return rankBool
	case Timestamp:
		return rankTime
	case string:
		return rankString
	}
	return rankOther
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Clone deep-copies fields so callers never share maps with the store.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Fields:
		return val.Clone()
	case map[string]any:
		return Fields(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// ResolveServerTimestamps replaces every pending Timestamp in fields,
// including nested maps, with now.
func ResolveServerTimestamps(fields Fields, now time.Time) Fields {
	for k, v := range fields {
		switch val := v.(type) {
		case Timestamp:
			if val.Kind() == TimestampPending {
				fields[k] = NativeTimestamp(now)
			}
		case Fields:
			ResolveServerTimestamps(val, now)
		case map[string]any:
			ResolveServerTimestamps(Fields(val), now)
		}
	}
	return fields
}

// HasPending reports whether fields still hold a server-timestamp sentinel.
func HasPending(fields Fields) bool {
	for _, v := range fields {
		switch val := v.(type) {
		case Timestamp:
			if val.Kind() == TimestampPending {
				return true
			}
		case Fields:
			if HasPending(val) {
				return true
			}
		case map[string]any:
			if HasPending(Fields(val)) {
				return true
			}
		}
	}
	return false
}

// CloneDocs copies a result set for delivery.
func CloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Fields: d.Fields.Clone()}
	}
	return out
}
