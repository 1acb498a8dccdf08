package docstore

import (
	"strings"
	"time"
)

// TimestampKind tags the encoding a stored time value arrived in.
type TimestampKind int

const (
	// TimestampPending is the server-timestamp sentinel before the store
	// has assigned a time.
	TimestampPending TimestampKind = iota
	TimestampNative
	TimestampEpochMillis
	TimestampISO
)

func (k TimestampKind) String() string {
	switch k {
	case TimestampNative:
		return "native"
	case TimestampEpochMillis:
		return "epochMillis"
	case TimestampISO:
		return "iso"
	default:
		return "pending"
	}
}

// Timestamp is a stored time value. The zero value is pending.
type Timestamp struct {
	kind   TimestampKind
	native time.Time
	millis int64
	iso    string
}

// ServerTimestamp returns the sentinel resolved by the store on commit.
func ServerTimestamp() Timestamp {
	return Timestamp{kind: TimestampPending}
}

// NativeTimestamp wraps a concrete instant.
func NativeTimestamp(t time.Time) Timestamp {
	return Timestamp{kind: TimestampNative, native: t.UTC()}
}

// EpochMillisTimestamp wraps milliseconds since the Unix epoch.
func EpochMillisTimestamp(ms int64) Timestamp {
	return Timestamp{kind: TimestampEpochMillis, millis: ms}
}

// ISOTimestamp wraps an unparsed ISO-like string.
func ISOTimestamp(s string) Timestamp {
	return Timestamp{kind: TimestampISO, iso: s}
}

func (t Timestamp) Kind() TimestampKind { return t.kind }
func (t Timestamp) Native() time.Time   { return t.native }
func (t Timestamp) Millis() int64       { return t.millis }
func (t Timestamp) ISO() string         { return t.iso }

// Instant resolves the value to a concrete time. Pending values and
// unparseable strings report false.
func (t Timestamp) Instant() (time.Time, bool) {
	switch t.kind {
	case TimestampNative:
		return t.native, true
	case TimestampEpochMillis:
		return time.UnixMilli(t.millis).UTC(), true
	case TimestampISO:
		return ParseISO(t.iso)
	default:
		return time.Time{}, false
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseISO parses the ISO-8601 shapes found in stored documents. Strings
// without a zone are read as UTC.
func ParseISO(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
