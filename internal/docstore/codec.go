package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

const tsKey = "$ts"

// EncodeFields serializes fields as JSON. Timestamps become
// {"$ts": kind, "value": ...} objects so their encoding survives a round
// trip through storage.
func EncodeFields(fields Fields) ([]byte, error) {
	return json.Marshal(encodeValue(fields))
}

// DecodeFields reverses EncodeFields.
func DecodeFields(data []byte) (Fields, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	out, ok := decodeValue(raw).(Fields)
	if !ok {
		return nil, fmt.Errorf("decode fields: top-level value is a timestamp")
	}
	return out, nil
}

func encodeValue(v any) any {
	switch val := v.(type) {
	case Timestamp:
		switch val.Kind() {
		case TimestampNative:
			return map[string]any{tsKey: val.Kind().String(), "value": val.Native().Format(time.RFC3339Nano)}
		case TimestampEpochMillis:
			return map[string]any{tsKey: val.Kind().String(), "value": val.Millis()}
		case TimestampISO:
			return map[string]any{tsKey: val.Kind().String(), "value": val.ISO()}
		default:
			return map[string]any{tsKey: val.Kind().String()}
		}
	case Fields:
		return encodeMap(val)
	case map[string]any:
		return encodeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = encodeValue(item)
		}
		return out
	default:
		return v
	}
}

func encodeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = encodeValue(v)
	}
	return out
}

func decodeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if kind, ok := val[tsKey].(string); ok {
			return decodeTimestamp(kind, val["value"])
		}
		out := make(Fields, len(val))
		for k, item := range val {
			out[k] = decodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = decodeValue(item)
		}
		return out
	default:
		return v
	}
}

func decodeTimestamp(kind string, value any) Timestamp {
	switch kind {
	case TimestampNative.String():
		s, _ := value.(string)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return NativeTimestamp(t)
		}
		return ISOTimestamp(s)
	case TimestampEpochMillis.String():
		n, _ := value.(float64)
		return EpochMillisTimestamp(int64(n))
	case TimestampISO.String():
		s, _ := value.(string)
		return ISOTimestamp(s)
	default:
		return ServerTimestamp()
	}
}
