package curl

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

var errTrailingJSON = errors.New("curl: trailing data after JSON value")

// decodeJSON unmarshals keeping numbers as json.Number so that values
// survive a decode/encode cycle without float rounding.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingJSON
	}
	return nil
}

// ParseJSON decodes text as a single JSON value.
func ParseJSON(text string) (any, error) {
	var v any
	if err := decodeJSON([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// TryParseJSON returns the decoded value of text, "" for blank input, or
// text itself when it is not valid JSON.
func TryParseJSON(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	v, err := ParseJSON(trimmed)
	if err != nil {
		return text
	}
	return v
}

// MarshalCompact serializes v as compact JSON without HTML escaping.
func MarshalCompact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Stringify renders a loosely typed value for display and field writes:
// strings verbatim, nil as "", scalars in their literal form and
// everything else as compact JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return MarshalCompact(val)
	}
}

// cloneJSON deep-copies a decoded JSON value.
func cloneJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneJSON(item)
		}
		return out
	default:
		return val
	}
}

// flattenRecord turns a decoded JSON object into a Dict, dropping nulls
// and stringifying nested values. Non-objects yield an empty Dict.
func flattenRecord(v any) *Dict {
	out := &Dict{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for _, k := range sortedKeys(obj) {
		if obj[k] == nil {
			continue
		}
		out.Set(k, Stringify(obj[k]))
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
