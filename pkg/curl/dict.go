package curl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Dict is an insertion-ordered string mapping with unique keys.
// Headers, query parameters and form fields are all stored as a Dict so
// that rebuilt commands list them in a stable order.
type Dict struct {
	keys   []string
	values map[string]string
}

// NewDict builds a Dict from alternating key/value arguments.
func NewDict(pairs ...string) *Dict {
	d := &Dict{}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i], pairs[i+1])
	}
	return d
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the value stored for key.
func (d *Dict) Get(key string) (string, bool) {
	if d == nil || d.values == nil {
		return "", false
	}
	v, ok := d.values[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position.
func (d *Dict) Set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Clone returns an independent copy.
func (d *Dict) Clone() *Dict {
	out := &Dict{}
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.Set(k, d.values[k])
	}
	return out
}

// Equal reports whether both mappings hold the same pairs, ignoring order.
func (d *Dict) Equal(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, k := range d.Keys() {
		a, _ := d.Get(k)
		b, ok := other.Get(k)
		if !ok || a != b {
			return false
		}
	}
	return true
}

// Map returns a plain map copy.
func (d *Dict) Map() map[string]string {
	out := make(map[string]string, d.Len())
	for _, k := range d.Keys() {
		out[k], _ = d.Get(k)
	}
	return out
}

// Encode joins the pairs as key=value&... using component escaping.
func (d *Dict) Encode() string {
	parts := make([]string, 0, d.Len())
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		parts = append(parts, EscapeComponent(k)+"="+EscapeComponent(v))
	}
	return strings.Join(parts, "&")
}

// MarshalJSON encodes the Dict as a JSON object in insertion order.
func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		v, _ := d.Get(k)
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Non-string values
// are stored in their JSON text form; null entries are dropped.
func (d *Dict) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("curl: expected JSON object, got %v", tok)
	}
	*d = Dict{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value any
		if err := decodeJSON(raw, &value); err != nil {
			return err
		}
		if value == nil {
			continue
		}
		d.Set(key, Stringify(value))
	}
	_, err = dec.Token()
	return err
}

// EscapeComponent escapes s the way encodeURIComponent does: everything
// except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is percent-encoded.
func EscapeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	replacer := strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")
	return replacer.Replace(escaped)
}
