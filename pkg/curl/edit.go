package curl

import "strings"

// Edits are field level changes sent by an editor. Nil fields leave the
// current value untouched; a non-nil empty Flags clears passthrough flags.
type Edits struct {
	Query *Dict       `json:"query,omitempty"`
	Data  *Dict       `json:"data,omitempty"`
	Flags []string    `json:"flags,omitempty"`
	Route *RouteParts `json:"route,omitempty"`
}

// ApplyEdits returns a copy of prev with e merged in.
//
// Data edits keep the payload's shape: when prev carried a JSON body, or
// was sent with a --data-raw style flag, the pairs are re-encoded as a JSON
// object with each value decoded as JSON where possible. Otherwise they
// become a form body sent with -d. An empty Data mapping keeps the current
// body.
func ApplyEdits(prev *State, e Edits) *State {
	next := prev.Clone()
	if e.Query != nil {
		next.Query = e.Query.Clone()
	}

	if e.Data.Len() > 0 {
		if prev.BodyKind() == BodyJSON || strings.Contains(prev.BodyFlag, "data-raw") {
			body := jsonFromDict(e.Data)
			next.Body = body
			next.RawBody = body.Raw
			if next.BodyFlag == "" {
				next.BodyFlag = "--data-raw"
			}
		} else {
			next.Body = Fields{e.Data.Clone()}
			next.RawBody = ""
			next.BodyFlag = "-d"
		}
	}

	if e.Flags != nil {
		next.ExtraFlags = FilterFlags(e.Flags)
	}
	if e.Route != nil {
		next.URL = FromRoute(*e.Route, prev.URL)
	}
	return next
}

// jsonFromDict builds a JSON object body from d, decoding each value as
// JSON when it parses and keeping d's key order in the serialized text.
func jsonFromDict(d *Dict) JSON {
	obj := make(map[string]any, d.Len())
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range d.Keys() {
		v, _ := d.Get(k)
		value := TryParseJSON(v)
		obj[k] = value
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(MarshalCompact(k))
		b.WriteByte(':')
		b.WriteString(MarshalCompact(value))
	}
	b.WriteByte('}')
	return JSON{Value: obj, Raw: b.String()}
}
