package curl

import "strings"

// BodyKind classifies a request payload.
type BodyKind string

const (
	BodyNone BodyKind = ""
	BodyJSON BodyKind = "json"
	BodyForm BodyKind = "form"
	BodyRaw  BodyKind = "raw"
)

// Body is the request payload. It is one of Text, Fields or JSON.
type Body interface {
	Kind() BodyKind
	// Payload is the text emitted after the body flag.
	Payload() string
	clone() Body
}

// Text is an opaque raw payload.
type Text string

func (t Text) Kind() BodyKind  { return BodyRaw }
func (t Text) Payload() string { return string(t) }
func (t Text) clone() Body     { return t }

// Fields is a url-encoded form payload.
type Fields struct {
	*Dict
}

func (f Fields) Kind() BodyKind  { return BodyForm }
func (f Fields) Payload() string { return f.Dict.Encode() }
func (f Fields) clone() Body     { return Fields{f.Dict.Clone()} }

// JSON is a structured JSON payload. Raw is its serialized form and is
// what gets emitted; Value is the decoded document.
type JSON struct {
	Value any
	Raw   string
}

// NewJSON builds a JSON body whose Raw text is the compact encoding of v.
func NewJSON(v any) JSON {
	return JSON{Value: v, Raw: MarshalCompact(v)}
}

func (j JSON) Kind() BodyKind  { return BodyJSON }
func (j JSON) Payload() string { return j.Raw }
func (j JSON) clone() Body     { return JSON{Value: cloneJSON(j.Value), Raw: j.Raw} }

// Object returns the JSON value as an object, or nil when it is not one.
func (j JSON) Object() map[string]any {
	obj, _ := j.Value.(map[string]any)
	return obj
}

// State is the structured, editable form of one curl command.
type State struct {
	CommandText    string
	URL            string
	Method         string
	ExplicitMethod bool
	Headers        *Dict
	Query          *Dict
	Body           Body
	// RawBody is the payload text as it was received, or an encoded
	// fallback for form bodies. It is only used for display.
	RawBody    string
	BodyFlag   string
	ExtraFlags []string
}

// BodyKind reports the classification of the current body.
func (s *State) BodyKind() BodyKind {
	if s.Body == nil {
		return BodyNone
	}
	return s.Body.Kind()
}

// Clone returns a deep copy that shares no mutable structure with s.
func (s *State) Clone() *State {
	out := *s
	out.Headers = s.Headers.Clone()
	out.Query = s.Query.Clone()
	if s.Body != nil {
		out.Body = s.Body.clone()
	}
	if s.ExtraFlags != nil {
		out.ExtraFlags = append([]string(nil), s.ExtraFlags...)
	}
	return &out
}

// FilterFlags trims each entry and keeps those that look like flags.
func FilterFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, flag := range flags {
		trimmed := strings.TrimSpace(flag)
		if trimmed == "" || trimmed[0] != '-' {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
