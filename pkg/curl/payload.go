package curl

// Payload is the editor facing view of a State. It never exposes the
// decoded JSON document, only flat string fields.
type Payload struct {
	URL      string     `json:"url"`
	Method   string     `json:"method"`
	Headers  *Dict      `json:"headers"`
	Query    *Dict      `json:"query"`
	Data     *Dict      `json:"data"`
	RawBody  *string    `json:"rawBody,omitempty"`
	BodyKind BodyKind   `json:"bodyKind,omitempty"`
	Flags    []string   `json:"flags"`
	Route    RouteParts `json:"route"`
}

// ToPayload projects s for an editor.
func ToPayload(s *State) Payload {
	p := Payload{
		URL:      s.URL,
		Method:   s.Method,
		Headers:  s.Headers.Clone(),
		Query:    s.Query.Clone(),
		Data:     &Dict{},
		BodyKind: s.BodyKind(),
		Flags:    append([]string{}, s.ExtraFlags...),
		Route:    ToRoute(s.URL),
	}

	var raw string
	hasRaw := s.RawBody != ""
	if hasRaw {
		raw = s.RawBody
	}

	switch body := s.Body.(type) {
	case Fields:
		p.Data = body.Dict.Clone()
	case JSON:
		if _, isArray := body.Value.([]any); !isArray {
			p.Data = jsonFields(body)
		}
		if !hasRaw {
			raw, hasRaw = body.Raw, true
		}
	case Text:
		if !hasRaw {
			raw, hasRaw = string(body), true
		}
	}
	if hasRaw {
		p.RawBody = &raw
	}
	return p
}

// jsonFields flattens a JSON object body in document order.
func jsonFields(body JSON) *Dict {
	var d Dict
	if err := d.UnmarshalJSON([]byte(body.Raw)); err == nil {
		return &d
	}
	return flattenRecord(body.Value)
}
