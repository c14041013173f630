package curl

import "strings"

// Normalize builds a State from a parser Guess, an optional Conversion and
// the original command text.
//
// The Conversion's body wins over the Guess when the headers declare JSON,
// when the inferred body flag is --data-raw or --data-binary, or when the
// Guess body already decoded as JSON. Otherwise the Guess body is kept and
// the Conversion only back-fills an encoded form fallback.
func Normalize(g Guess, conv *Conversion, command string) *State {
	method := g.Method
	if method == "" {
		method = "GET"
	}

	d := extractBodyDetails(g.Body)
	text, fields, raw := d.text, d.fields, d.raw
	if text == nil && fields == nil && d.form.Len() > 0 {
		fields = d.form
	}
	bodyFlag := InferBodyFlag(command, text)

	var (
		kind     BodyKind
		bodyJSON any
	)
	switch {
	case isJSONContainer(d.json):
		kind, bodyJSON = BodyJSON, d.json
		if text == nil && fields == nil {
			if flat := flattenRecord(d.json); flat.Len() > 0 {
				fields = flat
			}
		}
	case fields != nil:
		kind = BodyForm
	case text != nil || raw != nil:
		kind = BodyRaw
	}

	if conv != nil && conv.Data != nil {
		preferJSON := indicatesJSONContentType(conv.Headers) ||
			strings.Contains(bodyFlag, "raw") ||
			strings.Contains(bodyFlag, "binary") ||
			kind == BodyJSON

		switch data := conv.Data.(type) {
		case string:
			if raw == nil || *raw == "" || strings.EqualFold(*raw, "data") {
				raw = &data
			}
			bodyEmpty := fields == nil && (text == nil || *text == "")
			if bodyEmpty || (text != nil && strings.EqualFold(*text, "data")) {
				text, fields = &data, nil
				if kind == BodyNone {
					kind = BodyRaw
				}
			}
			if preferJSON && bodyJSON == nil {
				trimmed := strings.TrimSpace(data)
				if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
					if v, err := ParseJSON(trimmed); err == nil && isJSONContainer(v) {
						bodyJSON, kind = v, BodyJSON
					}
				}
			}
		case map[string]any, []any:
			if preferJSON {
				serialized := MarshalCompact(data)
				raw, text, fields = &serialized, &serialized, nil
				bodyJSON, kind = data, BodyJSON
			} else if raw == nil || *raw == "" {
				encoded := flattenRecord(data).Encode()
				raw = &encoded
			}
		}
	}

	state := &State{
		CommandText:    command,
		URL:            StripWrappingQuotes(g.URL),
		Method:         method,
		ExplicitMethod: MethodWasExplicit(command),
		Headers:        groupParams(g.Headers),
		Query:          groupParams(g.Query),
		BodyFlag:       bodyFlag,
	}
	if raw != nil {
		state.RawBody = *raw
	}

	switch kind {
	case BodyJSON:
		body := JSON{Value: bodyJSON, Raw: MarshalCompact(bodyJSON)}
		if text != nil {
			body.Raw = *text
		}
		state.Body = body
	case BodyForm:
		state.Body = Fields{fields}
	case BodyRaw:
		if text != nil {
			state.Body = Text(*text)
		} else if raw != nil {
			state.Body = Text(*raw)
		}
	}

	// Data moved into the query by -G leaves no body to carry a flag.
	if state.Body == nil {
		state.BodyFlag = ""
	}
	if state.BodyFlag == "" {
		switch kind {
		case BodyJSON:
			state.BodyFlag = "--data-raw"
		case BodyForm:
			state.BodyFlag = "-d"
		}
	}

	if flags := ExtractFlags(command); len(flags) > 0 {
		state.ExtraFlags = flags
	}
	return state
}

func isJSONContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
