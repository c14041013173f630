package curl

import (
	"net/url"
	"strings"
)

// bodyDetails is the classification of a parser supplied body.
type bodyDetails struct {
	text   *string
	fields *Dict
	raw    *string
	form   *Dict
	json   any
}

// ParseForm decodes input as url-encoded pairs. It returns nil when input
// has no '=' or yields no named pairs.
func ParseForm(input string) *Dict {
	if !strings.Contains(input, "=") {
		return nil
	}
	out := &Dict{}
	for _, pair := range strings.FieldsFunc(input, func(r rune) bool { return r == '&' }) {
		key, value, _ := strings.Cut(pair, "=")
		key = unescapeForm(key)
		if key == "" {
			continue
		}
		out.Set(key, unescapeForm(value))
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}

func unescapeForm(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return decoded
}

func extractBodyDetails(body any) bodyDetails {
	d := bodyDetails{form: &Dict{}}

	applyString := func(value string) {
		d.raw = &value
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if v, err := ParseJSON(trimmed); err == nil {
				d.json = v
			} else {
				d.json = nil
			}
		}
		if form := ParseForm(value); form != nil {
			for _, k := range form.Keys() {
				v, _ := form.Get(k)
				d.form.Set(k, v)
			}
			d.fields, d.text = form, nil
			return
		}
		d.text, d.fields = &value, nil
	}

	applyObject := func(value map[string]any) {
		normalized := flattenRecord(value)
		if normalized.Len() > 0 {
			for _, k := range normalized.Keys() {
				v, _ := normalized.Get(k)
				d.form.Set(k, v)
			}
			d.fields, d.text = normalized, nil
		}
		if d.json == nil {
			d.json = value
		}
	}

	switch v := body.(type) {
	case string:
		applyString(v)
	case map[string]any:
		nested := firstPresent(v, "data", "text", "value")
		switch n := nested.(type) {
		case string:
			applyString(n)
		case map[string]any:
			applyObject(n)
		default:
			applyObject(v)
		}
	}
	return d
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// InferBodyFlag picks the data flag for a body by scanning the original
// command, in priority order --data-raw, --data-binary, --data-urlencode,
// --data, -d. A JSON-looking text payload defaults to --data-raw.
func InferBodyFlag(command string, text *string) string {
	if command == "" {
		return ""
	}
	lowered := strings.ToLower(command)
	for _, flag := range []string{"--data-raw", "--data-binary", "--data-urlencode", "--data"} {
		if strings.Contains(lowered, flag) {
			return flag
		}
	}
	if strings.Contains(lowered, "-d ") {
		return "-d"
	}
	if text != nil && strings.HasPrefix(strings.TrimSpace(*text), "{") {
		return "--data-raw"
	}
	return ""
}

// indicatesJSONContentType reports whether any Content-Type entry in
// headers mentions json. Header names match without case.
func indicatesJSONContentType(headers []Param) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, "content-type") && strings.Contains(strings.ToLower(h.Value), "json") {
			return true
		}
	}
	return false
}

// isDataFlag reports whether flag is one of the body carrying flags.
func isDataFlag(flag string) bool {
	lower := strings.ToLower(flag)
	return strings.Contains(lower, "data") || lower == "-d"
}
