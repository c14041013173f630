package curl

import "strings"

// Reconstruct renders s back into a single-line curl command:
//
//	curl [-X METHOD] 'URL[?query]' [-H 'Name: Value']... [flag 'body'] [extra flags...]
//
// When nothing but "curl" would be emitted the original command text is
// returned instead.
func Reconstruct(s *State) string {
	segments := []string{"curl"}

	method := strings.ToUpper(s.Method)
	if ShouldIncludeMethodFlag(method, s) {
		segments = append(segments, "-X", method)
	}

	if s.URL != "" {
		segments = append(segments, shellSingleQuote(s.TargetURL()))
	}

	for _, name := range s.Headers.Keys() {
		value, _ := s.Headers.Get(name)
		segments = append(segments, "-H", shellSingleQuote(name+": "+value))
	}

	if s.Body != nil {
		segments = append(segments, bodySegments(s)...)
	}

	segments = append(segments, FilterFlags(s.ExtraFlags)...)

	if len(segments) == 1 {
		if fallback := strings.TrimSpace(s.CommandText); fallback != "" {
			return fallback
		}
	}
	return strings.Join(segments, " ")
}

// bodySegments renders the body flag and payload. Bodies sent with
// --data-urlencode hold decoded fields, so each field gets its own flag and
// curl does the encoding; a text payload there is already encoded and goes
// out with --data.
func bodySegments(s *State) []string {
	flag := s.BodyFlag
	if flag == "" {
		flag = "--data-raw"
		if s.Body.Kind() == BodyForm {
			flag = "-d"
		}
	}
	if strings.EqualFold(flag, "--data-urlencode") {
		fields, ok := s.Body.(Fields)
		if !ok {
			return []string{"--data", shellSingleQuote(s.Body.Payload())}
		}
		var segments []string
		for _, name := range fields.Keys() {
			value, _ := fields.Get(name)
			// curl leaves the name part as typed.
			if EscapeComponent(name) != name {
				segments = append(segments, "--data", shellSingleQuote(EscapeComponent(name)+"="+EscapeComponent(value)))
				continue
			}
			segments = append(segments, flag, shellSingleQuote(name+"="+value))
		}
		return segments
	}
	return []string{flag, shellSingleQuote(s.Body.Payload())}
}

// shellSingleQuote wraps v in single quotes for a POSIX shell. An embedded
// quote is closed, escaped and reopened.
func shellSingleQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// TargetURL returns the URL with the current query attached.
func (s *State) TargetURL() string {
	if s.URL == "" || s.Query.Len() == 0 {
		return s.URL
	}
	base, _, _ := strings.Cut(s.URL, "?")
	return base + "?" + s.Query.Encode()
}

// ShouldIncludeMethodFlag decides whether -X METHOD is emitted. An
// explicit method always is; GET never is; POST is implied by any body or
// data flag and is then left out.
func ShouldIncludeMethodFlag(method string, s *State) bool {
	if method == "" {
		return false
	}
	if s.ExplicitMethod {
		return true
	}
	if method == "GET" {
		return false
	}
	if method == "POST" {
		if s.Body != nil {
			return false
		}
		if isDataFlag(s.BodyFlag) {
			return false
		}
		for _, flag := range s.ExtraFlags {
			lower := strings.ToLower(strings.TrimSpace(flag))
			if strings.HasPrefix(lower, "--data") || strings.HasPrefix(lower, "-d") {
				return false
			}
		}
	}
	return true
}
