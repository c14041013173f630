package loop

import (
	"maps"
	"strings"

	"github.com/funnyzak/reqloop/pkg/curl"
)

// Apply writes every binding of a into s. s must be a private copy; the
// body, headers and query of s are modified in place. Bindings whose loop
// is unknown are skipped.
func Apply(s *curl.State, a Assignment, loops map[string]*Field) {
	for _, b := range a {
		loop, ok := loops[b.LoopID]
		if !ok {
			continue
		}
		switch loop.TargetType {
		case TargetQuery:
			applyQuery(s, loop, b.Value)
		case TargetHeader:
			applyHeader(s, loop, b.Value)
		case TargetRoute:
			applyRoute(s, loop, b.Value)
		default:
			applyBodyField(s, loop, b.Value)
		}
	}
}

func applyQuery(s *curl.State, loop *Field, value any) {
	if s.Query == nil {
		s.Query = &curl.Dict{}
	}
	s.Query.Set(loop.TargetKey, curl.Stringify(value))
}

// applyHeader writes a named header for -H style loops. Cookie style
// flags replace their passthrough entry instead.
func applyHeader(s *curl.State, loop *Field, value any) {
	flag := NormalizeHeaderFlag(loop.TargetFlag)
	text := curl.Stringify(value)
	if !headerFlagNeedsName(flag) {
		s.ExtraFlags = curl.OverrideFlag(s.ExtraFlags, flag, text)
		return
	}
	name := strings.TrimSpace(loop.TargetKey)
	if name == "" {
		return
	}
	if s.Headers == nil {
		s.Headers = &curl.Dict{}
	}
	s.Headers.Set(name, text)
}

func applyRoute(s *curl.State, loop *Field, value any) {
	key, ok := curl.NormalizeRouteKey(loop.TargetKey)
	if !ok {
		return
	}
	route := curl.ToRoute(s.URL)
	route.Set(key, curl.SanitizeRouteValue(key, curl.Stringify(value)))
	s.URL = curl.FromRoute(route, s.URL)
}

// applyBodyField sets one body field. A JSON body keeps the value as is
// and is re-serialized whole; any other body becomes a form whose values
// are strings.
func applyBodyField(s *curl.State, loop *Field, value any) {
	if body, ok := s.Body.(curl.JSON); ok {
		obj := maps.Clone(body.Object())
		if obj == nil {
			obj = map[string]any{}
		}
		obj[loop.TargetKey] = value
		next := curl.NewJSON(obj)
		s.Body = next
		s.RawBody = next.Raw
		if s.BodyFlag == "" {
			s.BodyFlag = "--data-raw"
		}
		return
	}

	fields, ok := s.Body.(curl.Fields)
	if !ok || fields.Dict == nil {
		fields = curl.Fields{Dict: &curl.Dict{}}
	}
	text, isString := value.(string)
	if !isString {
		text = curl.MarshalCompact(value)
	}
	fields.Set(loop.TargetKey, text)
	s.Body = fields
	s.RawBody = ""
	if s.BodyFlag == "" {
		s.BodyFlag = "-d"
	}
}
