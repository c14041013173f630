// Package loop expands a base request into a planned series of runs, one
// per combination of loop values, and drives their execution.
package loop

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// TargetType names the part of the request a loop rewrites.
type TargetType string

const (
	TargetQuery  TargetType = "query"
	TargetForm   TargetType = "form"
	TargetHeader TargetType = "header"
	TargetRoute  TargetType = "route"
)

// Field is one loop definition.
type Field struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	TargetType TargetType `json:"targetType"`
	// TargetFlag is only read for header loops.
	TargetFlag string `json:"targetFlag,omitempty"`
	TargetKey  string `json:"targetKey"`
	Values     []any  `json:"values"`
}

// NewField returns a Field with a fresh identifier.
func NewField(name string, target TargetType, key string, values ...any) Field {
	return Field{
		ID:         uuid.NewString(),
		Name:       name,
		TargetType: target,
		TargetKey:  key,
		Values:     values,
	}
}

// displayName is the label used in validation messages.
func (f *Field) displayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// Request is one loop execution request.
type Request struct {
	Loops         []Field  `json:"loops"`
	SyncedLoopIDs []string `json:"syncedLoopIds"`
	// Delay is the pause between runs in milliseconds.
	Delay *float64 `json:"delay,omitempty"`
	// Flags, when non-nil, replace the passthrough flags of every run.
	Flags []string `json:"flags"`
}

// ErrEmptyRequest is returned by DecodeRequest for a JSON null payload.
var ErrEmptyRequest = errors.New("loop request is empty")

// DecodeRequest reads a Request from JSON. Numeric values are kept as
// json.Number so they are written back exactly as sent.
func DecodeRequest(data []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req *Request
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrEmptyRequest
	}
	return req, nil
}

// DelayMillis returns the whole number of milliseconds to wait between runs.
func (r *Request) DelayMillis() int64 {
	if r.Delay == nil || *r.Delay <= 0 {
		return 0
	}
	return int64(*r.Delay)
}

// Binding selects one value of one loop.
type Binding struct {
	LoopID string
	Value  any
}

// Assignment is the set of values used by one run: synchronized loops
// first, then independent loops in declaration order.
type Assignment []Binding

// Value returns the value bound to loopID.
func (a Assignment) Value(loopID string) (any, bool) {
	for _, b := range a {
		if b.LoopID == loopID {
			return b.Value, true
		}
	}
	return nil, false
}

var headerFlags = map[string]string{
	"-h":       "-H",
	"--header": "--header",
	"-b":       "-b",
	"--cookie": "--cookie",
}

// NormalizeHeaderFlag maps a header loop flag onto the supported set.
// Unknown or empty flags become -H.
func NormalizeHeaderFlag(flag string) string {
	if normalized, ok := headerFlags[strings.ToLower(strings.TrimSpace(flag))]; ok {
		return normalized
	}
	return "-H"
}

// headerFlagNeedsName reports whether flag writes a named header rather
// than a bare flag value.
func headerFlagNeedsName(flag string) bool {
	normalized := NormalizeHeaderFlag(flag)
	return normalized == "-H" || normalized == "--header"
}
