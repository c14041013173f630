package loop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/funnyzak/reqloop/internal/runner"
	"github.com/funnyzak/reqloop/pkg/curl"
)

// Run is the outcome of one planned run.
type Run struct {
	// Index is zero based.
	Index      int
	Total      int
	Assignment Assignment
	Command    string
	// Method and URL describe the rebuilt request.
	Method string
	URL    string
	// Overrides is the rendered assignment, see Sequence.Overrides.
	Overrides string
	Result    runner.Result
}

// Sequence is a finite, single pass series of runs. Each call to Next
// executes exactly one run; nothing runs ahead of the caller.
type Sequence struct {
	base        *curl.State
	flags       []string
	loops       map[string]*Field
	assignments []Assignment
	exec        runner.Executor
	next        int
}

// Plan validates req against base and prepares its runs. maxRuns bounds
// the number of runs; zero means no bound.
func Plan(base *curl.State, req *Request, exec runner.Executor, maxRuns int) (*Sequence, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if maxRuns > 0 {
		if n := EstimateRuns(req); n > maxRuns {
			return nil, &ConfigError{Err: ErrTooManyRuns, Runs: n, Limit: maxRuns}
		}
	}

	assignments := BuildAssignments(req)
	if len(assignments) == 0 {
		return nil, configErr(ErrNoRuns, "")
	}

	loops := make(map[string]*Field, len(req.Loops))
	for i := range req.Loops {
		loop := req.Loops[i]
		loops[loop.ID] = &loop
	}

	seq := &Sequence{
		base:        base.Clone(),
		loops:       loops,
		assignments: assignments,
		exec:        exec,
	}
	if req.Flags != nil {
		seq.flags = curl.FilterFlags(req.Flags)
		if seq.flags == nil {
			seq.flags = []string{}
		}
	}
	return seq, nil
}

// Len returns the number of planned runs.
func (s *Sequence) Len() int { return len(s.assignments) }

// Remaining returns the number of runs not yet executed.
func (s *Sequence) Remaining() int { return len(s.assignments) - s.next }

// Command builds the command for the i-th run without executing it.
func (s *Sequence) Command(i int) string {
	return curl.Reconstruct(s.build(i))
}

func (s *Sequence) build(i int) *curl.State {
	state := s.base.Clone()
	if s.flags != nil {
		state.ExtraFlags = append([]string(nil), s.flags...)
	}
	Apply(state, s.assignments[i], s.loops)
	return state
}

// Next executes the next run. It returns false once every run has been
// produced.
func (s *Sequence) Next(ctx context.Context) (Run, bool) {
	if s.next >= len(s.assignments) {
		return Run{}, false
	}
	i := s.next
	s.next++

	state := s.build(i)
	command := curl.Reconstruct(state)
	return Run{
		Index:      i,
		Total:      len(s.assignments),
		Assignment: s.assignments[i],
		Command:    command,
		Method:     state.Method,
		URL:        state.TargetURL(),
		Overrides:  s.Overrides(s.assignments[i]),
		Result:     s.exec.Run(ctx, command),
	}, true
}

// Describe renders the header line of a run:
//
//	Run 2 of 6 → query:page=2, header:X-Mode=fast
//	Status: 200
func (s *Sequence) Describe(run Run) string {
	overrides := s.Overrides(run.Assignment)
	if overrides == "" {
		overrides = "No overrides"
	}
	status := "n/a"
	if run.Result.HasStatus() {
		status = strconv.Itoa(*run.Result.StatusCode)
	}
	return fmt.Sprintf("Run %d of %d → %s\nStatus: %s", run.Index+1, run.Total, overrides, status)
}

// Overrides renders an assignment as "target:key=value" pairs joined by
// ", ". It is empty for an empty assignment.
func (s *Sequence) Overrides(a Assignment) string {
	parts := make([]string, 0, len(a))
	for _, b := range a {
		parts = append(parts, s.targetLabel(b.LoopID)+"="+formatValue(b.Value))
	}
	return strings.Join(parts, ", ")
}

func (s *Sequence) targetLabel(loopID string) string {
	loop, ok := s.loops[loopID]
	if !ok {
		return loopID
	}
	var key string
	switch loop.TargetType {
	case TargetHeader:
		switch {
		case strings.TrimSpace(loop.TargetKey) != "":
			key = loop.TargetKey
		case loop.TargetFlag != "":
			key = loop.TargetFlag
		default:
			key = "header"
		}
	case TargetRoute:
		var ok bool
		if key, ok = curl.NormalizeRouteKey(loop.TargetKey); !ok {
			key = "route"
		}
	default:
		key = loop.TargetKey
	}
	return string(loop.TargetType) + ":" + key
}

func formatValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any, []any:
		return curl.MarshalCompact(v)
	}
	return curl.Stringify(v)
}
