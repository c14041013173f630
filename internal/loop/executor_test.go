package loop

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnyzak/reqloop/internal/runner"
)

func status(code int) *int { return &code }

type fakeRunner struct {
	results  []runner.Result
	commands []string
}

func (f *fakeRunner) Run(_ context.Context, command string) runner.Result {
	i := len(f.commands)
	f.commands = append(f.commands, command)
	if i < len(f.results) {
		return f.results[i]
	}
	return runner.Result{StatusCode: status(200), Label: runner.LabelSuccess, Output: "ok"}
}

type recorder struct {
	events   []string
	runs     []Run
	progress []Progress
	summary  *Summary
}

func (r *recorder) LoopStarted(total int) {
	r.events = append(r.events, fmt.Sprintf("started %d", total))
}

func (r *recorder) RunFinished(run Run, p Progress) {
	r.events = append(r.events, fmt.Sprintf("run %d/%d", p.Current, p.Total))
	r.runs = append(r.runs, run)
	r.progress = append(r.progress, p)
}

func (r *recorder) LoopFinished(s Summary) {
	r.events = append(r.events, "finished")
	r.summary = &s
}

func twoByTwo() *Request {
	return &Request{Loops: []Field{
		queryLoop("page", "page", ParseValues("1\n2")...),
		{ID: "mode", TargetType: TargetHeader, TargetFlag: "-H", TargetKey: "X-Mode", Values: []any{"fast", "slow"}},
	}}
}

func TestExecuteRunsEveryCombination(t *testing.T) {
	fake := &fakeRunner{results: []runner.Result{
		{StatusCode: status(200), Label: runner.LabelSuccess, Output: "ok"},
		{StatusCode: status(404), Label: runner.LabelError, Output: "missing"},
		{StatusCode: status(200), Label: runner.LabelSuccess, Output: "ok again"},
		{Label: runner.LabelError, Output: "boom"},
	}}
	rec := &recorder{}
	base := baseState()

	summary, err := NewExecutor(fake, 0, nil).Execute(context.Background(), base, twoByTwo(), rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"started 4", "run 1/4", "run 2/4", "run 3/4", "run 4/4", "finished"}, rec.events)
	assert.Equal(t, []string{
		"curl 'https://api.example.com/items?page=1' -H 'Accept: application/json' -H 'X-Mode: fast' --insecure",
		"curl 'https://api.example.com/items?page=1' -H 'Accept: application/json' -H 'X-Mode: slow' --insecure",
		"curl 'https://api.example.com/items?page=2' -H 'Accept: application/json' -H 'X-Mode: fast' --insecure",
		"curl 'https://api.example.com/items?page=2' -H 'Accept: application/json' -H 'X-Mode: slow' --insecure",
	}, fake.commands)

	assert.Equal(t, "GET", rec.runs[2].Method)
	assert.Equal(t, "https://api.example.com/items?page=2", rec.runs[2].URL)
	assert.Equal(t, "query:page=2, header:X-Mode=fast", rec.runs[2].Overrides)

	first := "Run 1 of 4 → query:page=1, header:X-Mode=fast\nStatus: 200\nok\n\n"
	assert.Equal(t, first, rec.progress[0].Output)
	assert.Equal(t, 200, *rec.progress[0].Status)
	assert.Nil(t, rec.progress[3].Status)
	last := rec.progress[3].Output
	assert.Contains(t, last, first+"Run 2 of 4 → query:page=1, header:X-Mode=slow\nStatus: 404\nmissing\n\n")
	assert.Contains(t, last, "Run 4 of 4 → query:page=2, header:X-Mode=slow\nStatus: n/a\nboom\n\n")

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailureCount)
	assert.Equal(t, []StatusCount{{"200", 2}, {"404", 1}, {"error", 1}}, summary.Histogram)
	assert.Equal(t, "(200) ×2 / (404) ×1 / (error) ×1", summary.StatusSummary)
	assert.Equal(t, summary, *rec.summary)

	assert.Equal(t, baseState(), base)
}

func TestExecuteDelaysBetweenRuns(t *testing.T) {
	fake := &fakeRunner{}
	req := twoByTwo()
	req.Delay = floatPtr(25.9)

	var waits []time.Duration
	e := NewExecutor(fake, 0, nil)
	e.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := e.Execute(context.Background(), baseState(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}, waits)
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	fake := &fakeRunner{}
	req := twoByTwo()
	req.Delay = floatPtr(10)

	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(fake, 0, nil)
	e.wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	rec := &recorder{}

	summary, err := e.Execute(ctx, baseState(), req, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.commands, 1)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, []string{"started 4", "run 1/4"}, rec.events)
}

func TestExecuteReplacesFlags(t *testing.T) {
	t.Run("given flags", func(t *testing.T) {
		fake := &fakeRunner{}
		req := &Request{
			Loops: []Field{queryLoop("p", "page", "9")},
			Flags: []string{" --compressed ", "not-a-flag", ""},
		}
		_, err := NewExecutor(fake, 0, nil).Execute(context.Background(), baseState(), req, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"curl 'https://api.example.com/items?page=9' -H 'Accept: application/json' --compressed",
		}, fake.commands)
	})

	t.Run("empty flags clear passthrough", func(t *testing.T) {
		fake := &fakeRunner{}
		req := &Request{Loops: []Field{queryLoop("p", "page", "9")}, Flags: []string{}}
		_, err := NewExecutor(fake, 0, nil).Execute(context.Background(), baseState(), req, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"curl 'https://api.example.com/items?page=9' -H 'Accept: application/json'",
		}, fake.commands)
	})
}

func TestExecuteRejectsBeforeRunning(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		maxRuns int
		want    error
	}{
		{"duplicate ids", &Request{Loops: []Field{queryLoop("a", "x", 1), queryLoop("a", "y", 1)}}, 0, ErrDuplicateLoopID},
		{"too many runs", twoByTwo(), 3, ErrTooManyRuns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRunner{}
			rec := &recorder{}
			_, err := NewExecutor(fake, tt.maxRuns, nil).Execute(context.Background(), baseState(), tt.req, rec)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, fake.commands)
			assert.Empty(t, rec.events)
		})
	}
}

func TestSequenceIsLazy(t *testing.T) {
	fake := &fakeRunner{}
	seq, err := Plan(baseState(), twoByTwo(), fake, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, seq.Len())
	assert.Empty(t, fake.commands)

	run, ok := seq.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, 0, run.Index)
	assert.Len(t, fake.commands, 1)
	assert.Equal(t, 3, seq.Remaining())

	for seq.Remaining() > 0 {
		_, ok = seq.Next(context.Background())
		require.True(t, ok)
	}
	_, ok = seq.Next(context.Background())
	assert.False(t, ok)
	assert.Len(t, fake.commands, 4)
}

func TestDescribeWithoutOverrides(t *testing.T) {
	seq := &Sequence{loops: map[string]*Field{}}
	got := seq.Describe(Run{Index: 0, Total: 1})
	assert.Equal(t, "Run 1 of 1 → No overrides\nStatus: n/a", got)

	seq = &Sequence{loops: loopIndex(
		Field{ID: "c", TargetType: TargetHeader, TargetFlag: "-b"},
		Field{ID: "r", TargetType: TargetRoute, TargetKey: "path"},
		Field{ID: "f", TargetType: TargetForm, TargetKey: "user"},
	)}
	got = seq.Describe(Run{
		Index: 1,
		Total: 2,
		Assignment: Assignment{
			{LoopID: "c", Value: "s=1"},
			{LoopID: "r", Value: "v2"},
			{LoopID: "f", Value: map[string]any{"id": 1}},
			{LoopID: "gone", Value: nil},
		},
		Result: runner.Result{StatusCode: status(201)},
	})
	assert.Equal(t, `Run 2 of 2 → header:-b=s=1, route:path=v2, form:user={"id":1}, gone=null`+"\nStatus: 201", got)
}

func TestSummaryWithoutRuns(t *testing.T) {
	s := newTally(0).summary()
	assert.Equal(t, NoStatusRecorded, s.StatusSummary)
	assert.Empty(t, s.Histogram)
}
