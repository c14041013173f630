package loop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/runner"
	"github.com/funnyzak/reqloop/pkg/curl"
)

// NoStatusRecorded is the summary used when no run finished.
const NoStatusRecorded = "No status codes recorded"

// Progress is reported after every run.
type Progress struct {
	Current int
	Total   int
	Status  *int
	// Output is the accumulated text of every run so far.
	Output string
}

// StatusCount is one histogram bucket. Key is the status code, or the
// result label when no code was recovered.
type StatusCount struct {
	Key   string
	Count int
}

// Summary is reported once all runs finished.
type Summary struct {
	Total         int
	SuccessCount  int
	FailureCount  int
	Histogram     []StatusCount
	StatusSummary string
}

// Observer receives execution events in order: LoopStarted once, then
// RunFinished per run, then LoopFinished.
type Observer interface {
	LoopStarted(total int)
	RunFinished(run Run, progress Progress)
	LoopFinished(summary Summary)
}

// Executor drives planned runs one at a time.
type Executor struct {
	runner  runner.Executor
	maxRuns int
	logger  logger.Logger
	wait    func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor. maxRuns of zero disables the run limit.
func NewExecutor(r runner.Executor, maxRuns int, log logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{runner: r, maxRuns: maxRuns, logger: log, wait: sleep}
}

// Execute plans req against base and runs it to completion. Configuration
// problems are returned as *ConfigError before any event is emitted. A
// cancelled ctx stops the series between runs.
func (e *Executor) Execute(ctx context.Context, base *curl.State, req *Request, obs Observer) (Summary, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	seq, err := Plan(base, req, e.runner, e.maxRuns)
	if err != nil {
		e.logger.Info("loop rejected", "error", err)
		return Summary{}, err
	}

	total := seq.Len()
	delay := time.Duration(req.DelayMillis()) * time.Millisecond
	e.logger.Info("loop started", "runs", total, "delay", delay.String())
	obs.LoopStarted(total)

	tally := newTally(total)
	var aggregate strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return tally.summary(), err
		}
		run, ok := seq.Next(ctx)
		if !ok {
			break
		}
		tally.add(run.Result)

		aggregate.WriteString(seq.Describe(run))
		aggregate.WriteString("\n")
		aggregate.WriteString(run.Result.Output)
		aggregate.WriteString("\n\n")

		obs.RunFinished(run, Progress{
			Current: run.Index + 1,
			Total:   total,
			Status:  run.Result.StatusCode,
			Output:  aggregate.String(),
		})

		if delay > 0 && seq.Remaining() > 0 {
			if err := e.wait(ctx, delay); err != nil {
				return tally.summary(), err
			}
		}
	}

	summary := tally.summary()
	e.logger.Info("loop finished",
		"runs", summary.Total,
		"success", summary.SuccessCount,
		"failure", summary.FailureCount,
	)
	obs.LoopFinished(summary)
	return summary, nil
}

type nopObserver struct{}

func (nopObserver) LoopStarted(int)           {}
func (nopObserver) RunFinished(Run, Progress) {}
func (nopObserver) LoopFinished(Summary)      {}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type tally struct {
	total   int
	success int
	failure int
	order   []string
	counts  map[string]int
}

func newTally(total int) *tally {
	return &tally{total: total, counts: make(map[string]int)}
}

func (t *tally) add(r runner.Result) {
	switch r.Label {
	case runner.LabelSuccess:
		t.success++
	case runner.LabelError:
		t.failure++
	}
	key := string(r.Label)
	if r.HasStatus() {
		key = strconv.Itoa(*r.StatusCode)
	}
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *tally) summary() Summary {
	s := Summary{Total: t.total, SuccessCount: t.success, FailureCount: t.failure}
	parts := make([]string, 0, len(t.order))
	for _, key := range t.order {
		s.Histogram = append(s.Histogram, StatusCount{Key: key, Count: t.counts[key]})
		parts = append(parts, fmt.Sprintf("(%s) ×%d", key, t.counts[key]))
	}
	s.StatusSummary = strings.Join(parts, " / ")
	if s.StatusSummary == "" {
		s.StatusSummary = NoStatusRecorded
	}
	return s
}
