// Package session handles the message protocol of one editing session:
// parsing a curl command, merging edits, executing it once or as a loop,
// and saving output.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/loop"
	"github.com/funnyzak/reqloop/internal/runner"
	"github.com/funnyzak/reqloop/pkg/curl"
	"github.com/funnyzak/reqloop/pkg/i18n"
	"github.com/funnyzak/reqloop/pkg/request"
)

var (
	// ErrNoParsedState is reported when an operation needs a parsed command.
	ErrNoParsedState = errors.New("no parsed curl command")
	// ErrUnknownCommand is returned by Handle for unrecognized messages.
	ErrUnknownCommand = errors.New("unknown session command")
)

// Parser turns a command into a State.
type Parser interface {
	Parse(command string) (*curl.State, error)
}

// Recorder persists run history. storage.Store satisfies it.
type Recorder interface {
	RecordRun(*request.RunRecord) (*request.RunRecord, error)
	RecordOutput(*request.SavedOutput) error
}

// Deps are the collaborators of a Session. Recorder, Writer and
// Translator are optional.
type Deps struct {
	Parser     Parser
	Runner     runner.Executor
	Loops      *loop.Executor
	Writer     OutputWriter
	Recorder   Recorder
	Translator *i18n.Translator
	Logger     logger.Logger
	Locale     string
	// DefaultDelay applies to loop requests that carry no delay.
	DefaultDelay time.Duration
}

// Session holds the last parsed command of one client. Messages are
// handled strictly one at a time.
type Session struct {
	id   string
	hex  string
	deps Deps
	log  logger.Logger

	mu    sync.Mutex
	state *curl.State
}

// New creates a Session with a fresh id.
func New(deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Loops == nil && deps.Runner != nil {
		deps.Loops = loop.NewExecutor(deps.Runner, 0, deps.Logger)
	}
	id := uuid.NewString()
	return &Session{
		id:   id,
		hex:  randomHex(8),
		deps: deps,
		log:  deps.Logger.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// OutputName is the file name used by saveOutput.
func (s *Session) OutputName() string { return s.hex + ".txt" }

// State returns a copy of the last parsed command, or nil.
func (s *Session) State() *curl.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// Handle processes msg and reports its outcome through emit. User facing
// problems become events; only an unknown command or a cancelled ctx is
// returned.
func (s *Session) Handle(ctx context.Context, msg Message, emit Emitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("session message", "command", msg.Command, "size", len(msg.Text))
	switch msg.Command {
	case CommandParseCurl:
		s.parseCurl(msg.Text, emit)
	case CommandReconstructCurl:
		s.reconstructCurl(msg.Text, emit)
	case CommandExecuteCurl:
		s.executeCurl(ctx, msg.Text, emit)
	case CommandExecuteLoop:
		return s.executeLoop(ctx, msg.Text, emit)
	case CommandSaveOutput:
		s.saveOutput(msg.Text, emit)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Command)
	}
	return nil
}

func (s *Session) parseCurl(text string, emit Emitter) {
	command := strings.TrimSpace(text)
	if command == "" {
		emit.Emit(outputText(s.text("session.parse.empty")))
		return
	}

	state, err := s.deps.Parser.Parse(command)
	if err != nil {
		s.log.Info("parse rejected", "error", err)
		emit.Emit(outputText(s.text("session.parse.failed")))
		return
	}
	s.state = state

	emit.Emit(ParsedCurl{Command: EventParsedCurl, Text: curl.MarshalCompact(curl.ToPayload(state))})
	emit.Emit(ReconstructedCurl{Command: EventReconstructedCurl, Text: curl.Reconstruct(state)})
}

func (s *Session) reconstructCurl(text string, emit Emitter) {
	if s.state == nil {
		s.log.Debug("reconstruct ignored", "error", ErrNoParsedState)
		return
	}
	var edits *curl.Edits
	if err := json.Unmarshal([]byte(text), &edits); err != nil || edits == nil {
		s.log.Debug("reconstruct ignored", "error", err)
		return
	}
	s.state = curl.ApplyEdits(s.state, *edits)
	emit.Emit(ReconstructedCurl{Command: EventReconstructedCurl, Text: curl.Reconstruct(s.state)})
}

func (s *Session) executeCurl(ctx context.Context, text string, emit Emitter) {
	command := strings.TrimSpace(text)
	if command == "" {
		emit.Emit(outputText(s.text("session.execute.empty")))
		return
	}

	result := s.deps.Runner.Run(ctx, command)
	duration := result.Duration.Milliseconds()
	emit.Emit(ExecutionOutput{
		Command:     EventExecutionOutput,
		Status:      result.StatusCode,
		StatusLabel: string(result.Label),
		Duration:    &duration,
		Text:        result.Output,
	})

	record := request.NewRunRecord(s.id, command)
	if state, err := s.deps.Parser.Parse(command); err == nil {
		record.Method = state.Method
		record.URL = state.TargetURL()
	}
	record.SetResult(result.StatusCode, string(result.Label), result.Duration, result.Output)
	s.record(record)
}

func (s *Session) executeLoop(ctx context.Context, text string, emit Emitter) error {
	if s.state == nil {
		s.loopError(s.text("session.loop.no_state"), emit)
		return nil
	}
	req, err := loop.DecodeRequest([]byte(text))
	if err != nil {
		s.log.Debug("loop payload rejected", "error", err)
		s.loopError(s.text("session.loop.invalid_payload"), emit)
		return nil
	}
	if req.Delay == nil && s.deps.DefaultDelay > 0 {
		ms := float64(s.deps.DefaultDelay.Milliseconds())
		req.Delay = &ms
	}

	obs := &loopObserver{session: s, emit: emit, loopID: uuid.NewString()}
	_, err = s.deps.Loops.Execute(ctx, s.state, req, obs)
	var cfgErr *loop.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		s.loopError(s.loopErrorText(cfgErr), emit)
		return nil
	case err != nil:
		s.log.Warn("loop interrupted", "error", err)
		return err
	}
	return nil
}

func (s *Session) loopError(text string, emit Emitter) {
	emit.Emit(outputText(text))
	emit.Emit(LoopComplete{Command: EventLoopComplete, Error: text})
}

var loopErrorKeys = []struct {
	err      error
	key      string
	labelled bool
}{
	{loop.ErrNoLoops, "loop.errors.no_loops", false},
	{loop.ErrNegativeDelay, "loop.errors.negative_delay", false},
	{loop.ErrMissingLoopID, "loop.errors.missing_id", false},
	{loop.ErrDuplicateLoopID, "loop.errors.duplicate_id", true},
	{loop.ErrMissingHeaderFlag, "loop.errors.missing_header_flag", true},
	{loop.ErrUnsupportedRouteKey, "loop.errors.unsupported_route_key", true},
	{loop.ErrMissingTargetKey, "loop.errors.missing_target_key", true},
	{loop.ErrNoValues, "loop.errors.no_values", true},
	{loop.ErrSyncedEmpty, "loop.errors.synced_empty", false},
	{loop.ErrSyncedLengthMismatch, "loop.errors.synced_length_mismatch", false},
	{loop.ErrNoRuns, "loop.errors.no_runs", false},
}

func (s *Session) loopErrorText(err *loop.ConfigError) string {
	if errors.Is(err, loop.ErrTooManyRuns) {
		return s.text("loop.errors.too_many_runs", err.Runs, err.Limit)
	}
	for _, entry := range loopErrorKeys {
		if !errors.Is(err, entry.err) {
			continue
		}
		if entry.labelled {
			return s.text(entry.key, err.Label)
		}
		return s.text(entry.key)
	}
	return err.Error()
}

func (s *Session) saveOutput(text string, emit Emitter) {
	if s.deps.Writer == nil {
		emit.Emit(Notification{Command: EventNotification, Level: LevelError, Text: s.text("session.save.failed", "no output directory")})
		return
	}
	path, err := s.deps.Writer.Write(s.OutputName(), []byte(text))
	if err != nil {
		s.log.Error("save output failed", "error", err)
		emit.Emit(Notification{Command: EventNotification, Level: LevelError, Text: s.text("session.save.failed", err.Error())})
		return
	}
	s.log.Info("output saved", "path", path, "size", len(text))
	emit.Emit(Notification{Command: EventNotification, Level: LevelInfo, Text: s.text("session.save.success", path)})

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordOutput(request.NewSavedOutput(s.id, path, len(text))); err != nil {
			s.log.Warn("record saved output failed", "error", err)
		}
	}
}

func (s *Session) record(run *request.RunRecord) {
	if s.deps.Recorder == nil {
		return
	}
	if _, err := s.deps.Recorder.RecordRun(run); err != nil {
		s.log.Warn("record run failed", "error", err)
	}
}

func (s *Session) text(key string, args ...interface{}) string {
	if s.deps.Translator == nil {
		return key
	}
	return s.deps.Translator.Textf(s.deps.Locale, key, args...)
}

type loopObserver struct {
	session *Session
	emit    Emitter
	loopID  string
}

func (o *loopObserver) LoopStarted(total int) {
	o.emit.Emit(LoopProgress{Command: EventLoopProgress, Current: 0, Total: total})
}

func (o *loopObserver) RunFinished(run loop.Run, p loop.Progress) {
	o.emit.Emit(outputText(p.Output))
	o.emit.Emit(LoopProgress{Command: EventLoopProgress, Current: p.Current, Total: p.Total, Status: p.Status})

	record := request.NewRunRecord(o.session.id, run.Command)
	record.LoopID = o.loopID
	record.Sequence = p.Current
	record.Method = run.Method
	record.URL = run.URL
	record.Overrides = run.Overrides
	record.SetResult(run.Result.StatusCode, string(run.Result.Label), run.Result.Duration, run.Result.Output)
	o.session.record(record)
}

func (o *loopObserver) LoopFinished(summary loop.Summary) {
	o.emit.Emit(LoopComplete{
		Command:       EventLoopComplete,
		Total:         summary.Total,
		SuccessCount:  summary.SuccessCount,
		FailureCount:  summary.FailureCount,
		StatusSummary: summary.StatusSummary,
	})
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))[:2*n]
	}
	return hex.EncodeToString(buf)
}
