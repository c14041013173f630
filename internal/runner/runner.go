// Package runner executes rebuilt curl commands through a shell and
// classifies the outcome.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
)

// Label is the three way outcome of one invocation.
type Label string

const (
	LabelSuccess Label = "success"
	LabelError   Label = "error"
	LabelInfo    Label = "info"
)

const (
	statusMarker = "__HTTP_STATUS__"
	markerSuffix = ` --silent --show-error --write-out "\n` + statusMarker + `:%{http_code}"`

	// NoOutput replaces an empty combined output.
	NoOutput = "Command executed with no output."

	defaultMaxOutput = 10 * 1024 * 1024

	// waitDelay bounds how long a cancelled command may keep its output
	// pipes open through orphaned children.
	waitDelay = 500 * time.Millisecond
)

var (
	markerPattern   = regexp.MustCompile(`\r?\n` + statusMarker + `:(\d{3})\s*$`)
	writeOutPattern = regexp.MustCompile(`\s--write-out\b`)
	httpLinePattern = regexp.MustCompile(`(?i)HTTP/\d(?:\.\d)?\s+(\d{3})`)
	exitPattern     = regexp.MustCompile(`(?i)exit\s+status\s+(\d+)`)
)

// Result describes one finished invocation. StatusCode is nil when no
// status could be recovered.
type Result struct {
	StatusCode *int
	Label      Label
	Duration   time.Duration
	Output     string
}

// HasStatus reports whether a status code was recovered.
func (r Result) HasStatus() bool { return r.StatusCode != nil }

// Executor runs one command. Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, command string) Result
}

// Runner shells out to execute commands.
type Runner struct {
	shell     string
	shellArgs []string
	maxOutput int
	timeout   time.Duration
	logger    logger.Logger
}

// New creates a Runner from configuration.
func New(cfg config.RunnerConfig, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{
		shell:     cfg.Shell,
		shellArgs: append([]string(nil), cfg.ShellArgs...),
		maxOutput: cfg.MaxOutputBytes,
		timeout:   cfg.Timeout,
		logger:    log,
	}
	if r.shell == "" {
		r.shell = "sh"
		r.shellArgs = []string{"-c"}
	}
	if r.maxOutput <= 0 {
		r.maxOutput = defaultMaxOutput
	}
	return r
}

// Run executes command once. Failures never surface as errors; they are
// folded into an error labelled Result.
func (r *Runner) Run(ctx context.Context, command string) Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prepared, marked := PrepareCommand(command)
	args := append(append([]string(nil), r.shellArgs...), prepared)

	stdout := &limitedBuffer{limit: r.maxOutput}
	stderr := &limitedBuffer{limit: r.maxOutput}
	cmd := exec.CommandContext(ctx, r.shell, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	started := time.Now()
	err := cmd.Run()
	duration := time.Since(started)

	if err == nil && (stdout.truncated || stderr.truncated) {
		err = fmt.Errorf("output exceeded %d bytes", r.maxOutput)
	}

	result := Classify(stdout.String(), stderr.String(), err, marked)
	result.Duration = duration

	r.logger.Debug("command finished",
		"duration", duration.String(),
		"status", statusText(result.StatusCode),
		"label", string(result.Label),
		"error", err,
	)
	return result
}

// PrepareCommand appends the status marker write-out to plain curl
// commands that do not already request one. It reports whether the
// marker was added.
func PrepareCommand(command string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(command))
	if !strings.HasPrefix(lower, "curl ") {
		return command, false
	}
	if writeOutPattern.MatchString(lower) || strings.Contains(lower, "%{http_code}") {
		return command, false
	}
	return command + markerSuffix, true
}

// Classify builds a Result from captured process output.
func Classify(stdout, stderr string, runErr error, marked bool) Result {
	var status *int
	if marked && stdout != "" {
		stdout, status = stripMarker(stdout)
	}
	if status == nil {
		status = recoverStatus(stdout, stderr)
	}

	segments := make([]string, 0, 2)
	for _, s := range []string{stdout, stderr} {
		if s != "" {
			segments = append(segments, s)
		}
	}
	output := strings.TrimSpace(strings.Join(segments, "\n"))

	label := LabelInfo
	switch {
	case runErr != nil:
		output = strings.TrimSpace("Error: " + runErr.Error() + "\n" + output)
		label = LabelError
	case status != nil && *status >= 200 && *status < 300:
		label = LabelSuccess
	case status != nil && *status >= 400:
		label = LabelError
	case status == nil || *status == 0:
		label = LabelError
	}

	if output == "" {
		output = NoOutput
	}
	return Result{StatusCode: status, Label: label, Output: output}
}

func stripMarker(stdout string) (string, *int) {
	m := markerPattern.FindStringSubmatchIndex(stdout)
	if m == nil {
		return stdout, nil
	}
	code, err := strconv.Atoi(stdout[m[2]:m[3]])
	if err != nil {
		return stdout, nil
	}
	cleaned := strings.TrimRight(stdout[:m[0]], " \t\r\n")
	return cleaned, &code
}

// recoverStatus is a best effort scan for a response line or an exit
// status in the process output.
func recoverStatus(stdout, stderr string) *int {
	combined := stdout + "\n" + stderr
	for _, p := range []*regexp.Regexp{httpLinePattern, exitPattern} {
		if m := p.FindStringSubmatch(combined); m != nil {
			if code, err := strconv.Atoi(m[1]); err == nil {
				return &code
			}
		}
	}
	return nil
}

func statusText(code *int) string {
	if code == nil {
		return "n/a"
	}
	return strconv.Itoa(*code)
}

// limitedBuffer keeps at most limit bytes and drops the rest so the child
// process never blocks on a full pipe.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }
