package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnyzak/reqloop/internal/curlparse"
	"github.com/funnyzak/reqloop/internal/loop"
	"github.com/funnyzak/reqloop/internal/session"
)

var errRunFailed = errors.New("run finished with an error status")

var parseCmd = &cobra.Command{
	Use:   "parse [curl command]",
	Short: "Parse a cURL command and print the structured request",
	Long: `Parse a cURL command and print the structured request and the rebuilt command.

The command is read from the arguments, or from stdin when no argument or "-" is given.`,
	RunE: runParse,
}

var execCmd = &cobra.Command{
	Use:   "exec [curl command]",
	Short: "Execute a cURL command once",
	RunE:  runExec,
}

var loopCmd = &cobra.Command{
	Use:   "loop [curl command]",
	Short: "Execute a cURL command once per combination of loop values",
	Long: `Execute a cURL command once per combination of loop values.

Loop values are read from files, one value per line:

  reqloop loop "curl 'https://api.example.com/items'" \
    --values query:page=pages.txt --values header:X-Mode=modes.txt

Loops listed with --sync advance together instead of forming a cartesian product.`,
	RunE: runLoop,
}

func init() {
	execCmd.Flags().Bool("save", false, "Save the output to the output directory")

	registerLoopFlags(loopCmd)
	loopCmd.Flags().Bool("save", false, "Save the aggregated output to the output directory")
}

func registerLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("values", nil, "Loop definition as target:key=file (target: query, form, header, route)")
	cmd.Flags().StringSlice("sync", nil, "Loops that advance together, by id or by name (target:key for --values)")
	cmd.Flags().String("plan", "", "JSON loop request file; --values are appended to it")
	cmd.Flags().Duration("delay", 0, "Pause between runs")
	cmd.Flags().StringArray("flag", nil, "Replace the passthrough flags of every run")
	cmd.Flags().Bool("dry-run", false, "Validate the loops and print the planned commands without executing")
}

func runParse(cmd *cobra.Command, args []string) error {
	command, err := commandText(cmd, args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.newSession()
	return sess.Handle(cmd.Context(), session.Message{Command: session.CommandParseCurl, Text: command}, a.printer)
}

func runExec(cmd *cobra.Command, args []string) error {
	command, err := commandText(cmd, args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := a.newSession()
	tee := &outputTee{next: a.printer}
	if err := sess.Handle(ctx, session.Message{Command: session.CommandExecuteCurl, Text: command}, tee); err != nil {
		return err
	}
	if save, _ := cmd.Flags().GetBool("save"); save && tee.output != "" {
		if err := sess.Handle(ctx, session.Message{Command: session.CommandSaveOutput, Text: tee.output}, a.printer); err != nil {
			return err
		}
	}
	if tee.label == "error" {
		return errRunFailed
	}
	return nil
}

func runLoop(cmd *cobra.Command, args []string) error {
	command, err := commandText(cmd, args)
	if err != nil {
		return err
	}
	req, err := loopRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return previewLoop(cmd.OutOrStdout(), command, req)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := a.newSession()
	parsed := &session.Collector{}
	if err := sess.Handle(ctx, session.Message{Command: session.CommandParseCurl, Text: command}, parsed); err != nil {
		return err
	}
	if sess.State() == nil {
		for _, ev := range parsed.Events {
			a.printer.Emit(ev)
		}
		return errRunFailed
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode loop request: %w", err)
	}
	tee := &outputTee{next: a.printer}
	if err := sess.Handle(ctx, session.Message{Command: session.CommandExecuteLoop, Text: string(payload)}, tee); err != nil {
		return err
	}
	if save, _ := cmd.Flags().GetBool("save"); save && tee.output != "" {
		if err := sess.Handle(ctx, session.Message{Command: session.CommandSaveOutput, Text: tee.output}, a.printer); err != nil {
			return err
		}
	}
	if tee.failed {
		return errRunFailed
	}
	return nil
}

// loopRequestFromFlags assembles a loop request from --plan and --values.
func loopRequestFromFlags(cmd *cobra.Command) (*loop.Request, error) {
	req := &loop.Request{}
	if plan, _ := cmd.Flags().GetString("plan"); plan != "" {
		data, err := os.ReadFile(plan)
		if err != nil {
			return nil, fmt.Errorf("read loop plan: %w", err)
		}
		decoded, err := loop.DecodeRequest(data)
		if err != nil {
			return nil, fmt.Errorf("decode loop plan: %w", err)
		}
		req = decoded
	}

	values, _ := cmd.Flags().GetStringArray("values")
	for _, raw := range values {
		field, err := parseValuesFlag(raw)
		if err != nil {
			return nil, err
		}
		req.Loops = append(req.Loops, field)
	}

	if synced, _ := cmd.Flags().GetStringSlice("sync"); len(synced) > 0 {
		req.SyncedLoopIDs = append(req.SyncedLoopIDs, resolveLoopIDs(req.Loops, synced)...)
	}
	if cmd.Flags().Changed("delay") {
		delay, _ := cmd.Flags().GetDuration("delay")
		ms := float64(delay) / float64(time.Millisecond)
		req.Delay = &ms
	}
	if cmd.Flags().Changed("flag") {
		flags, _ := cmd.Flags().GetStringArray("flag")
		req.Flags = append([]string{}, flags...)
	}
	return req, nil
}

// parseValuesFlag reads "target:key=file" into a loop field named
// "target:key". Header loops are sent with -H.
func parseValuesFlag(raw string) (loop.Field, error) {
	def, path, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return loop.Field{}, fmt.Errorf("invalid --values %q: expected target:key=file", raw)
	}
	target, key, ok := strings.Cut(def, ":")
	if !ok || strings.TrimSpace(key) == "" {
		return loop.Field{}, fmt.Errorf("invalid --values %q: expected target:key=file", raw)
	}

	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return loop.Field{}, fmt.Errorf("read loop values: %w", err)
	}
	target = strings.ToLower(strings.TrimSpace(target))
	key = strings.TrimSpace(key)
	field := loop.NewField(target+":"+key, loop.TargetType(target), key, loop.ParseValues(string(data))...)
	if field.TargetType == loop.TargetHeader {
		field.TargetFlag = "-H"
	}
	return field, nil
}

// resolveLoopIDs maps each reference to the id of the loop it names. A
// reference that is already an id, or matches nothing, is kept as given.
func resolveLoopIDs(loops []loop.Field, refs []string) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id := ref
		for _, l := range loops {
			if l.ID == ref {
				id = l.ID
				break
			}
			if l.Name == ref && id == ref {
				id = l.ID
			}
		}
		ids = append(ids, id)
	}
	return ids
}

// previewLoop validates req against command and prints every planned
// command without running any of them.
func previewLoop(w io.Writer, command string, req *loop.Request) error {
	state, err := curlparse.NewService(nil).Parse(command)
	if err != nil {
		return err
	}
	seq, err := loop.Plan(state, req, nil, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Planned runs: %d\n", seq.Len())
	for i := 0; i < seq.Len(); i++ {
		fmt.Fprintf(w, "%d. %s\n", i+1, seq.Command(i))
	}
	return nil
}

// commandText returns the command from args, or stdin for no args or "-".
func commandText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read command: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " "), nil
}

// shellQuote single-quotes arg when the shell would split or expand it.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`!*?&;|<>(){}[]#~") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// outputTee forwards events and remembers the latest output and outcome.
type outputTee struct {
	next   session.Emitter
	output string
	label  string
	failed bool
}

func (t *outputTee) Emit(ev session.Event) {
	switch e := ev.(type) {
	case session.ExecutionOutput:
		t.output = e.Text
		if e.StatusLabel != "" {
			t.label = e.StatusLabel
		}
	case session.LoopComplete:
		t.failed = e.Error != "" || e.FailureCount > 0
	}
	t.next.Emit(ev)
}

var _ session.Emitter = (*outputTee)(nil)
