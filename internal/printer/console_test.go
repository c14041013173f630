package printer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/pkg/i18n"
	"github.com/funnyzak/reqloop/pkg/request"
)

func init() {
	color.NoColor = true
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})        {}
func (noopLogger) Info(string, ...interface{})         {}
func (noopLogger) Warn(string, ...interface{})         {}
func (noopLogger) Error(string, ...interface{})        {}
func (noopLogger) Fatal(string, ...interface{})        {}
func (n noopLogger) With(...interface{}) logger.Logger { return n }

func newTestConsole(t *testing.T, cfg *config.BodyViewConfig) (*ConsolePrinter, *bytes.Buffer) {
	t.Helper()
	t.Setenv("REQLOOP_TEST_WIDTH", "80")
	translator, err := i18n.NewTranslator("en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	p := NewConsolePrinter(noopLogger{}, cfg, translator, "en")
	buf := &bytes.Buffer{}
	p.SetOutput(buf)
	return p, buf
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestConsolePrinterParsedCurl(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	payload := `{"url":"https://api.example.com/items","method":"post","headers":{"Accept":"application/json"},"query":{"page":"2"},"data":{"name":"demo"},"flags":["-k"],"route":{}}`

	p.Emit(session.ParsedCurl{Command: session.EventParsedCurl, Text: payload})

	out := buf.String()
	for _, want := range []string{
		"Parsed request",
		"POST https://api.example.com/items?page=2",
		"Accept: application/json",
		"name: demo",
		"-k",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsolePrinterParsedCurlInvalidPayload(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	p.Emit(session.ParsedCurl{Command: session.EventParsedCurl, Text: "not json"})
	if !strings.Contains(buf.String(), "not json") {
		t.Fatalf("raw text should be printed, got %q", buf.String())
	}
}

func TestConsolePrinterExecutionOutput(t *testing.T) {
	p, buf := newTestConsole(t, &config.BodyViewConfig{Enable: true, JSON: true, MaxIndentBytes: 1024})

	p.Emit(session.ExecutionOutput{
		Command:     session.EventExecutionOutput,
		Status:      intPtr(201),
		StatusLabel: "success",
		Duration:    int64Ptr(1500),
		Text:        `{"foo":"bar"}`,
	})

	out := buf.String()
	if !strings.Contains(out, "Status: 201") {
		t.Fatalf("status missing:\n%s", out)
	}
	if !strings.Contains(out, "Duration: 1.5s") {
		t.Fatalf("duration missing:\n%s", out)
	}
	if !strings.Contains(out, "Size: 13 B") {
		t.Fatalf("size missing:\n%s", out)
	}
	if !strings.Contains(out, "\"foo\": \"bar\"") {
		t.Fatalf("json should be indented:\n%s", out)
	}
}

func TestConsolePrinterJSONIndentLimit(t *testing.T) {
	p, buf := newTestConsole(t, &config.BodyViewConfig{Enable: true, JSON: true, MaxIndentBytes: 4})

	p.Emit(session.ExecutionOutput{Command: session.EventExecutionOutput, StatusLabel: "info", Text: `{"foo":"bar"}`})

	out := buf.String()
	if !strings.Contains(out, "indentation skipped") {
		t.Fatalf("expected indent notice:\n%s", out)
	}
	if !strings.Contains(out, `{"foo":"bar"}`) {
		t.Fatalf("raw json expected:\n%s", out)
	}
	if !strings.Contains(out, "Status: n/a") {
		t.Fatalf("missing status should print n/a:\n%s", out)
	}
}

func TestConsolePrinterLoopOutputPrintsOnlyNewText(t *testing.T) {
	p, buf := newTestConsole(t, nil)

	p.Emit(session.LoopProgress{Command: session.EventLoopProgress, Current: 0, Total: 2})
	p.Emit(session.ExecutionOutput{Command: session.EventExecutionOutput, Text: "first-run\n"})
	p.Emit(session.LoopProgress{Command: session.EventLoopProgress, Current: 1, Total: 2, Status: intPtr(200)})
	p.Emit(session.ExecutionOutput{Command: session.EventExecutionOutput, Text: "first-run\nsecond-run\n"})
	p.Emit(session.LoopProgress{Command: session.EventLoopProgress, Current: 2, Total: 2, Status: intPtr(500)})
	p.Emit(session.LoopComplete{Command: session.EventLoopComplete, Total: 2, SuccessCount: 1, FailureCount: 1, StatusSummary: "200: 1, 500: 1"})

	out := buf.String()
	if strings.Count(out, "first-run") != 1 {
		t.Fatalf("loop output should not repeat:\n%s", out)
	}
	for _, want := range []string{
		"Loop planned: 2 runs",
		"[Run 1 of 2] 200",
		"[Run 2 of 2] 500",
		"second-run",
		"Loop finished: 2 runs, 1 succeeded, 1 failed",
		"Status codes: 200: 1, 500: 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsolePrinterLoopFailure(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	p.Emit(session.LoopComplete{Command: session.EventLoopComplete, Error: "boom"})
	if !strings.Contains(buf.String(), "Loop failed: boom") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestConsolePrinterNotificationAndCommand(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	p.Emit(session.ReconstructedCurl{Command: session.EventReconstructedCurl, Text: "curl https://a.io"})
	p.Emit(session.Notification{Command: session.EventNotification, Level: session.LevelError, Text: "save failed"})

	out := buf.String()
	if !strings.Contains(out, "curl https://a.io") || !strings.Contains(out, "save failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConsolePrinterBinaryOutput(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	p.Emit(session.ExecutionOutput{Command: session.EventExecutionOutput, StatusLabel: "error", Text: "\x00\x00\x00\x01"})
	if !strings.Contains(buf.String(), "[Binary output, 4 B. Content skipped.]") {
		t.Fatalf("binary notice missing:\n%s", buf.String())
	}
}

func TestConsolePrinterPrintRuns(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	runs := []*request.RunRecord{
		{
			ID:         "r1",
			Timestamp:  time.Now(),
			Command:    "curl https://a.io",
			Method:     "get",
			URL:        "https://a.io/items",
			StatusCode: intPtr(200),
			Label:      "success",
			DurationMs: 12,
		},
		{ID: "r2", Timestamp: time.Now(), Command: "curl https://b.io", Label: "error"},
	}

	if err := p.PrintRuns(runs, 5); err != nil {
		t.Fatalf("print runs failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Time", "Method", "GET", "https://a.io/items", "12ms", "n/a", "curl https://b.io", "Showing 2 of 5 runs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}
}

func TestConsolePrinterPrintRunsEmpty(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	if err := p.PrintRuns(nil, 0); err != nil {
		t.Fatalf("print runs failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No runs recorded.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestBodyFormatterXMLAndHTML(t *testing.T) {
	f := newBodyFormatter(&config.BodyViewConfig{Enable: true, XML: true, HTML: true}, noopLogger{}, nil, "")

	xmlOut := f.Format("<root><item>1</item></root>")
	if !strings.Contains(xmlOut.Text, "\n  <item>1</item>") {
		t.Fatalf("xml not indented: %q", xmlOut.Text)
	}

	htmlOut := f.Format("<html><body><p>hi</p><br></body></html>")
	if !strings.Contains(htmlOut.Text, "    <p>\n      hi\n    </p>") {
		t.Fatalf("html not indented: %q", htmlOut.Text)
	}
	if !strings.Contains(htmlOut.Text, "<br />") {
		t.Fatalf("void element should self close: %q", htmlOut.Text)
	}
}

func TestBodyFormatterDisabled(t *testing.T) {
	f := newBodyFormatter(&config.BodyViewConfig{Enable: false, JSON: true}, noopLogger{}, nil, "")
	if got := f.Format(`{"a":1}`).Text; got != `{"a":1}` {
		t.Fatalf("disabled formatter changed text: %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("alpha beta gamma delta", 11)
	if len(lines) != 2 || lines[0] != "alpha beta" || lines[1] != "gamma delta" {
		t.Fatalf("unexpected wrap: %#v", lines)
	}
	if got := wrapText("", 10); len(got) != 1 {
		t.Fatalf("empty text should produce one line: %#v", got)
	}
}
