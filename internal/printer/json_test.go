package printer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/pkg/request"
)

func TestJSONPrinterEmit(t *testing.T) {
	p := NewJSONPrinter(noopLogger{})
	buf := &bytes.Buffer{}
	p.SetOutput(buf)

	p.Emit(session.ReconstructedCurl{Command: session.EventReconstructedCurl, Text: "curl 'https://a.io?x=<1>'"})
	p.Emit(session.LoopProgress{Command: session.EventLoopProgress, Current: 1, Total: 3, Status: intPtr(200)})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two json lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "<1>") {
		t.Fatalf("html should not be escaped: %s", lines[0])
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["command"] != session.EventLoopProgress || decoded["current"] != float64(1) || decoded["status"] != float64(200) {
		t.Fatalf("unexpected event: %v", decoded)
	}
}

func TestJSONPrinterPrintRuns(t *testing.T) {
	p := NewJSONPrinter(noopLogger{})
	buf := &bytes.Buffer{}
	p.SetOutput(buf)

	if err := p.PrintRuns(nil, 0); err != nil {
		t.Fatalf("print runs failed: %v", err)
	}
	var decoded struct {
		Type  string               `json:"type"`
		Total int                  `json:"total"`
		Runs  []*request.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Type != "runs" || decoded.Runs == nil || len(decoded.Runs) != 0 {
		t.Fatalf("unexpected envelope: %s", buf.String())
	}
}

func TestNewSelectsPrinter(t *testing.T) {
	if _, ok := New("json", noopLogger{}, nil, nil, "").(*JSONPrinter); !ok {
		t.Fatal("json mode should build a JSONPrinter")
	}
	if _, ok := New("console", noopLogger{}, &config.OutputConfig{}, nil, "").(*ConsolePrinter); !ok {
		t.Fatal("console mode should build a ConsolePrinter")
	}
}
