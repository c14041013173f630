package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/funnyzak/reqloop/pkg/request"
)

func fixtureRuns() []*request.RunRecord {
	timestamp := time.Date(2025, time.November, 7, 12, 0, 0, 0, time.UTC)
	code := 201
	return []*request.RunRecord{
		{
			ID:         "RUN1",
			SessionID:  "s1",
			LoopID:     "loop-1",
			Sequence:   2,
			Timestamp:  timestamp,
			Command:    "curl 'https://a.io/items?page=2'",
			Method:     "GET",
			URL:        "https://a.io/items?page=2",
			Overrides:  "query:page=2",
			StatusCode: &code,
			Label:      "success",
			DurationMs: 42,
			Output:     `{"foo":"bar"}`,
			Size:       13,
		},
		{
			ID:        "RUN2",
			SessionID: "s1",
			Timestamp: timestamp,
			Command:   "curl https://a.io/bin",
			Label:     "error",
			Output:    "\x00\x00\x01",
			Size:      3,
			IsBinary:  true,
		},
	}
}

func TestStreamRunsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	ct, ext, err := StreamRuns(buf, Runs(fixtureRuns()), "JSON")
	if err != nil {
		t.Fatalf("stream export failed: %v", err)
	}
	if ct != "application/json" || ext != "json" {
		t.Fatalf("unexpected metadata: %s %s", ct, ext)
	}

	var decoded []request.RunRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(decoded) != 2 || decoded[0].ID != "RUN1" || *decoded[0].StatusCode != 201 {
		t.Fatalf("unexpected decoded runs: %+v", decoded)
	}
	if decoded[1].StatusCode != nil {
		t.Fatalf("expected missing status to stay nil")
	}
}

func TestStreamRunsJSONEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, _, err := StreamRuns(buf, Runs(nil), "json"); err != nil {
		t.Fatalf("stream export failed: %v", err)
	}
	if buf.String() != "[]" {
		t.Fatalf("expected empty array, got %s", buf.String())
	}
}

func TestStreamRunsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	ct, ext, err := StreamRuns(buf, Runs(fixtureRuns()), "csv")
	if err != nil {
		t.Fatalf("csv export failed: %v", err)
	}
	if ct != "text/csv" || ext != "csv" {
		t.Fatalf("unexpected metadata: %s %s", ct, ext)
	}

	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], csvHeader) {
		t.Fatalf("unexpected header: %v", records[0])
	}
	first := records[1]
	if first[3] != "2" || first[8] != "201" || first[14] != `{"foo":"bar"}` {
		t.Fatalf("unexpected first row: %v", first)
	}
	second := records[2]
	if second[3] != "" || second[8] != "" || second[12] != "true" || second[14] != "" {
		t.Fatalf("unexpected binary row: %v", second)
	}
}

func TestStreamRunsText(t *testing.T) {
	buf := &bytes.Buffer{}
	ct, ext, err := StreamRuns(buf, Runs(fixtureRuns()), "txt")
	if err != nil {
		t.Fatalf("txt export failed: %v", err)
	}
	if ct != "text/plain; charset=utf-8" || ext != "txt" {
		t.Fatalf("unexpected metadata: %s %s", ct, ext)
	}

	got := buf.String()
	for _, want := range []string{
		"Run 1  RUN1  2025-11-07T12:00:00Z",
		"Loop: loop-1 #2",
		"Overrides: query:page=2",
		"Status: 201 (success)  Duration: 42ms",
		"$ curl 'https://a.io/items?page=2'",
		`{"foo":"bar"}`,
		"Status: n/a (error)",
		"[binary output omitted, 3 bytes]",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("text export missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "Loop:") != 1 {
		t.Fatalf("single run should not print a loop line:\n%s", got)
	}
}

func TestStreamRunsWriteError(t *testing.T) {
	for _, format := range []string{"json", "csv", "txt"} {
		if _, _, err := StreamRuns(failingWriter{}, Runs(fixtureRuns()), format); err == nil {
			t.Fatalf("expected write error for %s", format)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("short write") }

func TestDescribeFormatInvalid(t *testing.T) {
	if _, _, err := DescribeFormat("xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, _, err := StreamRuns(&bytes.Buffer{}, Runs(nil), "yaml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestAllowedFormats(t *testing.T) {
	got := AllowedFormats([]string{" CSV", "json", "", "text", "xml", "json"})
	want := []string{"csv", "json", "txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
