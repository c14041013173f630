package request

import (
	"testing"
	"time"
)

func TestNewRunRecord(t *testing.T) {
	record := NewRunRecord("session-1", "curl 'https://example.com'")

	if record.ID == "" {
		t.Fatal("Expected generated ID")
	}
	if record.SessionID != "session-1" {
		t.Errorf("Expected session session-1, got %s", record.SessionID)
	}
	if record.Command != "curl 'https://example.com'" {
		t.Errorf("Unexpected command %s", record.Command)
	}
	if record.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	other := NewRunRecord("session-1", "curl x")
	if other.ID == record.ID {
		t.Error("Expected unique IDs")
	}
}

func TestRunRecordSetResult(t *testing.T) {
	record := NewRunRecord("s", "curl x")
	status := 201
	record.SetResult(&status, "success", 1500*time.Millisecond, "created")

	status = 500
	if record.StatusCode == nil || *record.StatusCode != 201 {
		t.Fatalf("Expected status copy 201, got %v", record.StatusCode)
	}
	if record.StatusText() != "201" {
		t.Errorf("Expected status text 201, got %s", record.StatusText())
	}
	if record.DurationMs != 1500 {
		t.Errorf("Expected 1500ms, got %d", record.DurationMs)
	}
	if record.Size != 7 {
		t.Errorf("Expected size 7, got %d", record.Size)
	}
	if record.IsBinary {
		t.Error("Expected text output")
	}

	record.SetResult(nil, "error", 0, "")
	if record.StatusCode != nil {
		t.Error("Expected status to be cleared")
	}
}

func TestStatusTextWithoutStatus(t *testing.T) {
	record := NewRunRecord("s", "curl x")
	if got := record.StatusText(); got != "n/a" {
		t.Errorf("Expected n/a, got %s", got)
	}
}

func TestIsBinaryOutput(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected bool
	}{
		{name: "Empty", body: nil, expected: false},
		{name: "JSON", body: []byte(`{"key": "value"}`), expected: false},
		{name: "Mostly null bytes", body: []byte{0x00, 0x00, 0x01, 0x02}, expected: true},
		{name: "Few null bytes", body: append([]byte("abcdefghijklmnopqrstuvwxyz"), 0x00), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBinaryOutput(tt.body); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewSavedOutput(t *testing.T) {
	out := NewSavedOutput("s", "/tmp/a.txt", 12)
	if out.ID == "" || out.SessionID != "s" || out.Path != "/tmp/a.txt" || out.Size != 12 {
		t.Errorf("Unexpected saved output: %+v", out)
	}
}
