package request

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RunRecord represents one executed curl command and its outcome
type RunRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	// LoopID groups the runs of one loop execution; empty for single runs
	LoopID    string    `json:"loop_id,omitempty"`
	Sequence  int       `json:"sequence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	// Overrides lists the loop values applied to this run
	Overrides  string `json:"overrides,omitempty"`
	StatusCode *int   `json:"status_code,omitempty"`
	Label      string `json:"label"`
	DurationMs int64  `json:"duration_ms"`
	Output     string `json:"output"`
	IsBinary   bool   `json:"is_binary"`
	Size       int64  `json:"size"`
}

// NewRunRecord creates a run record for command
func NewRunRecord(sessionID, command string) *RunRecord {
	return &RunRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Command:   command,
	}
}

// SetResult fills the outcome fields
func (r *RunRecord) SetResult(status *int, label string, duration time.Duration, output string) {
	r.StatusCode = nil
	if status != nil {
		code := *status
		r.StatusCode = &code
	}
	r.Label = label
	r.DurationMs = duration.Milliseconds()
	r.Output = output
	r.Size = int64(len(output))
	r.IsBinary = isBinaryOutput([]byte(output))
}

// StatusText returns the status code, or "n/a" when none was recovered
func (r *RunRecord) StatusText() string {
	if r.StatusCode == nil {
		return "n/a"
	}
	return strconv.Itoa(*r.StatusCode)
}

// isBinaryOutput detects output that is mostly not text
func isBinaryOutput(body []byte) bool {
	// Check null byte ratio
	nullCount := 0
	for _, b := range body {
		if b == 0 {
			nullCount++
		}
	}
	return len(body) > 0 && nullCount > len(body)/10 // More than 10% are null bytes
}
