package request

import (
	"time"

	"github.com/google/uuid"
)

// SavedOutput represents one response output written to disk
type SavedOutput struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

// NewSavedOutput creates a saved output record
func NewSavedOutput(sessionID, path string, size int) *SavedOutput {
	return &SavedOutput{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Path:      path,
		Size:      int64(size),
	}
}
