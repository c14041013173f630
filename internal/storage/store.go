package storage

import (
	"errors"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/pkg/request"
)

// ErrUnsupportedDriver indicates the configured driver is not available.
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

var errNilRecord = errors.New("record is nil")

// ListOptions controls filtering and pagination when fetching runs.
type ListOptions struct {
	Search  string
	Session string
	LoopID  string
	Label   string
	Method  string
	Limit   int
	Offset  int
}

// Store defines the persistence contract for run history.
type Store interface {
	RecordRun(*request.RunRecord) (*request.RunRecord, error)
	ListRuns(ListOptions) ([]*request.RunRecord, int, error)
	IterateRuns(ListOptions, func(*request.RunRecord) bool) error
	GetRun(string) (*request.RunRecord, error)

	// Saved output related methods
	RecordOutput(*request.SavedOutput) error
	ListOutputs(sessionID string) ([]*request.SavedOutput, error)

	Close() error
}

// New instantiates a Store based on configuration.
func New(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage config is nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	switch driver := cfg.Driver; driver {
	case "", "sqlite", "sqlite3":
		return newSQLiteStore(cfg, log)
	case "memory":
		return NewMemoryStore(cfg.MaxRecords), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}
