package loop

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funnyzak/reqloop/pkg/curl"
)

var (
	ErrNoLoops              = errors.New("no loops configured")
	ErrNegativeDelay        = errors.New("delay must be 0 or greater")
	ErrMissingLoopID        = errors.New("loop identifier missing")
	ErrDuplicateLoopID      = errors.New("duplicate loop identifier")
	ErrMissingHeaderFlag    = errors.New("header loop needs a flag")
	ErrUnsupportedRouteKey  = errors.New("route loop key must be scheme, subdomain, domain, port or path")
	ErrMissingTargetKey     = errors.New("loop needs a target key")
	ErrNoValues             = errors.New("loop has no values")
	ErrSyncedEmpty          = errors.New("synchronized loops cannot be empty")
	ErrSyncedLengthMismatch = errors.New("synchronized loops must have identical lengths")
	ErrNoRuns               = errors.New("loop configuration produces no runs")
	ErrTooManyRuns          = errors.New("loop configuration produces too many runs")
)

// ConfigError reports a rejected loop configuration. Label names the
// offending loop when there is one; Runs and Limit are set for
// ErrTooManyRuns.
type ConfigError struct {
	Err   error
	Label string
	Runs  int
	Limit int
}

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTooManyRuns):
		return fmt.Sprintf("%v: %d runs, limit %d", e.Err, e.Runs, e.Limit)
	case e.Label != "":
		return fmt.Sprintf("loop %q: %v", e.Label, e.Err)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(err error, label string) *ConfigError {
	return &ConfigError{Err: err, Label: label}
}

// Validate checks req before anything runs. Route loop keys are normalized
// in place. The first problem found is returned as a *ConfigError.
func Validate(req *Request) error {
	if len(req.Loops) == 0 {
		return configErr(ErrNoLoops, "")
	}
	if req.Delay != nil && *req.Delay < 0 {
		return configErr(ErrNegativeDelay, "")
	}

	seen := make(map[string]struct{}, len(req.Loops))
	for i := range req.Loops {
		loop := &req.Loops[i]
		if loop.ID == "" {
			return configErr(ErrMissingLoopID, "")
		}
		if _, dup := seen[loop.ID]; dup {
			return configErr(ErrDuplicateLoopID, loop.ID)
		}
		seen[loop.ID] = struct{}{}

		if loop.TargetType == TargetHeader && loop.TargetFlag == "" {
			return configErr(ErrMissingHeaderFlag, loop.displayName())
		}

		if loop.TargetType == TargetRoute {
			key, ok := curl.NormalizeRouteKey(loop.TargetKey)
			if !ok {
				return configErr(ErrUnsupportedRouteKey, loop.displayName())
			}
			loop.TargetKey = key
		}

		needsKey := loop.TargetType != TargetHeader || headerFlagNeedsName(loop.TargetFlag)
		if needsKey && strings.TrimSpace(loop.TargetKey) == "" {
			return configErr(ErrMissingTargetKey, loop.displayName())
		}

		if len(loop.Values) == 0 {
			label := loop.Name
			if label == "" {
				label = loop.TargetKey
			}
			if label == "" {
				label = loop.ID
			}
			return configErr(ErrNoValues, label)
		}
	}

	synced := syncedLoops(req)
	if len(synced) > 0 {
		reference := len(synced[0].Values)
		if reference == 0 {
			return configErr(ErrSyncedEmpty, "")
		}
		for _, loop := range synced[1:] {
			if len(loop.Values) != reference {
				return configErr(ErrSyncedLengthMismatch, "")
			}
		}
	}
	return nil
}

// syncedLoops resolves SyncedLoopIDs to loops, in id list order, skipping
// unknown and repeated ids.
func syncedLoops(req *Request) []*Field {
	byID := make(map[string]*Field, len(req.Loops))
	for i := range req.Loops {
		if _, ok := byID[req.Loops[i].ID]; !ok {
			byID[req.Loops[i].ID] = &req.Loops[i]
		}
	}
	out := make([]*Field, 0, len(req.SyncedLoopIDs))
	used := make(map[string]struct{}, len(req.SyncedLoopIDs))
	for _, id := range req.SyncedLoopIDs {
		loop, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := used[id]; dup {
			continue
		}
		used[id] = struct{}{}
		out = append(out, loop)
	}
	return out
}
