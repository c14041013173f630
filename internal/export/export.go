// Package export streams run history as JSON, CSV or plain text.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/funnyzak/reqloop/pkg/request"
)

// Iterator yields runs until yield returns false.
type Iterator func(yield func(*request.RunRecord) bool)

var csvHeader = []string{
	"id", "session_id", "loop_id", "sequence", "timestamp", "method", "url",
	"overrides", "status_code", "label", "duration_ms", "size", "is_binary", "command", "output",
}

// DescribeFormat returns the content type and file extension of format.
func DescribeFormat(format string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return "application/json", "json", nil
	case "csv":
		return "text/csv", "csv", nil
	case "txt", "text":
		return "text/plain; charset=utf-8", "txt", nil
	default:
		return "", "", fmt.Errorf("unsupported export format: %s", format)
	}
}

// StreamRuns writes every run produced by iter to w in format.
func StreamRuns(w io.Writer, iter Iterator, format string) (string, string, error) {
	contentType, ext, err := DescribeFormat(format)
	if err != nil {
		return "", "", err
	}
	switch ext {
	case "json":
		err = streamJSON(w, iter)
	case "csv":
		err = streamCSV(w, iter)
	default:
		err = streamText(w, iter)
	}
	if err != nil {
		return "", "", err
	}
	return contentType, ext, nil
}

// Runs collects a slice into an Iterator.
func Runs(items []*request.RunRecord) Iterator {
	return func(yield func(*request.RunRecord) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

func streamJSON(w io.Writer, iter Iterator) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return err
	}
	first := true
	var writeErr error
	iter(func(item *request.RunRecord) bool {
		data, err := json.Marshal(item)
		if err != nil {
			writeErr = err
			return false
		}
		if !first {
			if _, err := bw.WriteString(","); err != nil {
				writeErr = err
				return false
			}
		}
		first = false
		if _, err := bw.Write(data); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}
	if _, err := bw.WriteString("]"); err != nil {
		return err
	}
	return bw.Flush()
}

func streamCSV(w io.Writer, iter Iterator) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	var writeErr error
	iter(func(item *request.RunRecord) bool {
		status := ""
		if item.StatusCode != nil {
			status = strconv.Itoa(*item.StatusCode)
		}
		sequence := ""
		if item.LoopID != "" {
			sequence = strconv.Itoa(item.Sequence)
		}
		output := item.Output
		if item.IsBinary {
			output = ""
		}
		line := []string{
			item.ID,
			item.SessionID,
			item.LoopID,
			sequence,
			item.Timestamp.Format(time.RFC3339),
			item.Method,
			item.URL,
			item.Overrides,
			status,
			item.Label,
			strconv.FormatInt(item.DurationMs, 10),
			strconv.FormatInt(item.Size, 10),
			strconv.FormatBool(item.IsBinary),
			item.Command,
			output,
		}
		if err := writer.Write(line); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	writer.Flush()
	return writer.Error()
}

func streamText(w io.Writer, iter Iterator) error {
	bw := bufio.NewWriter(w)
	index := 0
	var writeErr error
	iter(func(item *request.RunRecord) bool {
		index++
		if err := writeTextRun(bw, index, item); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}
	return bw.Flush()
}

func writeTextRun(w *bufio.Writer, index int, item *request.RunRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %d  %s  %s\n", index, item.ID, item.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Session: %s\n", item.SessionID)
	if item.LoopID != "" {
		fmt.Fprintf(&b, "Loop: %s #%d\n", item.LoopID, item.Sequence)
	}
	if item.Overrides != "" {
		fmt.Fprintf(&b, "Overrides: %s\n", item.Overrides)
	}
	fmt.Fprintf(&b, "Status: %s (%s)  Duration: %dms\n", item.StatusText(), item.Label, item.DurationMs)
	fmt.Fprintf(&b, "$ %s\n\n", item.Command)
	if item.IsBinary {
		fmt.Fprintf(&b, "[binary output omitted, %d bytes]\n", item.Size)
	} else {
		b.WriteString(strings.TrimRight(item.Output, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n\n")
	_, err := w.WriteString(b.String())
	return err
}

// AllowedFormats normalizes configured export formats.
func AllowedFormats(formats []string) []string {
	set := make(map[string]struct{})
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "text" {
			f = "txt"
		}
		if _, _, err := DescribeFormat(f); f == "" || err != nil {
			continue
		}
		set[f] = struct{}{}
	}

	result := make([]string, 0, len(set))
	for f := range set {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}
