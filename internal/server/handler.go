package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/funnyzak/reqloop/internal/export"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/internal/storage"
	"github.com/funnyzak/reqloop/pkg/request"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	contentTypeJSON  = "application/json"
)

var errMessageTooLarge = errors.New("message exceeds configured limit")

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Create()
	s.logger.Info("Session created", "session_id", sess.ID())
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.registry.Delete(id) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionMessage handles one message and responds with the events
// it produced, in order.
func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.registry.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	body, err := s.readMessageBody(r)
	if err != nil {
		s.handleBodyReadError(w, err)
		return
	}

	var msg session.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	collector := &session.Collector{Events: []session.Event{}}
	if err := sess.Handle(r.Context(), msg, collector); err != nil {
		if errors.Is(err, session.ErrUnknownCommand) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Warn("Session message aborted", "session_id", sess.ID(), "command", msg.Command, "error", err)
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
		return
	}
	s.respondJSON(w, http.StatusOK, collector.Events)
}

func (s *Server) handleSessionOutputs(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	outputs, err := s.store.ListOutputs(mux.Vars(r)["id"])
	if err != nil {
		s.logger.Error("Failed to list saved outputs", "error", err)
		http.Error(w, "Failed to list outputs", http.StatusInternalServerError)
		return
	}
	if outputs == nil {
		outputs = []*request.SavedOutput{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": outputs})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	query := r.URL.Query()
	limit := parseIntDefault(query.Get("limit"), defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntDefault(query.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	opts := listOptions(r)
	opts.Limit = limit
	opts.Offset = offset
	items, total, err := s.store.ListRuns(opts)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*request.RunRecord{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":   items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.store.GetRun(mux.Vars(r)["id"])
	if err != nil {
		s.logger.Error("Failed to load run", "error", err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	contentType, ext, err := export.DescribeFormat(format)
	if err != nil {
		http.Error(w, fmt.Sprintf("Unsupported export format: %s", format), http.StatusBadRequest)
		return
	}

	filename := fmt.Sprintf("reqloop_runs_%d.%s", time.Now().Unix(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)

	opts := listOptions(r)
	var iterErr error
	iter := func(yield func(*request.RunRecord) bool) {
		iterErr = s.store.IterateRuns(opts, yield)
	}
	if _, _, err := export.StreamRuns(w, iter, format); err != nil {
		s.logger.Error("Export failed", "error", err)
		return
	}
	if iterErr != nil {
		s.logger.Error("Export iteration failed", "error", iterErr)
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "Run history disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func listOptions(r *http.Request) storage.ListOptions {
	query := r.URL.Query()
	return storage.ListOptions{
		Search:  query.Get("search"),
		Session: query.Get("session"),
		LoopID:  query.Get("loop"),
		Label:   query.Get("label"),
		Method:  query.Get("method"),
	}
}

func (s *Server) readMessageBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	if s.cfg.MaxMessageBytes <= 0 {
		return io.ReadAll(r.Body)
	}

	limited := io.LimitReader(r.Body, s.cfg.MaxMessageBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.cfg.MaxMessageBytes {
		return nil, errMessageTooLarge
	}
	return body, nil
}

func (s *Server) handleBodyReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMessageTooLarge):
		s.logger.Warn("Message exceeds configured limit",
			"limit_bytes", s.cfg.MaxMessageBytes,
		)
		http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
	default:
		s.logger.Error("Failed to read message body", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return def
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
