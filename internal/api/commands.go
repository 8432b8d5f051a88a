package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-modbus/internal/audit"
	"github.com/nerrad567/gray-logic-modbus/internal/command"
)

// knownStatuses are the values accepted by the status filter.
var knownStatuses = map[command.Status]bool{
	command.StatusApplied:  true,
	command.StatusFailed:   true,
	command.StatusInvalid:  true,
	command.StatusRejected: true,
	command.StatusUnbound:  true,
}

// handleListCommands returns paginated command log entries.
//
// Query parameters:
//   - processor: filter by processor ID
//   - status: filter by outcome (applied, failed, invalid, rejected, unbound)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		ProcessorID: q.Get("processor"),
		Status:      command.Status(q.Get("status")),
	}
	if filter.Status != "" && !knownStatuses[filter.Status] {
		writeBadRequest(w, "unknown status: "+string(filter.Status))
		return
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.commands.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command log", "error", err)
		writeInternalError(w, "failed to list command log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional integer query parameter, answering 400 on
// malformed input.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, name+" must be an integer")
		return 0, false
	}
	return n, true
}
