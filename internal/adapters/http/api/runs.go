package api

import (
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/ringside/internal/app"
)

// RunStarter starts background runs and reports on them.
type RunStarter interface {
	Start(mode, eventID string) (string, error)
	Run(id string) (service.RunInfo, error)
	Runs() []service.RunInfo
}

type startResponse struct {
	RunID  string `json:"run_id"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
}

// RunsHandler handles run requests.
type RunsHandler struct {
	runs RunStarter
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs RunStarter) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// HandleStartFull handles POST /runs/full requests.
func (h *RunsHandler) HandleStartFull(w http.ResponseWriter, _ *http.Request) {
	h.start(w, service.ModeFull, "")
}

// HandleStartMerge handles POST /runs/merge requests.
func (h *RunsHandler) HandleStartMerge(w http.ResponseWriter, _ *http.Request) {
	h.start(w, service.ModeMerge, "")
}

// HandleStartEvent handles POST /runs/events/{id} requests.
func (h *RunsHandler) HandleStartEvent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeServiceError(w, fmt.Errorf("%w: missing event id", ErrBadRequest))
		return
	}
	h.start(w, service.ModeEvent, id)
}

func (h *RunsHandler) start(w http.ResponseWriter, mode, eventID string) {
	id, err := h.runs.Start(mode, eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/runs/"+id)
	writeJSON(w, http.StatusAccepted, startResponse{RunID: id, Mode: mode, Status: service.StatusRunning})
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	info, err := h.runs.Run(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleListRuns handles GET /runs requests.
func (h *RunsHandler) HandleListRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.runs.Runs())
}
