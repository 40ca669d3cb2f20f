package resultstore

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/okian/ringside/internal/domain/model"
)

const defaultHandlerPageSize = 100

// Source is what NewHandler serves.
type Source interface {
	ListEvents(ctx context.Context, cursor string, pageSize int) (model.EventPage, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	Results(ctx context.Context, eventID string) ([]model.FighterResult, error)
}

// NewHandler exposes src with the HTTP API the Client consumes.
func NewHandler(src Source) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHandlerPageSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeStatus(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		page, err := src.ListEvents(r.Context(), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeBody(w, page)
	})
	mux.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		ev, err := src.GetEvent(r.Context(), r.PathValue("id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeBody(w, ev)
	})
	mux.HandleFunc("GET /events/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		res, err := src.Results(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeBody(w, resultsDocument{EventID: id, Results: res})
	})
	return mux
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeStatus(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrInvalidCursor):
		writeStatus(w, http.StatusBadRequest, err.Error())
	default:
		writeStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
