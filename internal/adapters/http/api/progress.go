package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/types"
)

// ProgressDependencies defines the interface for progress reads.
type ProgressDependencies interface {
	GetProgress(ctx context.Context, playerID string) (model.PlayerProgressRecord, error)
	Trend(ctx context.Context, playerID string, category types.Category, window int) (progress.Trend, error)
}

// ProgressHandler handles progress requests.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleGetProgress handles GET /progress/{player} requests.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.GetProgress(r.Context(), r.PathValue("player"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleGetTrend handles GET /progress/{player}/trend?category=&window= requests.
func (h *ProgressHandler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.trend"

	q := r.URL.Query()
	var category types.Category
	if c := q.Get("category"); c != "" {
		parsed, err := types.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		category = parsed
	}
	window := 0
	if s := q.Get("window"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("window must be a positive integer")))
			return
		}
		window = n
	}

	trend, err := h.deps.Trend(r.Context(), r.PathValue("player"), category, window)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
