package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// AnalyzeDependencies defines what the analyze handler needs.
type AnalyzeDependencies interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*model.InsightReport, error)
}

// AnalyzeHandler handles analysis requests.
type AnalyzeHandler struct {
	deps    AnalyzeDependencies
	timeout time.Duration
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, timeout: DefaultAnalyzeTimeout}
}

// analyzeRequest mirrors the OpenAPI schema for POST /analyze.
type analyzeRequest struct {
	SchemaVersion string          `json:"schema_version"`
	PlayerID      string          `json:"player_id"`
	Role          string          `json:"role"`
	EloBand       string          `json:"elo_band"`
	Match         json.RawMessage `json:"match"`
}

func (a analyzeRequest) toEngine() (service.AnalyzeRequest, error) {
	out := service.AnalyzeRequest{
		Payload:       a.Match,
		SchemaVersion: strings.TrimSpace(a.SchemaVersion),
		PlayerID:      strings.TrimSpace(a.PlayerID),
	}
	if len(a.Match) == 0 || string(a.Match) == "null" {
		return out, errors.New("missing match")
	}
	if strings.TrimSpace(a.Role) != "" {
		if out.PlayerID == "" {
			return out, errors.New("role requires player_id")
		}
		r, err := types.ParseRole(a.Role)
		if err != nil {
			return out, err
		}
		out.Role = r
	}
	if strings.TrimSpace(a.EloBand) != "" {
		b, err := types.ParseEloBand(a.EloBand)
		if err != nil {
			return out, err
		}
		out.EloBand = b
	}
	return out, nil
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"

	var body analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	req, err := body.toEngine()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	report, err := h.deps.Analyze(ctx, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
