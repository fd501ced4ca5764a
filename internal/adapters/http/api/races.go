package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
)

// RaceDependencies defines race calendar and results operations.
type RaceDependencies interface {
	CreateRace(ctx context.Context, r model.Race) (model.Race, error)
	UpdateRace(ctx context.Context, r model.Race) (model.Race, error)
	DeleteRace(ctx context.Context, id string) error
	GetRace(ctx context.Context, id string) (model.Race, error)
	ListRaces(ctx context.Context, season int) ([]model.Race, error)
	Results(ctx context.Context, raceID string) (model.Race, []scoring.Result, error)
	SubmitResults(ctx context.Context, raceID string, results []scoring.Result, fastestLap string) (service.Report, error)
	RescoreRace(ctx context.Context, raceID string) (service.Report, error)
}

// raceRequest carries the editable race fields. Nil fields are left alone
// on PATCH.
type raceRequest struct {
	ID              string     `json:"id,omitempty"`
	Name            *string    `json:"name"`
	Location        *string    `json:"location"`
	Date            *time.Time `json:"date"`
	Season          *int       `json:"season"`
	Round           *int       `json:"round"`
	IsActive        *bool      `json:"is_active"`
	BettingDeadline *time.Time `json:"betting_deadline"`
}

func (req raceRequest) apply(r *model.Race) {
	if req.Name != nil {
		r.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		r.Location = strings.TrimSpace(*req.Location)
	}
	if req.Date != nil {
		r.Date = *req.Date
	}
	if req.Season != nil {
		r.Season = *req.Season
	}
	if req.Round != nil {
		r.Round = *req.Round
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if req.BettingDeadline != nil {
		r.BettingDeadline = *req.BettingDeadline
	}
}

type resultsRequest struct {
	Results            []scoring.Result `json:"results"`
	FastestLapDriverID string           `json:"fastest_lap_driver_id"`
}

type resultsResponse struct {
	Race    model.Race       `json:"race"`
	Results []scoring.Result `json:"results"`
}

// RaceHandler serves /races.
type RaceHandler struct {
	deps RaceDependencies
}

// NewRaceHandler creates a new race handler.
func NewRaceHandler(deps RaceDependencies) *RaceHandler {
	return &RaceHandler{deps: deps}
}

// HandleList handles GET /races[?season=Y].
func (h *RaceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_races"
	season, err := queryInt(r, "season", 0)
	if err != nil || season < 0 {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	races, err := h.deps.ListRaces(r.Context(), season)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, races)
}

// HandleCreate handles POST /races.
func (h *RaceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_race"
	var req raceRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	race := model.Race{ID: strings.TrimSpace(req.ID), IsActive: true}
	req.apply(&race)
	created, err := h.deps.CreateRace(r.Context(), race)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /races/{id}.
func (h *RaceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	race, err := h.deps.GetRace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_race", err))
		return
	}
	writeJSON(w, http.StatusOK, race)
}

// HandleUpdate handles PATCH /races/{id}.
func (h *RaceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_race"
	var req raceRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	race, err := h.deps.GetRace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	req.apply(&race)
	updated, err := h.deps.UpdateRace(r.Context(), race)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /races/{id}.
func (h *RaceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteRace(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, Wrap("api.delete_race", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetResults handles GET /races/{id}/results.
func (h *RaceHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	race, results, err := h.deps.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_results", err))
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Race: race, Results: results})
}

// HandleSubmitResults handles POST /races/{id}/results and answers with the
// scoring report.
func (h *RaceHandler) HandleSubmitResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_results"
	var req resultsRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	report, err := h.deps.SubmitResults(r.Context(), r.PathValue("id"), req.Results, strings.TrimSpace(req.FastestLapDriverID))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRescore handles POST /races/{id}/rescore.
func (h *RaceHandler) HandleRescore(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.RescoreRace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.rescore_race", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
