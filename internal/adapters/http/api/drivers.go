package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/pitwall/internal/domain/model"
)

// DriverDependencies defines driver registry operations.
type DriverDependencies interface {
	CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	ListDrivers(ctx context.Context, activeOnly bool) ([]model.Driver, error)
}

type driverRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Team     string `json:"team"`
	Code     string `json:"code"`
	IsActive *bool  `json:"is_active"`
}

// DriverHandler serves /drivers.
type DriverHandler struct {
	deps DriverDependencies
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(deps DriverDependencies) *DriverHandler {
	return &DriverHandler{deps: deps}
}

// HandleList handles GET /drivers[?all=true]. Only active drivers are
// listed unless all is set.
func (h *DriverHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_drivers"
	all := false
	if raw := r.URL.Query().Get("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		all = v
	}
	drivers, err := h.deps.ListDrivers(r.Context(), !all)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

// HandleCreate handles POST /drivers.
func (h *DriverHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_driver"
	var req driverRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	d := model.Driver{
		ID:       req.ID,
		Name:     req.Name,
		Number:   req.Number,
		Team:     req.Team,
		Code:     req.Code,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	created, err := h.deps.CreateDriver(r.Context(), d)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
