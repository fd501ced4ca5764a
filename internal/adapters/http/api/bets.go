package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
)

// BetDependencies defines bet operations.
type BetDependencies interface {
	PlaceBet(ctx context.Context, user model.User, raceID string, p scoring.Prediction) (model.Bet, error)
	UserBets(ctx context.Context, userID string) ([]model.Bet, error)
	GetBet(ctx context.Context, userID, betID string) (model.Bet, error)
}

type betRequest struct {
	RaceID     string             `json:"race_id"`
	Prediction scoring.Prediction `json:"prediction"`
}

// BetHandler serves /bets for the calling user.
type BetHandler struct {
	deps BetDependencies
}

// NewBetHandler creates a new bet handler.
func NewBetHandler(deps BetDependencies) *BetHandler {
	return &BetHandler{deps: deps}
}

// HandlePlace handles POST /bets. Placing a second bet on the same race
// replaces the first.
func (h *BetHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	const op = "api.place_bet"
	user, _ := UserFrom(r.Context())
	var req betRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	raceID := strings.TrimSpace(req.RaceID)
	if raceID == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	bet, err := h.deps.PlaceBet(r.Context(), user, raceID, req.Prediction)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

// HandleList handles GET /bets.
func (h *BetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	bets, err := h.deps.UserBets(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, Wrap("api.list_bets", err))
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

// HandleGet handles GET /bets/{id}.
func (h *BetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	bet, err := h.deps.GetBet(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_bet", err))
		return
	}
	writeJSON(w, http.StatusOK, bet)
}
