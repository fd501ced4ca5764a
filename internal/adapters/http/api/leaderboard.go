package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/model"
)

const defaultWinners = 10

// LeaderboardDependencies defines the board queries.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, board string, n int) ([]Entry, error)
	Rank(ctx context.Context, board, userID string) (Entry, error)
	Winners(ctx context.Context, limit int) ([]model.ScoredBet, error)
}

// boardFromQuery selects the board named by ?season= or ?race=, defaulting
// to the overall board.
func boardFromQuery(r *http.Request) (string, error) {
	q := r.URL.Query()
	season, race := strings.TrimSpace(q.Get("season")), strings.TrimSpace(q.Get("race"))
	switch {
	case season != "" && race != "":
		return "", errors.New("season and race are exclusive")
	case season != "":
		y, err := strconv.Atoi(season)
		if err != nil || y < 1 {
			return "", errors.New("invalid season")
		}
		return repository.SeasonBoard(y), nil
	case race != "":
		return repository.RaceBoard(race), nil
	}
	return repository.OverallBoard, nil
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N[&season=Y|&race=ID].
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	board, err := boardFromQuery(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), board, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps LeaderboardDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps LeaderboardDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{user_id}[?season=Y|&race=ID].
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	board, err := boardFromQuery(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.Rank(r.Context(), board, userID)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// WinnersHandler lists the best single-race bets.
type WinnersHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewWinnersHandler creates a new winners handler.
func NewWinnersHandler(deps LeaderboardDependencies, maxLimit int) *WinnersHandler {
	return &WinnersHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetWinners handles GET /winners?limit=N.
func (h *WinnersHandler) HandleGetWinners(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_winners"
	n, err := queryInt(r, "limit", defaultWinners)
	if err != nil || n < 1 || n > h.maxLimit {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	winners, err := h.deps.Winners(r.Context(), n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, winners)
}
