// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/pitwall/internal/domain/types"
)

const (
	maxBodyBytes    = 1 << 20
	defaultMaxLimit = 100
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies bundles every operation the handlers call.
type Dependencies interface {
	RaceDependencies
	DriverDependencies
	BetDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	raceHandler        *RaceHandler
	driverHandler      *DriverHandler
	betHandler         *BetHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	winnersHandler     *WinnersHandler
	auth               *Auth
}

// NewServer creates a new API server with all handlers. maxLimit caps
// leaderboard and winners queries; an empty adminToken disables admin routes.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, adminToken string) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		raceHandler:        NewRaceHandler(deps),
		driverHandler:      NewDriverHandler(deps),
		betHandler:         NewBetHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		winnersHandler:     NewWinnersHandler(deps, maxLimit),
		auth:               NewAuth(adminToken),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	user, admin := s.auth.RequireUser, s.auth.RequireAdmin

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /races", MetricsMiddleware(s.raceHandler.HandleList, "races"))
	mux.HandleFunc("POST /races", MetricsMiddleware(admin(s.raceHandler.HandleCreate), "races"))
	mux.HandleFunc("GET /races/{id}", MetricsMiddleware(s.raceHandler.HandleGet, "race"))
	mux.HandleFunc("PATCH /races/{id}", MetricsMiddleware(admin(s.raceHandler.HandleUpdate), "race"))
	mux.HandleFunc("DELETE /races/{id}", MetricsMiddleware(admin(s.raceHandler.HandleDelete), "race"))
	mux.HandleFunc("GET /races/{id}/results", MetricsMiddleware(s.raceHandler.HandleGetResults, "results"))
	mux.HandleFunc("POST /races/{id}/results", MetricsMiddleware(admin(s.raceHandler.HandleSubmitResults), "results"))
	mux.HandleFunc("POST /races/{id}/rescore", MetricsMiddleware(admin(s.raceHandler.HandleRescore), "rescore"))

	mux.HandleFunc("GET /drivers", MetricsMiddleware(s.driverHandler.HandleList, "drivers"))
	mux.HandleFunc("POST /drivers", MetricsMiddleware(admin(s.driverHandler.HandleCreate), "drivers"))

	mux.HandleFunc("POST /bets", MetricsMiddleware(user(s.betHandler.HandlePlace), "bets"))
	mux.HandleFunc("GET /bets", MetricsMiddleware(user(s.betHandler.HandleList), "bets"))
	mux.HandleFunc("GET /bets/{id}", MetricsMiddleware(user(s.betHandler.HandleGet), "bet"))

	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{user_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /winners", MetricsMiddleware(s.winnersHandler.HandleGetWinners, "winners"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error's kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return WrapKind(op, ErrBadRequest, errors.New("empty body"))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}
