package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/internal/domain/types"
)

const (
	headerUserID     = "X-User-ID"
	headerUserName   = "X-User-Name"
	headerAdminToken = "X-Admin-Token"
)

// client talks JSON to the pitwall API.
type client struct {
	base       string
	adminToken string
	http       *http.Client
}

func newClient(base, adminToken string, timeout time.Duration) *client {
	return &client{base: base, adminToken: adminToken, http: &http.Client{Timeout: timeout}}
}

// statusError carries a non-2xx answer.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (c *client) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &statusError{status: resp.StatusCode, body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *client) admin() map[string]string { return map[string]string{headerAdminToken: c.adminToken} }

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *client) drivers(ctx context.Context) ([]model.Driver, error) {
	var out []model.Driver
	return out, c.do(ctx, http.MethodGet, "/drivers", nil, nil, &out)
}

func (c *client) createRace(ctx context.Context, r map[string]any) (model.Race, error) {
	var out model.Race
	return out, c.do(ctx, http.MethodPost, "/races", c.admin(), r, &out)
}

func (c *client) placeBet(ctx context.Context, userID, raceID string, p scoring.Prediction) (model.Bet, error) {
	var out model.Bet
	headers := map[string]string{headerUserID: userID, headerUserName: "Sim " + userID}
	return out, c.do(ctx, http.MethodPost, "/bets", headers,
		map[string]any{"race_id": raceID, "prediction": p}, &out)
}

// report mirrors the results submission answer.
type report struct {
	Revision int `json:"results_revision"`
	Bets     int `json:"bets"`
	Scored   int `json:"scored"`
	Pending  int `json:"pending"`
	Failed   []struct {
		BetID string `json:"bet_id"`
		Error string `json:"error"`
	} `json:"failed"`
}

func (c *client) submitResults(ctx context.Context, raceID string, results []scoring.Result, fastestLap string) (report, error) {
	var out report
	return out, c.do(ctx, http.MethodPost, "/races/"+raceID+"/results", c.admin(),
		map[string]any{"results": results, "fastest_lap_driver_id": fastestLap}, &out)
}

func (c *client) rank(ctx context.Context, raceID, userID string) (types.Entry, error) {
	var out types.Entry
	return out, c.do(ctx, http.MethodGet, "/rank/"+userID+"?race="+raceID, nil, nil, &out)
}

func (c *client) leaderboard(ctx context.Context, raceID string, n int) ([]types.Entry, error) {
	var out []types.Entry
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard?limit=%d&race=%s", n, raceID), nil, nil, &out)
}
