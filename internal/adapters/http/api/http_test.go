package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitwall/internal/adapters/http/api"
	"github.com/okian/pitwall/internal/adapters/storage"
	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const adminToken = "s3cret"

var (
	raceDay = time.Date(2025, 3, 16, 4, 0, 0, 0, time.UTC)
	today   = raceDay.Add(-48 * time.Hour)
)

type client struct {
	base string
}

func (c client) do(method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	var buf bytes.Buffer
	if body != nil {
		So(json.NewEncoder(&buf).Encode(body), ShouldBeNil)
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	So(err, ShouldBeNil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	So(err, ShouldBeNil)
	return resp, out.Bytes()
}

func admin() map[string]string { return map[string]string{api.HeaderAdminToken: adminToken} }

func user(id string) map[string]string {
	return map[string]string{api.HeaderUserID: id, api.HeaderUserName: "Player " + id}
}

func newTestServer(svc *service.Service) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 50, adminToken).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestAPI_BettingFlow(t *testing.T) {
	Convey("Given an API over a started service", t, func() {
		ctx := context.Background()
		st, err := storage.Open(ctx, config.BackendSQLite, ":memory:", storage.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer st.Close()

		svc := service.New(st,
			service.WithWorkerCount(2),
			service.WithMinPositions(3),
			service.WithRetry(1, time.Millisecond),
			service.WithClock(func() time.Time { return today }),
			service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := newTestServer(svc)
		defer srv.Close()
		c := client{base: srv.URL}

		for i, code := range []string{"VER", "NOR", "LEC"} {
			resp, _ := c.do(http.MethodPost, "/drivers", map[string]any{
				"id": code, "name": code, "number": i + 1, "team": "Team", "code": code,
			}, admin())
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		}

		resp, body := c.do(http.MethodPost, "/races", map[string]any{
			"name": "Australian Grand Prix", "location": "Melbourne",
			"date": raceDay, "season": 2025, "round": 1,
		}, admin())
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		var race model.Race
		So(json.Unmarshal(body, &race), ShouldBeNil)
		So(race.ID, ShouldNotBeEmpty)
		So(race.IsActive, ShouldBeTrue)

		bet := func(userID string, order ...string) *http.Response {
			p := scoring.Prediction{}
			for i, id := range order {
				p.Positions = append(p.Positions, scoring.PredictionPosition{Position: i + 1, DriverID: id})
			}
			resp, _ := c.do(http.MethodPost, "/bets", map[string]any{"race_id": race.ID, "prediction": p}, user(userID))
			return resp
		}

		Convey("When admin routes are called without the token", func() {
			resp, body := c.do(http.MethodPost, "/races", map[string]any{"name": "x"}, nil)

			Convey("Then they are forbidden", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
				So(string(body), ShouldContainSubstring, "forbidden")
			})
		})

		Convey("When a bet is placed without an identity", func() {
			resp, _ := c.do(http.MethodPost, "/bets", map[string]any{"race_id": race.ID}, nil)

			Convey("Then it is unauthorized", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When a bet names an unknown driver", func() {
			resp := bet("alice", "VER", "NOR", "XXX")

			Convey("Then it is rejected as an invalid prediction", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body has unknown fields", func() {
			resp, _ := c.do(http.MethodPost, "/bets", map[string]any{"race": race.ID}, user("alice"))

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When two users bet and results are submitted", func() {
			So(bet("alice", "VER", "NOR", "LEC").StatusCode, ShouldEqual, http.StatusCreated)
			So(bet("bob", "LEC", "NOR", "VER").StatusCode, ShouldEqual, http.StatusCreated)

			resp, body := c.do(http.MethodPost, "/races/"+race.ID+"/results", map[string]any{
				"results": []map[string]any{
					{"driver_id": "VER", "position": 1, "fastest_lap": true},
					{"driver_id": "NOR", "position": 2},
					{"driver_id": "LEC", "position": 3},
				},
			}, admin())
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var report service.Report
			So(json.Unmarshal(body, &report), ShouldBeNil)

			Convey("Then both bets are scored", func() {
				So(report.Bets, ShouldEqual, 2)
				So(report.Scored, ShouldEqual, 2)
				So(report.Revision, ShouldEqual, 1)
			})

			Convey("And the leaderboards rank the exact prediction first", func() {
				for _, q := range []string{"", "&season=2025", "&race=" + race.ID} {
					resp, body := c.do(http.MethodGet, "/leaderboard?limit=10"+q, nil, nil)
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					var entries []types.Entry
					So(json.Unmarshal(body, &entries), ShouldBeNil)
					So(entries, ShouldHaveLength, 2)
					So(entries[0].UserID, ShouldEqual, "alice")
					So(entries[0].Rank, ShouldEqual, 1)
					So(entries[1].Rank, ShouldEqual, 2)
				}
			})

			Convey("And rank lookups agree", func() {
				resp, body := c.do(http.MethodGet, "/rank/bob?season=2025", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var e types.Entry
				So(json.Unmarshal(body, &e), ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)

				resp, _ = c.do(http.MethodGet, "/rank/nobody", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})

			Convey("And users see only their own bets", func() {
				resp, body := c.do(http.MethodGet, "/bets", nil, user("alice"))
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var bets []model.Bet
				So(json.Unmarshal(body, &bets), ShouldBeNil)
				So(bets, ShouldHaveLength, 1)
				So(bets[0].Score, ShouldNotBeNil)

				resp, _ = c.do(http.MethodGet, "/bets/"+bets[0].ID, nil, user("alice"))
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				resp, _ = c.do(http.MethodGet, "/bets/"+bets[0].ID, nil, user("bob"))
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})

			Convey("And the race is closed for betting", func() {
				So(bet("carol", "VER", "NOR", "LEC").StatusCode, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And a rescore bumps the revision", func() {
				resp, body := c.do(http.MethodPost, "/races/"+race.ID+"/rescore", nil, admin())
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var again service.Report
				So(json.Unmarshal(body, &again), ShouldBeNil)
				So(again.Revision, ShouldEqual, 2)
				So(again.Scored, ShouldEqual, 2)
			})

			Convey("And the stored results can be read back", func() {
				resp, body := c.do(http.MethodGet, "/races/"+race.ID+"/results", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, `"fastest_lap_driver_id":"VER"`)
			})

			Convey("And winners list the best bet first", func() {
				resp, body := c.do(http.MethodGet, "/winners?limit=1", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var winners []model.ScoredBet
				So(json.Unmarshal(body, &winners), ShouldBeNil)
				So(winners, ShouldHaveLength, 1)
				So(winners[0].UserID, ShouldEqual, "alice")
				So(winners[0].UserName, ShouldEqual, "Player alice")
			})

			Convey("And deleting the race empties its board", func() {
				resp, _ := c.do(http.MethodDelete, "/races/"+race.ID, nil, admin())
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

				resp, body := c.do(http.MethodGet, "/leaderboard?limit=10", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldEqual, "[]\n")

				resp, _ = c.do(http.MethodGet, "/races/"+race.ID, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a race is patched", func() {
			resp, body := c.do(http.MethodPatch, "/races/"+race.ID, map[string]any{"location": "Albert Park"}, admin())

			Convey("Then only the given fields change", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var updated model.Race
				So(json.Unmarshal(body, &updated), ShouldBeNil)
				So(updated.Location, ShouldEqual, "Albert Park")
				So(updated.Name, ShouldEqual, "Australian Grand Prix")
			})
		})

		Convey("When a driver code is reused", func() {
			resp, _ := c.do(http.MethodPost, "/drivers", map[string]any{
				"name": "Someone", "number": 99, "team": "Team", "code": "VER",
			}, admin())

			Convey("Then it conflicts", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When leaderboard queries are malformed", func() {
			for _, q := range []string{"", "?limit=0", "?limit=51", "?limit=5&season=2025&race=x", "?limit=5&season=abc"} {
				resp, _ := c.do(http.MethodGet, "/leaderboard"+q, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When stats are requested", func() {
			resp, body := c.do(http.MethodGet, "/stats", nil, nil)

			Convey("Then service counters are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When metrics are scraped", func() {
			resp, _ := c.do(http.MethodGet, "/metrics", nil, nil)

			Convey("Then the exposition is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

// busyDeps fails every call with err.
type busyDeps struct {
	api.Dependencies
	err error
}

func (b busyDeps) SubmitResults(context.Context, string, []scoring.Result, string) (service.Report, error) {
	return service.Report{}, b.err
}

func (b busyDeps) Leaderboard(context.Context, string, int) ([]types.Entry, error) {
	return nil, b.err
}

func (b busyDeps) GetStats() map[string]any { return map[string]any{} }

func TestAPI_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrQueueFull, http.StatusTooManyRequests},
		{service.ErrNotStarted, http.StatusServiceUnavailable},
		{service.ErrInvalidResults, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	Convey("Given handlers over failing dependencies", t, func() {
		for _, tc := range cases {
			deps := busyDeps{err: tc.err}
			mux := http.NewServeMux()
			api.NewServer(deps, deps, 10, adminToken).Register(context.Background(), mux)

			req := httptest.NewRequest(http.MethodPost, "/races/r1/results", bytes.NewBufferString(`{"results":[]}`))
			req.Header.Set(api.HeaderAdminToken, adminToken)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, tc.status)

			req = httptest.NewRequest(http.MethodGet, "/leaderboard?limit=3", nil)
			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, tc.status)
		}
	})

	Convey("Given an API without an admin token", t, func() {
		deps := busyDeps{err: service.ErrNotFound}
		mux := http.NewServeMux()
		api.NewServer(deps, deps, 10, "").Register(context.Background(), mux)

		req := httptest.NewRequest(http.MethodPost, "/races/r1/rescore", nil)
		req.Header.Set(api.HeaderAdminToken, "")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		Convey("Then admin routes stay closed", func() {
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})
	})

	Convey("Given a wrong method", t, func() {
		deps := busyDeps{err: service.ErrNotFound}
		mux := http.NewServeMux()
		api.NewServer(deps, deps, 10, adminToken).Register(context.Background(), mux)

		req := httptest.NewRequest(http.MethodDelete, "/drivers", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		Convey("Then the mux refuses it", func() {
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}
