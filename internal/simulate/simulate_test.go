package simulate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitwall/internal/adapters/http/api"
	"github.com/okian/pitwall/internal/adapters/storage"
	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/betting"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/internal/seed"
	"github.com/okian/pitwall/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running server with the default grid", t, func() {
		ctx := context.Background()
		st, err := storage.Open(ctx, config.BackendSQLite, ":memory:", storage.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer st.Close()

		svc := service.New(st, service.WithWorkerCount(4), service.WithMinPositions(5), service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		_, err = seed.Apply(ctx, svc, seed.Default(), time.Now(), logger.Nop())
		So(err, ShouldBeNil)

		mux := http.NewServeMux()
		api.NewServer(svc, svc, 100, "token").Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a simulation runs", func() {
			stats, err := Run(ctx, Config{
				BaseURL: srv.URL, AdminToken: "token",
				Users: 25, Positions: 5, Workers: 4, Seed: 42, TopN: 25,
			})

			Convey("Then every server score matches local scoring", func() {
				So(err, ShouldBeNil)
				So(stats.BetsSubmitted, ShouldEqual, 25)
				So(stats.BetsFailed, ShouldEqual, 0)
				So(stats.Scored, ShouldEqual, 25)
				So(stats.RanksRetrieved, ShouldEqual, 25)
				So(stats.Mismatches, ShouldEqual, 0)
			})
		})

		Convey("When the admin token is wrong", func() {
			_, err := Run(ctx, Config{BaseURL: srv.URL, AdminToken: "nope", Users: 1, Positions: 5, Seed: 1})

			Convey("Then the race cannot be created", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "403")
			})
		})

		Convey("When more positions are asked than drivers exist", func() {
			_, err := Run(ctx, Config{BaseURL: srv.URL, AdminToken: "token", Positions: 21, Seed: 1})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator over a full grid", t, func() {
		grid := make([]string, 22)
		for i := range grid {
			grid[i] = userID(i)
		}
		gen := newGenerator(7, grid)

		Convey("Then predictions are valid", func() {
			for range 50 {
				p := gen.prediction(10)
				So(betting.ValidatePrediction(p, betting.Rules{MinPositions: 10}), ShouldBeNil)
			}
		})

		Convey("Then results are valid and name a classified fastest lap", func() {
			results, fastest := gen.results()
			cleaned, err := betting.ValidateResults(results, fastest)
			So(err, ShouldBeNil)
			So(cleaned, ShouldHaveLength, 22)
			for _, r := range results {
				if r.DriverID == fastest {
					So(r.Position, ShouldNotBeNil)
				}
			}
		})

		Convey("Then the same seed yields the same stream", func() {
			a, b := newGenerator(9, grid), newGenerator(9, grid)
			So(a.prediction(10), ShouldResemble, b.prediction(10))
		})
	})
}

func TestCheckOrdering(t *testing.T) {
	Convey("Given leaderboards", t, func() {
		So(checkOrdering([]types.Entry{
			{Rank: 1, UserID: "a", Score: 50},
			{Rank: 1, UserID: "b", Score: 50},
			{Rank: 2, UserID: "c", Score: 10},
		}), ShouldBeNil)

		So(checkOrdering([]types.Entry{
			{Rank: 1, UserID: "a", Score: 10},
			{Rank: 2, UserID: "b", Score: 50},
		}), ShouldWrap, ErrMismatch)

		So(checkOrdering([]types.Entry{
			{Rank: 1, UserID: "b", Score: 50},
			{Rank: 1, UserID: "a", Score: 50},
		}), ShouldWrap, ErrMismatch)

		So(checkOrdering([]types.Entry{
			{Rank: 1, UserID: "a", Score: 50},
			{Rank: 3, UserID: "b", Score: 40},
		}), ShouldWrap, ErrMismatch)
	})
}
