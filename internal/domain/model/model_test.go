package model_test

import (
	"testing"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRace_BettingOpen(t *testing.T) {
	convey.Convey("Given an active race with a deadline", t, func() {
		deadline := time.Date(2025, 3, 16, 4, 0, 0, 0, time.UTC)
		race := model.Race{Name: "Australian Grand Prix", IsActive: true, BettingDeadline: deadline}

		convey.Convey("Then betting is open up to and including the deadline", func() {
			convey.So(race.BettingOpen(deadline.Add(-time.Hour)), convey.ShouldBeTrue)
			convey.So(race.BettingOpen(deadline), convey.ShouldBeTrue)
		})

		convey.Convey("Then betting is closed after the deadline", func() {
			convey.So(race.BettingOpen(deadline.Add(time.Second)), convey.ShouldBeFalse)
		})

		convey.Convey("When the race is completed", func() {
			race.IsCompleted = true
			convey.So(race.BettingOpen(deadline.Add(-time.Hour)), convey.ShouldBeFalse)
		})

		convey.Convey("When the race is inactive", func() {
			race.IsActive = false
			convey.So(race.BettingOpen(deadline.Add(-time.Hour)), convey.ShouldBeFalse)
		})
	})
}

func TestBet_Scored(t *testing.T) {
	convey.Convey("Given a bet", t, func() {
		bet := model.Bet{ID: "b1"}
		convey.So(bet.Scored(), convey.ShouldBeFalse)

		zero := 0
		bet.Score = &zero
		convey.So(bet.Scored(), convey.ShouldBeTrue)
	})
}
