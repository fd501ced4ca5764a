package scoring_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/pitwall/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var grid = []string{"VER", "NOR", "LEC", "PIA", "SAI", "HAM", "RUS", "PER", "ALO", "STR", "GAS", "OCO"}

// classified returns results where grid[i] finished in position i+1.
func classified(n int) []scoring.Result {
	out := make([]scoring.Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, scoring.Result{DriverID: grid[i], Position: scoring.IntPtr(i + 1)})
	}
	return out
}

func predictTop(n int) []scoring.PredictionPosition {
	out := make([]scoring.PredictionPosition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, scoring.PredictionPosition{Position: i + 1, DriverID: grid[i]})
	}
	return out
}

func sum(b scoring.Breakdown) int {
	total := 0
	for _, d := range b.Details {
		total += d.Points
	}
	return total
}

func countType(b scoring.Breakdown, t scoring.DetailType) int {
	n := 0
	for _, d := range b.Details {
		if d.Type == t {
			n++
		}
	}
	return n
}

func TestCalculate_DocumentedExample(t *testing.T) {
	Convey("Given the documented five-driver prediction", t, func() {
		pred := scoring.Prediction{Positions: []scoring.PredictionPosition{
			{Position: 1, DriverID: "VER"},
			{Position: 2, DriverID: "NOR"},
			{Position: 3, DriverID: "LEC"},
			{Position: 4, DriverID: "RUS"},
			{Position: 5, DriverID: "HAM"},
		}}
		results := []scoring.Result{
			{DriverID: "VER", Position: scoring.IntPtr(1)},
			{DriverID: "LEC", Position: scoring.IntPtr(2)},
			{DriverID: "NOR", Position: scoring.IntPtr(3)},
			{DriverID: "HAM", Position: scoring.IntPtr(4)},
			{DriverID: "RUS", Position: scoring.IntPtr(5)},
		}

		b := scoring.Calculate(pred, results, "")

		Convey("Then the total is 105", func() {
			So(b.TotalScore, ShouldEqual, 105)
			So(sum(b), ShouldEqual, b.TotalScore)
		})

		Convey("And the lines follow prediction order then the winner bonus", func() {
			types := b.DetailTypes()
			So(types, ShouldResemble, []string{
				"exact_position", "off_by_one", "off_by_one", "off_by_one", "off_by_one", "correct_winner",
			})
			So(b.Details[0].Description, ShouldEqual, "Exact position match for position 1: +25 points")
			So(b.Details[1].Description, ShouldEqual, "One position off for position 2: +15 points")
		})

		Convey("And no podium or top-N bonus is awarded", func() {
			So(countType(b, scoring.DetailPerfectPodium), ShouldEqual, 0)
			So(countType(b, scoring.DetailPerfectTop5), ShouldEqual, 0)
			So(countType(b, scoring.DetailPerfectTop10), ShouldEqual, 0)
		})
	})
}

func TestCalculate_FullStacking(t *testing.T) {
	Convey("Given a fully correct top 10 with fastest lap and one correct DNF", t, func() {
		results := classified(10)
		results = append(results, scoring.Result{DriverID: "OCO", DNF: true})
		pred := scoring.Prediction{
			Positions:  predictTop(10),
			FastestLap: "VER",
			DNFs:       []string{"OCO"},
		}

		b := scoring.Calculate(pred, results, "VER")

		Convey("Then every bonus stacks to 475", func() {
			So(b.TotalScore, ShouldEqual, 475)
			So(countType(b, scoring.DetailExactPosition), ShouldEqual, 10)
			So(countType(b, scoring.DetailPerfectPodium), ShouldEqual, 1)
			So(countType(b, scoring.DetailPerfectTop5), ShouldEqual, 1)
			So(countType(b, scoring.DetailPerfectTop10), ShouldEqual, 1)
			So(countType(b, scoring.DetailCorrectWinner), ShouldEqual, 1)
			So(countType(b, scoring.DetailFastestLap), ShouldEqual, 1)
			So(countType(b, scoring.DetailCorrectDNF), ShouldEqual, 1)
		})

		Convey("And bonuses come after the position lines in fixed order", func() {
			tail := b.DetailTypes()[10:]
			So(tail, ShouldResemble, []string{
				"perfect_podium", "perfect_top_5", "perfect_top_10", "correct_winner", "fastest_lap", "correct_dnf",
			})
		})
	})
}

func TestCalculate_PositionRules(t *testing.T) {
	Convey("Given single-entry predictions", t, func() {
		results := classified(12)

		score := func(predicted int, driver string) scoring.Breakdown {
			return scoring.Calculate(scoring.Prediction{Positions: []scoring.PredictionPosition{
				{Position: predicted, DriverID: driver},
			}}, results, "")
		}

		Convey("When the driver is absent from the results", func() {
			b := score(7, "ZHO")

			Convey("Then it is a -5 miss", func() {
				So(b.TotalScore, ShouldEqual, -5)
				So(b.Details, ShouldHaveLength, 1)
				So(b.Details[0].Type, ShouldEqual, scoring.DetailPositionMiss)
			})
		})

		Convey("When the miss is predicted for first place", func() {
			b := score(1, "ZHO")

			Convey("Then the penalty is the same regardless of slot", func() {
				So(b.TotalScore, ShouldEqual, -5)
			})
		})

		Convey("When the diff is one, two or three", func() {
			So(score(2, "PIA").Details[0].Type, ShouldEqual, scoring.DetailOffByTwo)
			So(score(3, "PIA").Details[0].Type, ShouldEqual, scoring.DetailOffByOne)
			So(score(1, "PIA").Details[0].Type, ShouldEqual, scoring.DetailOffByThree)
			So(score(1, "PIA").TotalScore, ShouldEqual, 5)
		})

		Convey("When the diff is four and the driver finished 10th", func() {
			b := score(6, "STR")

			Convey("Then the top-ten consolation applies", func() {
				So(b.TotalScore, ShouldEqual, 2)
				So(b.Details[0].Type, ShouldEqual, scoring.DetailInTopTen)
				So(b.Details[0].Description, ShouldEqual, "Driver in top 10 but wrong spot: +2 points")
			})
		})

		Convey("When the diff is four and the driver finished 11th", func() {
			b := score(7, "GAS")

			Convey("Then nothing is scored", func() {
				So(b.TotalScore, ShouldEqual, 0)
				So(b.Details, ShouldBeEmpty)
			})
		})
	})
}

func TestCalculate_DNF(t *testing.T) {
	Convey("Given a driver with a null position", t, func() {
		results := append(classified(3), scoring.Result{DriverID: "HAM", DNF: true})

		Convey("When they are predicted in a position", func() {
			b := scoring.Calculate(scoring.Prediction{Positions: []scoring.PredictionPosition{
				{Position: 4, DriverID: "HAM"},
			}}, results, "")

			Convey("Then they contribute nothing rather than a miss", func() {
				So(b.TotalScore, ShouldEqual, 0)
				So(b.Details, ShouldBeEmpty)
			})
		})

		Convey("When they are predicted as a DNF twice", func() {
			b := scoring.Calculate(scoring.Prediction{DNFs: []string{"HAM", "HAM", "VER"}}, results, "")

			Convey("Then every listed match earns the bonus", func() {
				So(b.TotalScore, ShouldEqual, 30)
				So(countType(b, scoring.DetailCorrectDNF), ShouldEqual, 2)
			})
		})
	})
}

func TestCalculate_Bonuses(t *testing.T) {
	Convey("Given podium style bonuses", t, func() {
		Convey("When the predicted podium is given out of order", func() {
			pred := scoring.Prediction{Positions: []scoring.PredictionPosition{
				{Position: 3, DriverID: "LEC"},
				{Position: 1, DriverID: "VER"},
				{Position: 2, DriverID: "NOR"},
			}}
			b := scoring.Calculate(pred, classified(5), "")

			Convey("Then sorting by position still matches the podium", func() {
				So(countType(b, scoring.DetailPerfectPodium), ShouldEqual, 1)
				So(b.TotalScore, ShouldEqual, 75+30+20)
			})
		})

		Convey("When only two drivers are classified in the top three", func() {
			results := classified(2)
			results = append(results, scoring.Result{DriverID: "LEC", DNF: true})
			b := scoring.Calculate(scoring.Prediction{Positions: predictTop(3)}, results, "")

			Convey("Then the podium bonus is withheld", func() {
				So(countType(b, scoring.DetailPerfectPodium), ShouldEqual, 0)
			})
		})

		Convey("When a duplicate position makes the predicted set too large", func() {
			pred := scoring.Prediction{Positions: append(predictTop(3), scoring.PredictionPosition{Position: 3, DriverID: "PIA"})}
			b := scoring.Calculate(pred, classified(5), "")

			Convey("Then each entry is still scored but the podium fails", func() {
				So(countType(b, scoring.DetailPerfectPodium), ShouldEqual, 0)
				So(countType(b, scoring.DetailOffByOne), ShouldEqual, 1)
			})
		})

		Convey("When the winner is right but nothing else is", func() {
			pred := scoring.Prediction{Positions: []scoring.PredictionPosition{{Position: 1, DriverID: "VER"}}}
			b := scoring.Calculate(pred, classified(10), "")

			So(b.TotalScore, ShouldEqual, 45)
		})

		Convey("When the fastest lap is predicted but not recorded", func() {
			b := scoring.Calculate(scoring.Prediction{FastestLap: "VER"}, classified(3), "")
			So(b.TotalScore, ShouldEqual, 0)
		})

		Convey("When the fastest lap matches", func() {
			b := scoring.Calculate(scoring.Prediction{FastestLap: "NOR"}, classified(3), "NOR")
			So(b.TotalScore, ShouldEqual, 10)
			So(b.Details[0].Type, ShouldEqual, scoring.DetailFastestLap)
		})
	})
}

func TestCalculate_Properties(t *testing.T) {
	Convey("Given an empty prediction", t, func() {
		b := scoring.Calculate(scoring.Prediction{}, classified(10), "VER")

		Convey("Then the total is zero and details serialise as an empty list", func() {
			So(b.TotalScore, ShouldEqual, 0)
			So(b.Details, ShouldNotBeNil)
			raw, err := json.Marshal(b)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"total_score":0,"details":[]}`)
		})
	})

	Convey("Given a mix of hits and misses", t, func() {
		pred := scoring.Prediction{
			Positions: []scoring.PredictionPosition{
				{Position: 1, DriverID: "NOR"},
				{Position: 2, DriverID: "ZHO"},
				{Position: 3, DriverID: "LEC"},
				{Position: 8, DriverID: "OCO"},
				{Position: 9, DriverID: "BOT"},
			},
			FastestLap: "LEC",
			DNFs:       []string{"MAG"},
		}
		results := append(classified(12), scoring.Result{DriverID: "MAG", DNF: true})

		first := scoring.Calculate(pred, results, "LEC")

		Convey("Then the total equals the sum of the details", func() {
			So(first.TotalScore, ShouldEqual, sum(first))
		})

		Convey("And only position_miss lines are negative", func() {
			for _, d := range first.Details {
				if d.Points < 0 {
					So(d.Type, ShouldEqual, scoring.DetailPositionMiss)
				}
			}
			So(countType(first, scoring.DetailPositionMiss), ShouldEqual, 2)
		})

		Convey("And repeated calls are identical", func() {
			for i := 0; i < 5; i++ {
				So(scoring.Calculate(pred, results, "LEC"), ShouldResemble, first)
			}
		})

		Convey("And concurrent calls agree", func() {
			var wg sync.WaitGroup
			out := make([]scoring.Breakdown, 16)
			for i := range out {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					out[i] = scoring.Calculate(pred, results, "LEC")
				}(i)
			}
			wg.Wait()
			for _, b := range out {
				So(b, ShouldResemble, first)
			}
		})
	})
}

func TestEngine_Score(t *testing.T) {
	Convey("Given the engine behind the Scorer interface", t, func() {
		var s scoring.Scorer = scoring.NewEngine()
		in := scoring.Input{Prediction: scoring.Prediction{Positions: predictTop(10)}, Results: classified(10)}

		Convey("When the context is live", func() {
			b, err := s.Score(context.Background(), in)

			Convey("Then it matches Calculate", func() {
				So(err, ShouldBeNil)
				So(b, ShouldResemble, scoring.Calculate(in.Prediction, in.Results, ""))
				So(b.TotalScore, ShouldEqual, 250+30+50+100+20)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Score(ctx, in)

			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func ExampleCalculate() {
	b := scoring.Calculate(
		scoring.Prediction{Positions: []scoring.PredictionPosition{{Position: 1, DriverID: "VER"}}},
		[]scoring.Result{{DriverID: "VER", Position: scoring.IntPtr(1)}},
		"",
	)
	fmt.Println(b.TotalScore)
	// Output: 45
}
