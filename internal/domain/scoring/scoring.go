// Package scoring turns a race prediction and the official results into a
// points breakdown.
//
// Calculate is pure: it reads only its arguments, never fails and may be
// called from any number of goroutines.
package scoring

import (
	"context"
	"fmt"
	"sort"
)

// Point values.
const (
	PointsExactPosition = 25
	PointsOffByOne      = 15
	PointsOffByTwo      = 10
	PointsOffByThree    = 5
	PointsInTopTen      = 2
	PointsPositionMiss  = -5
	PointsPerfectPodium = 30
	PointsPerfectTop5   = 50
	PointsPerfectTop10  = 100
	PointsCorrectWinner = 20
	PointsFastestLap    = 10
	PointsCorrectDNF    = 15

	topTen = 10
)

// Calculate scores p against results. An empty fastestLapDriverID means no
// fastest lap was recorded.
func Calculate(p Prediction, results []Result, fastestLapDriverID string) Breakdown {
	positions := make(map[string]*int, len(results))
	dnfs := make(map[string]struct{})
	for _, r := range results {
		positions[r.DriverID] = r.Position
		if r.DNF {
			dnfs[r.DriverID] = struct{}{}
		}
	}

	details := make([]Detail, 0, len(p.Positions)+6)

	for _, pred := range p.Positions {
		actual, ok := positions[pred.DriverID]
		if !ok {
			details = append(details, Detail{
				Type:        DetailPositionMiss,
				Points:      PointsPositionMiss,
				Description: fmt.Sprintf("Driver not in top 10 at all: %d points", PointsPositionMiss),
			})
			continue
		}
		if actual == nil {
			continue
		}
		if d, ok := positionDetail(pred.Position, *actual); ok {
			details = append(details, d)
		}
	}

	if matchesTop(p.Positions, results, 3) {
		details = append(details, Detail{
			Type:        DetailPerfectPodium,
			Points:      PointsPerfectPodium,
			Description: fmt.Sprintf("Perfect podium prediction: +%d points", PointsPerfectPodium),
		})
	}
	if matchesTop(p.Positions, results, 5) {
		details = append(details, Detail{
			Type:        DetailPerfectTop5,
			Points:      PointsPerfectTop5,
			Description: fmt.Sprintf("Perfect top 5 prediction: +%d points", PointsPerfectTop5),
		})
	}
	if matchesTop(p.Positions, results, topTen) {
		details = append(details, Detail{
			Type:        DetailPerfectTop10,
			Points:      PointsPerfectTop10,
			Description: fmt.Sprintf("Perfect top 10 prediction: +%d points", PointsPerfectTop10),
		})
	}

	if winner, ok := predictedWinner(p.Positions); ok {
		if actual, ok := actualWinner(results); ok && winner == actual {
			details = append(details, Detail{
				Type:        DetailCorrectWinner,
				Points:      PointsCorrectWinner,
				Description: fmt.Sprintf("Correct race winner: +%d points", PointsCorrectWinner),
			})
		}
	}

	if p.FastestLap != "" && p.FastestLap == fastestLapDriverID {
		details = append(details, Detail{
			Type:        DetailFastestLap,
			Points:      PointsFastestLap,
			Description: fmt.Sprintf("Correct fastest lap prediction: +%d points", PointsFastestLap),
		})
	}

	for _, id := range p.DNFs {
		if _, ok := dnfs[id]; ok {
			details = append(details, Detail{
				Type:        DetailCorrectDNF,
				Points:      PointsCorrectDNF,
				Description: fmt.Sprintf("Correct DNF prediction: +%d points", PointsCorrectDNF),
			})
		}
	}

	total := 0
	for _, d := range details {
		total += d.Points
	}
	return Breakdown{TotalScore: total, Details: details}
}

func positionDetail(predicted, actual int) (Detail, bool) {
	diff := actual - predicted
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return Detail{DetailExactPosition, PointsExactPosition,
			fmt.Sprintf("Exact position match for position %d: +%d points", predicted, PointsExactPosition)}, true
	case diff == 1:
		return Detail{DetailOffByOne, PointsOffByOne,
			fmt.Sprintf("One position off for position %d: +%d points", predicted, PointsOffByOne)}, true
	case diff == 2:
		return Detail{DetailOffByTwo, PointsOffByTwo,
			fmt.Sprintf("Two positions off for position %d: +%d points", predicted, PointsOffByTwo)}, true
	case diff == 3:
		return Detail{DetailOffByThree, PointsOffByThree,
			fmt.Sprintf("Three positions off for position %d: +%d points", predicted, PointsOffByThree)}, true
	case actual <= topTen:
		return Detail{DetailInTopTen, PointsInTopTen,
			fmt.Sprintf("Driver in top 10 but wrong spot: +%d points", PointsInTopTen)}, true
	}
	return Detail{}, false
}

// matchesTop reports whether the predicted top n and the classified top n
// both have exactly n entries naming the same drivers in the same order.
func matchesTop(preds []PredictionPosition, results []Result, n int) bool {
	predicted := make([]PredictionPosition, 0, n)
	for _, p := range preds {
		if p.Position <= n {
			predicted = append(predicted, p)
		}
	}
	if len(predicted) != n {
		return false
	}

	actual := make([]Result, 0, n)
	for _, r := range results {
		if r.Position != nil && *r.Position <= n {
			actual = append(actual, r)
		}
	}
	if len(actual) != n {
		return false
	}

	sort.SliceStable(predicted, func(i, j int) bool { return predicted[i].Position < predicted[j].Position })
	sort.SliceStable(actual, func(i, j int) bool { return *actual[i].Position < *actual[j].Position })

	for i := range predicted {
		if predicted[i].DriverID != actual[i].DriverID {
			return false
		}
	}
	return true
}

func predictedWinner(preds []PredictionPosition) (string, bool) {
	for _, p := range preds {
		if p.Position == 1 {
			return p.DriverID, true
		}
	}
	return "", false
}

func actualWinner(results []Result) (string, bool) {
	for _, r := range results {
		if r.Position != nil && *r.Position == 1 {
			return r.DriverID, true
		}
	}
	return "", false
}

// Input bundles the arguments of Calculate for callers that go through the
// Scorer interface.
type Input struct {
	Prediction         Prediction
	Results            []Result
	FastestLapDriverID string
}

// Scorer scores a bet. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, in Input) (Breakdown, error)
}

// Engine is the Scorer backed by Calculate.
type Engine struct{}

// NewEngine returns the default Scorer.
func NewEngine() *Engine { return &Engine{} }

// Score runs Calculate unless ctx is already done.
func (Engine) Score(ctx context.Context, in Input) (Breakdown, error) {
	if err := ctx.Err(); err != nil {
		return Breakdown{}, err
	}
	return Calculate(in.Prediction, in.Results, in.FastestLapDriverID), nil
}
