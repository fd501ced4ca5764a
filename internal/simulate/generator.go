package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/pitwall/internal/domain/betting"
	"github.com/okian/pitwall/internal/domain/scoring"
)

// dnfRate is the share of the grid that retires in generated results.
const dnfRate = 0.15

type generator struct {
	rng     *rand.Rand
	drivers []string
}

func newGenerator(seed uint64, drivers []string) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed>>1|1)), drivers: drivers}
}

func (g *generator) shuffled() []string {
	out := append([]string(nil), g.drivers...)
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// prediction fills the first n positions and sometimes picks a fastest lap
// and a DNF.
func (g *generator) prediction(n int) scoring.Prediction {
	order := g.shuffled()
	n = min(n, len(order))
	p := scoring.Prediction{Positions: make([]scoring.PredictionPosition, n)}
	for i := range n {
		p.Positions[i] = scoring.PredictionPosition{Position: i + 1, DriverID: order[i]}
	}
	if g.rng.IntN(2) == 0 {
		p.FastestLap = order[g.rng.IntN(n)]
	}
	if n < len(order) && g.rng.IntN(3) == 0 {
		p.DNFs = []string{order[n+g.rng.IntN(len(order)-n)]}
	}
	return p
}

// results classifies the whole grid, retiring roughly dnfRate of it, and
// returns the fastest lap holder.
func (g *generator) results() ([]scoring.Result, string) {
	order := g.shuffled()
	dnfs := int(float64(len(order)) * dnfRate)
	finishers := min(len(order)-dnfs, betting.MaxPosition)
	out := make([]scoring.Result, len(order))
	for i, id := range order {
		if i < finishers {
			out[i] = scoring.Result{DriverID: id, Position: scoring.IntPtr(i + 1)}
			continue
		}
		out[i] = scoring.Result{DriverID: id, DNF: true}
	}
	fastest := order[g.rng.IntN(max(finishers, 1))]
	return out, fastest
}

func userID(i int) string { return fmt.Sprintf("sim-%05d", i) }
