package scoring

// PredictionPosition is one predicted finishing slot.
type PredictionPosition struct {
	Position int    `json:"position"`
	DriverID string `json:"driver_id"`
}

// Prediction is a user's full bet on a race. An empty FastestLap means the
// user did not pick one.
type Prediction struct {
	Positions  []PredictionPosition `json:"positions"`
	FastestLap string               `json:"fastest_lap,omitempty"`
	DNFs       []string             `json:"dnfs,omitempty"`
}

// Result is one driver's official outcome. A nil Position means the driver
// did not finish or was not classified.
type Result struct {
	DriverID   string `json:"driver_id"`
	Position   *int   `json:"position"`
	DNF        bool   `json:"dnf"`
	FastestLap bool   `json:"fastest_lap"`
}

// DetailType tags a single scoring line.
type DetailType string

// Detail types emitted by the engine.
const (
	DetailExactPosition DetailType = "exact_position"
	DetailOffByOne      DetailType = "off_by_one"
	DetailOffByTwo      DetailType = "off_by_two"
	DetailOffByThree    DetailType = "off_by_three"
	DetailInTopTen      DetailType = "in_top_ten"
	DetailPositionMiss  DetailType = "position_miss"
	DetailPerfectPodium DetailType = "perfect_podium"
	DetailPerfectTop5   DetailType = "perfect_top_5"
	DetailPerfectTop10  DetailType = "perfect_top_10"
	DetailCorrectWinner DetailType = "correct_winner"
	DetailFastestLap    DetailType = "fastest_lap"
	DetailCorrectDNF    DetailType = "correct_dnf"
)

// Detail is one line of a score breakdown.
type Detail struct {
	Type        DetailType `json:"type"`
	Points      int        `json:"points"`
	Description string     `json:"description"`
}

// Breakdown is the full scoring result for one bet.
type Breakdown struct {
	TotalScore int      `json:"total_score"`
	Details    []Detail `json:"details"`
}

// DetailTypes lists the type of every line, in order.
func (b Breakdown) DetailTypes() []string {
	out := make([]string, len(b.Details))
	for i, d := range b.Details {
		out[i] = string(d.Type)
	}
	return out
}

// IntPtr is a convenience for building Results.
func IntPtr(v int) *int { return &v }
