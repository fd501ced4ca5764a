package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/domain/betting"
	"github.com/okian/pitwall/internal/domain/scoring"
)

func newScoreCommand(a *app) *cobra.Command {
	var predictionFile, resultsFile, fastestLap string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a prediction against results offline.",
		Long: `Score reads a prediction and an official classification from JSON files and prints the breakdown.

The prediction file holds {"positions":[{"position":1,"driver_id":"VER"}],"fastest_lap":"VER","dnfs":["SAR"]}.
The results file holds [{"driver_id":"VER","position":1,"fastest_lap":true},{"driver_id":"SAR","position":null,"dnf":true}].`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var p scoring.Prediction
			if err := readJSON(predictionFile, &p); err != nil {
				return fmt.Errorf("prediction: %w", err)
			}
			var results []scoring.Result
			if err := readJSON(resultsFile, &results); err != nil {
				return fmt.Errorf("results: %w", err)
			}
			if fastestLap == "" {
				fastestLap = betting.FastestLapFromResults(results)
			}
			if err := betting.ValidatePrediction(p, betting.Rules{}); err != nil {
				return err
			}
			cleaned, err := betting.ValidateResults(results, fastestLap)
			if err != nil {
				return err
			}
			return a.printBreakdown(scoring.Calculate(p, cleaned, fastestLap))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&predictionFile, "prediction", "p", "", "prediction JSON file")
	f.StringVarP(&resultsFile, "results", "r", "", "results JSON file")
	f.StringVar(&fastestLap, "fastest-lap", "", "fastest lap driver ID (default: the result flagged fastest_lap)")
	_ = cmd.MarkFlagRequired("prediction")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (a *app) printBreakdown(b scoring.Breakdown) error {
	width := max(terminalWidth(a.out)-40, minNameWidth)
	rows := make([][]string, len(b.Details))
	for i, d := range b.Details {
		rows[i] = []string{string(d.Type), pointsLabel(d.Points), truncate(d.Description, width)}
	}
	if err := renderTable(a.out, []string{"Rule", "Points", "Description"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "Total: %d points\n", b.TotalScore)
	return err
}
