// Package export writes scored bets to Parquet or CSV for offline analysis.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/pitwall/internal/domain/model"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatParquet, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath guesses the format from a file extension, defaulting to
// Parquet.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return FormatCSV
	}
	return FormatParquet
}

// Write encodes rows to w.
func Write(w io.Writer, f Format, rows []model.ScoredBet) error {
	switch f {
	case FormatParquet:
		return WriteParquet(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile creates path and writes rows to it.
func WriteFile(path string, f Format, rows []model.ScoredBet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, f, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteParquet writes rows with the schema derived from model.ScoredBet.
func WriteParquet(w io.Writer, rows []model.ScoredBet) error {
	writer := parquet.NewGenericWriter[model.ScoredBet](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

var csvHeader = []string{"bet_id", "user_id", "user_name", "race_id", "race_name", "season", "round", "score", "scored_at"}

// WriteCSV writes rows with a header line. Timestamps are RFC 3339 in UTC.
func WriteCSV(w io.Writer, rows []model.ScoredBet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.BetID, r.UserID, r.UserName, r.RaceID, r.RaceName,
			strconv.Itoa(r.Season), strconv.Itoa(r.Round), strconv.Itoa(r.Score),
			r.ScoredAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
