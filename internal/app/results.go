package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/betting"
	"github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

const notifyTimeout = 10 * time.Second

// Report summarises one scoring run over a race's bets.
type Report struct {
	RaceID     string       `json:"race_id"`
	Revision   int          `json:"results_revision"`
	Bets       int          `json:"bets"`
	Scored     int          `json:"scored"`
	Pending    int          `json:"pending"`
	Failed     []BetFailure `json:"failed"`
	DurationMS int64        `json:"duration_ms"`
}

// BetFailure explains why one bet was not scored.
type BetFailure struct {
	BetID  string `json:"bet_id"`
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// SubmitResults stores the official classification for a race, scores
// every bet on it and waits for the outcome. An empty fastestLap is taken
// from the result flagged with FastestLap.
//
// A bet that cannot be scored is reported in Failed and never stops the
// others. Jobs still running when the submission timeout expires are
// counted in Pending and finish in the background.
//
// While a submission is being scored, the same classification for the same
// race is refused with ErrConflict, so a retried request cannot start a
// second fan-out over the same bets.
func (s *Service) SubmitResults(ctx context.Context, raceID string, results []scoring.Result, fastestLap string) (Report, error) {
	if err := s.running(); err != nil {
		return Report{}, err
	}
	if fastestLap == "" {
		fastestLap = betting.FastestLapFromResults(results)
	}
	cleaned, err := betting.ValidateResults(results, fastestLap)
	if err != nil {
		return Report{}, err
	}

	key := dedupe.SubmissionKey(raceID, cleaned, fastestLap)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmissionDuplicate()
		return Report{}, fmt.Errorf("%w: identical results for race %s are already being scored", ErrConflict, raceID)
	}
	defer s.deduper.Unrecord(ctx, key)

	race, err := s.store.ReplaceResults(ctx, raceID, cleaned, fastestLap)
	if err != nil {
		return Report{}, err
	}
	s.submissions.Add(1)
	metrics.RecordResultSubmission()
	s.logger.Info(ctx, "results stored",
		logger.String("race_id", race.ID),
		logger.Int("revision", race.ResultsRevision),
		logger.Int("results", len(cleaned)))

	return s.scoreRace(ctx, race, cleaned)
}

// RescoreRace scores every bet again using the stored results. The run gets
// a fresh results revision.
func (s *Service) RescoreRace(ctx context.Context, raceID string) (Report, error) {
	if err := s.running(); err != nil {
		return Report{}, err
	}
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return Report{}, err
	}
	if !race.IsCompleted {
		return Report{}, fmt.Errorf("%w: race %s has no results", ErrInvalidResults, raceID)
	}
	results, err := s.store.Results(ctx, raceID)
	if err != nil {
		return Report{}, err
	}
	return s.SubmitResults(ctx, raceID, results, race.FastestLapDriverID)
}

func (s *Service) scoreRace(ctx context.Context, race model.Race, results []scoring.Result) (Report, error) {
	start := time.Now()
	report := Report{RaceID: race.ID, Revision: race.ResultsRevision, Failed: []BetFailure{}}

	bets, err := s.store.BetsForRace(ctx, race.ID)
	if err != nil {
		return report, err
	}
	report.Bets = len(bets)

	waitCtx, cancel := context.WithTimeout(ctx, s.submissionTimeout)
	defer cancel()

	// buffered for every job so workers never block on a caller that left
	reply := make(chan model.JobOutcome, len(bets))
	pending := 0

	for _, bet := range bets {
		job := model.ScoringJob{
			Key:                dedupe.JobKey(race.ID, bet.ID, race.ResultsRevision),
			BetID:              bet.ID,
			UserID:             bet.UserID,
			RaceID:             race.ID,
			Season:             race.Season,
			Revision:           race.ResultsRevision,
			Prediction:         bet.Prediction,
			Results:            results,
			FastestLapDriverID: race.FastestLapDriverID,
			Reply:              reply,
		}
		if err := s.queue.EnqueueWait(waitCtx, job); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = ErrQueueFull
			}
			report.Failed = append(report.Failed, BetFailure{BetID: bet.ID, UserID: bet.UserID, Error: err.Error()})
			continue
		}
		pending++
	}

wait:
	for pending > 0 {
		select {
		case out := <-reply:
			pending--
			if out.Err != nil {
				report.Failed = append(report.Failed, BetFailure{BetID: out.BetID, UserID: out.UserID, Error: out.Err.Error()})
				continue
			}
			report.Scored++
		case <-waitCtx.Done():
			break wait
		}
	}
	report.Pending = pending
	report.DurationMS = time.Since(start).Milliseconds()

	fields := []logger.Field{
		logger.String("race_id", race.ID),
		logger.Int("revision", race.ResultsRevision),
		logger.Int("bets", report.Bets),
		logger.Int("scored", report.Scored),
		logger.Int("failed", len(report.Failed)),
		logger.Int("pending", report.Pending),
		logger.Int64("duration_ms", report.DurationMS),
	}
	if len(report.Failed) > 0 || report.Pending > 0 {
		s.logger.Warn(ctx, "race scored with problems", fields...)
	} else {
		s.logger.Info(ctx, "race scored", fields...)
	}

	s.notify(ctx, race, report)
	return report, nil
}

func (s *Service) notify(ctx context.Context, race model.Race, report Report) {
	if s.notifier == nil {
		return
	}
	top, err := s.Leaderboard(ctx, repository.RaceBoard(race.ID), 3)
	if err != nil {
		s.logger.Warn(ctx, "notify: leaderboard unavailable", logger.Error(err))
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.RaceScored(nctx, race, report, top); err != nil {
		metrics.RecordErrorByComponent("notifier", "send")
		s.logger.Warn(ctx, "notify failed", logger.String("race_id", race.ID), logger.Error(err))
	}
}
