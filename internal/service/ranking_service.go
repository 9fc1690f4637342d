package service

import (
	"context"
	"sort"
	"time"

	"github.com/lshigami/Margays/internal/model"
	"github.com/lshigami/Margays/internal/repository"
	"github.com/rs/zerolog/log"
)

// RankingService recomputes rank and percentile over an exam's finished
// attempt population. It runs off the submit critical path: callers fire it
// asynchronously after finalization, and a failure here never rolls back a
// scoring transaction.
type RankingService interface {
	// ComputeStandings ranks terminal attempts: score descending, ties broken
	// by earlier submission. Percentile is the share of attempts scoring
	// strictly lower. Pure; exported for direct use in tests and batch jobs.
	ComputeStandings(attempts []model.Attempt) []repository.AttemptStanding

	// RecomputeExam reloads the exam's population, recomputes standings and
	// persists them, bounded by the given timeout.
	RecomputeExam(examID uint, timeout time.Duration)
}

type rankingService struct {
	attemptRepo repository.AttemptRepository
}

func NewRankingService(attemptRepo repository.AttemptRepository) RankingService {
	return &rankingService{attemptRepo: attemptRepo}
}

func (s *rankingService) ComputeStandings(attempts []model.Attempt) []repository.AttemptStanding {
	if len(attempts) == 0 {
		return nil
	}

	ranked := append([]model.Attempt(nil), attempts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := attemptScore(&ranked[i]), attemptScore(&ranked[j])
		if si != sj {
			return si > sj
		}
		return submittedBefore(&ranked[i], &ranked[j])
	})

	total := len(ranked)
	standings := make([]repository.AttemptStanding, 0, total)
	for i, a := range ranked {
		lower := 0
		score := attemptScore(&a)
		for _, other := range ranked {
			if attemptScore(&other) < score {
				lower++
			}
		}
		standings = append(standings, repository.AttemptStanding{
			AttemptID:  a.ID,
			Rank:       i + 1,
			Percentile: roundHalfUp(float64(lower)/float64(total)*100, 2),
		})
	}
	return standings
}

func (s *rankingService) RecomputeExam(examID uint, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	attempts, err := s.attemptRepo.FindTerminalByExam(ctx, examID)
	if err != nil {
		log.Error().Err(err).Uint("examID", examID).Msg("Ranking: failed to load attempt population")
		return
	}
	standings := s.ComputeStandings(attempts)
	if len(standings) == 0 {
		return
	}
	if err := s.attemptRepo.UpdateStandings(ctx, standings); err != nil {
		log.Error().Err(err).Uint("examID", examID).Msg("Ranking: failed to persist standings")
		return
	}
	log.Info().Uint("examID", examID).Int("population", len(standings)).Msg("Ranking recomputed")
}

func attemptScore(a *model.Attempt) float64 {
	if a.TotalMarksObtained == nil {
		return 0
	}
	return *a.TotalMarksObtained
}

// submittedBefore favors the earlier finisher; attempts without a submission
// timestamp sort last among equals.
func submittedBefore(a, b *model.Attempt) bool {
	switch {
	case a.SubmittedAt == nil:
		return false
	case b.SubmittedAt == nil:
		return true
	default:
		return a.SubmittedAt.Before(*b.SubmittedAt)
	}
}
