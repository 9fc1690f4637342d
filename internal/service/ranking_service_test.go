package service

import (
	"testing"
	"time"

	"github.com/lshigami/Margays/internal/model"
)

func terminalAttempt(id uint, score float64, submittedAt time.Time) model.Attempt {
	a := model.Attempt{State: model.AttemptSubmitted, TotalMarksObtained: &score, SubmittedAt: &submittedAt}
	a.ID = id
	return a
}

func TestComputeStandingsOrdersByScoreDescending(t *testing.T) {
	ranking := NewRankingService(nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	attempts := []model.Attempt{
		terminalAttempt(1, 40, base),
		terminalAttempt(2, 90, base.Add(time.Minute)),
		terminalAttempt(3, 70, base.Add(2*time.Minute)),
	}

	standings := ranking.ComputeStandings(attempts)

	wantOrder := []struct {
		attemptID uint
		rank      int
	}{{2, 1}, {3, 2}, {1, 3}}

	for i, want := range wantOrder {
		if standings[i].AttemptID != want.attemptID || standings[i].Rank != want.rank {
			t.Errorf("standings[%d] = {attempt %d, rank %d}, want {attempt %d, rank %d}",
				i, standings[i].AttemptID, standings[i].Rank, want.attemptID, want.rank)
		}
	}
}

func TestComputeStandingsBreaksTiesByEarlierSubmission(t *testing.T) {
	ranking := NewRankingService(nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	attempts := []model.Attempt{
		terminalAttempt(1, 80, base.Add(time.Hour)), // later finisher
		terminalAttempt(2, 80, base),                // earlier finisher wins the tie
	}

	standings := ranking.ComputeStandings(attempts)

	if standings[0].AttemptID != 2 || standings[0].Rank != 1 {
		t.Errorf("earlier submission should rank first, got %+v", standings[0])
	}
	if standings[1].AttemptID != 1 || standings[1].Rank != 2 {
		t.Errorf("later submission should rank second, got %+v", standings[1])
	}
}

func TestComputeStandingsPercentileCountsStrictlyLower(t *testing.T) {
	ranking := NewRankingService(nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	attempts := []model.Attempt{
		terminalAttempt(1, 90, base),
		terminalAttempt(2, 70, base),
		terminalAttempt(3, 70, base.Add(time.Minute)),
		terminalAttempt(4, 50, base),
	}

	standings := ranking.ComputeStandings(attempts)

	want := map[uint]float64{
		1: 75, // 3 of 4 strictly lower
		2: 25, // only the 50 is strictly lower
		3: 25, // tie with attempt 2: same percentile, different rank
		4: 0,
	}

	for _, s := range standings {
		if s.Percentile != want[s.AttemptID] {
			t.Errorf("attempt %d percentile = %v, want %v", s.AttemptID, s.Percentile, want[s.AttemptID])
		}
	}
}

func TestComputeStandingsSingleAttempt(t *testing.T) {
	ranking := NewRankingService(nil)
	attempts := []model.Attempt{terminalAttempt(7, 55, time.Now())}

	standings := ranking.ComputeStandings(attempts)

	if len(standings) != 1 || standings[0].Rank != 1 || standings[0].Percentile != 0 {
		t.Errorf("single attempt should be rank 1 percentile 0, got %+v", standings)
	}
}

func TestComputeStandingsEmptyPopulation(t *testing.T) {
	ranking := NewRankingService(nil)
	if standings := ranking.ComputeStandings(nil); standings != nil {
		t.Errorf("empty population should produce no standings, got %+v", standings)
	}
}

func TestComputeStandingsExpiredAttemptWithoutSubmissionSortsLastAmongTies(t *testing.T) {
	ranking := NewRankingService(nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	score := 60.0
	expired := model.Attempt{State: model.AttemptExpired, TotalMarksObtained: &score}
	expired.ID = 1
	submitted := terminalAttempt(2, 60, base)

	standings := ranking.ComputeStandings([]model.Attempt{expired, submitted})

	if standings[0].AttemptID != 2 {
		t.Errorf("attempt with a submission timestamp should win the tie, got %+v", standings)
	}
}

func TestComputeStandingsDoesNotMutateInput(t *testing.T) {
	ranking := NewRankingService(nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	attempts := []model.Attempt{
		terminalAttempt(1, 10, base),
		terminalAttempt(2, 99, base),
	}

	ranking.ComputeStandings(attempts)

	if attempts[0].ID != 1 || attempts[1].ID != 2 {
		t.Error("input slice order must not change")
	}
}
