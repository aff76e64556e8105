package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/fluzio/mission-service/internal/domain"
	"github.com/fluzio/mission-service/internal/store"
)

func TestRecommendPauseOverridesRaise(t *testing.T) {
	// A visible mission nobody completes is not fixed by price: the pause rule
	// wins even though the analyzer suggested a raise.
	rec := recommend(domain.MissionPerformance{
		MissionID:         uuid.New(),
		CurrentPoints:     100,
		SuggestedPoints:   150,
		TotalParticipants: 25,
		EstimatedViews:    75,
		CompletionRate:    2.7,
	})
	if rec.Action != domain.ActionPause {
		t.Fatalf("expected PAUSE, got %s", rec.Action)
	}
	if rec.Confidence != 75 {
		t.Fatalf("expected confidence 75, got %d", rec.Confidence)
	}
}

func TestRecommendPauseNeedsVisibility(t *testing.T) {
	// Low completion with few estimated views is just a young mission; the
	// suggested raise goes through instead of a pause.
	rec := recommend(domain.MissionPerformance{
		MissionID:         uuid.New(),
		CurrentPoints:     100,
		SuggestedPoints:   150,
		TotalParticipants: 15,
		EstimatedViews:    45,
		CompletionRate:    2.2,
	})
	if rec.Action != domain.ActionIncrease {
		t.Fatalf("expected INCREASE, got %s", rec.Action)
	}
}

func TestRecommendIncreaseConfidenceScalesWithSample(t *testing.T) {
	perf := domain.MissionPerformance{
		MissionID:       uuid.New(),
		CurrentPoints:   100,
		SuggestedPoints: 150,
		EstimatedViews:  45,
		CompletionRate:  15,
	}

	perf.TotalParticipants = 15
	if rec := recommend(perf); rec.Action != domain.ActionIncrease || rec.Confidence != 60 {
		t.Fatalf("expected INCREASE at confidence 60 for a small sample, got %s/%d", rec.Action, rec.Confidence)
	}

	perf.TotalParticipants = 25
	if rec := recommend(perf); rec.Action != domain.ActionIncrease || rec.Confidence != 80 {
		t.Fatalf("expected INCREASE at confidence 80 for a large sample, got %s/%d", rec.Action, rec.Confidence)
	}
}

func TestRecommendDecreaseConfidenceScalesWithSample(t *testing.T) {
	perf := domain.MissionPerformance{
		MissionID:       uuid.New(),
		CurrentPoints:   150,
		SuggestedPoints: 135,
		EstimatedViews:  90,
		CompletionRate:  23,
	}

	perf.TotalParticipants = 18
	if rec := recommend(perf); rec.Action != domain.ActionDecrease || rec.Confidence != 65 {
		t.Fatalf("expected DECREASE at confidence 65 for a small sample, got %s/%d", rec.Action, rec.Confidence)
	}

	perf.TotalParticipants = 30
	if rec := recommend(perf); rec.Action != domain.ActionDecrease || rec.Confidence != 85 {
		t.Fatalf("expected DECREASE at confidence 85 for a large sample, got %s/%d", rec.Action, rec.Confidence)
	}
}

func TestRecommendKeepWithinTriggers(t *testing.T) {
	// A suggested delta inside the +-15%/-5% window is noise, not a signal.
	rec := recommend(domain.MissionPerformance{
		MissionID:       uuid.New(),
		CurrentPoints:   100,
		SuggestedPoints: 110,
		EstimatedViews:  60,
		CompletionRate:  35,
	})
	if rec.Action != domain.ActionKeep {
		t.Fatalf("expected KEEP, got %s", rec.Action)
	}
	if rec.Confidence != 70 {
		t.Fatalf("expected confidence 70, got %d", rec.Confidence)
	}
}

type pricingRepoStub struct {
	store.Repository

	active           []domain.Mission
	participations   map[uuid.UUID][]domain.Participation
	participationErr map[uuid.UUID]error
}

func (s *pricingRepoStub) FindActiveMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error) {
	return s.active, nil
}

func (s *pricingRepoStub) FindParticipationsByMission(ctx context.Context, missionID uuid.UUID) ([]domain.Participation, error) {
	if err, ok := s.participationErr[missionID]; ok {
		return nil, err
	}
	return s.participations[missionID], nil
}

func TestBusinessRecommendationsSkipsUnreadableMissions(t *testing.T) {
	healthyID := uuid.New()
	brokenID := uuid.New()
	repo := &pricingRepoStub{
		active: []domain.Mission{
			{ID: healthyID, RewardPoints: 100, LifecycleStatus: domain.StatusActive},
			{ID: brokenID, RewardPoints: 100, LifecycleStatus: domain.StatusActive},
		},
		participations:   map[uuid.UUID][]domain.Participation{healthyID: participationSet(10, 15, 20)},
		participationErr: map[uuid.UUID]error{brokenID: errors.New("read timeout")},
	}
	svc := NewService(repo, nil, nil, nil, DefaultAnalyzerConfig(), DefaultEstimatorConfig())

	recs, err := svc.BusinessRecommendations(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected the unreadable mission to be skipped, got %d recommendations", len(recs))
	}
	if recs[0].MissionID != healthyID {
		t.Fatalf("expected the healthy mission's recommendation, got %s", recs[0].MissionID)
	}
}

func TestBusinessRecommendationsEndToEnd(t *testing.T) {
	// 25 participants with 10 completions at 100 points: the analyzer suggests
	// 125, which clears the +15% trigger, and the large sample lifts confidence.
	missionID := uuid.New()
	repo := &pricingRepoStub{
		active: []domain.Mission{
			{ID: missionID, RewardPoints: 100, LifecycleStatus: domain.StatusActive},
		},
		participations: map[uuid.UUID][]domain.Participation{missionID: participationSet(10, 15, 20)},
	}
	svc := NewService(repo, nil, nil, nil, DefaultAnalyzerConfig(), DefaultEstimatorConfig())

	recs, err := svc.BusinessRecommendations(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(recs))
	}
	rec := recs[0]
	if rec.SuggestedPoints != 125 {
		t.Fatalf("expected a suggested reward of 125, got %d", rec.SuggestedPoints)
	}
	if rec.Action != domain.ActionIncrease {
		t.Fatalf("expected INCREASE, got %s", rec.Action)
	}
	if rec.Confidence != 80 {
		t.Fatalf("expected confidence 80 for a large sample, got %d", rec.Confidence)
	}
}
