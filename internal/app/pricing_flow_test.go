package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fluzio/mission-service/internal/domain"
	"github.com/fluzio/mission-service/internal/store"
)

// flowRepoStub is a stateful in-memory store: decisions mutate the stored
// participation and an approval bumps the mission counter, mirroring the
// single-transaction contract of the Postgres implementation.
type flowRepoStub struct {
	store.Repository

	mission        *domain.Mission
	participations map[uuid.UUID]*domain.Participation
}

func newFlowRepoStub(mission *domain.Mission) *flowRepoStub {
	return &flowRepoStub{
		mission:        mission,
		participations: make(map[uuid.UUID]*domain.Participation),
	}
}

func (s *flowRepoStub) FindMissionByID(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	if s.mission == nil || s.mission.ID != missionID {
		return nil, store.ErrMissionNotFound
	}
	copied := *s.mission
	return &copied, nil
}

func (s *flowRepoStub) FindActiveMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error) {
	if s.mission == nil || s.mission.BusinessID != businessID || !s.mission.IsActive {
		return nil, nil
	}
	return []domain.Mission{*s.mission}, nil
}

func (s *flowRepoStub) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	copied := *p
	s.participations[p.ID] = &copied
	return nil
}

func (s *flowRepoStub) FindParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error) {
	p, ok := s.participations[participationID]
	if !ok {
		return nil, store.ErrParticipationNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *flowRepoStub) FindParticipationsByMission(ctx context.Context, missionID uuid.UUID) ([]domain.Participation, error) {
	var out []domain.Participation
	for _, p := range s.participations {
		if p.MissionID == missionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *flowRepoStub) UpdateParticipationDecision(ctx context.Context, participationID uuid.UUID, decision domain.ParticipationStatus, decidedAt time.Time, points int) error {
	p, ok := s.participations[participationID]
	if !ok {
		return store.ErrParticipationNotFound
	}
	if p.Status != domain.ParticipationPending {
		return store.ErrAlreadyDecided
	}
	p.Status = decision
	if decision == domain.ParticipationApproved {
		p.Points = points
		t := decidedAt
		p.ApprovedAt = &t
		s.mission.CurrentParticipants++
	} else {
		p.Points = 0
		p.ApprovedAt = nil
	}
	return nil
}

func TestParticipationToPricingFlow(t *testing.T) {
	// One mission at 50 points. Three creators apply, two are approved and one
	// is rejected, then the analyzer and the recommendation engine run over the
	// resulting history. With only three participants any verdict must stay at
	// small-sample confidence.
	businessID := uuid.New()
	missionID := uuid.New()
	repo := newFlowRepoStub(&domain.Mission{
		ID:              missionID,
		BusinessID:      businessID,
		Title:           "Share a photo of your visit",
		MissionType:     domain.TypePhotoShare,
		RewardPoints:    50,
		LifecycleStatus: domain.StatusActive,
		IsActive:        true,
	})
	ledger := &ledgerStub{}
	producer := &recordingPublisher{}
	svc := NewService(repo, ledger, nil, producer, DefaultAnalyzerConfig(), DefaultEstimatorConfig())

	ctx := context.Background()
	var applied []*domain.Participation
	for i := 0; i < 3; i++ {
		p, err := svc.ApplyToMission(ctx, missionID, uuid.New())
		if err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
		applied = append(applied, p)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.ApproveParticipation(ctx, applied[i].ID, businessID); err != nil {
			t.Fatalf("approve %d failed: %v", i, err)
		}
	}
	if _, err := svc.RejectParticipation(ctx, applied[2].ID, businessID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if len(ledger.calls) != 2 {
		t.Fatalf("expected two 50-point credits, got %+v", ledger.calls)
	}
	for _, call := range ledger.calls {
		if call.points != 50 {
			t.Fatalf("expected a 50-point credit, got %d", call.points)
		}
	}
	if repo.mission.CurrentParticipants != 2 {
		t.Fatalf("expected the counter to track the two approvals, got %d", repo.mission.CurrentParticipants)
	}

	perf, err := svc.AnalyzeMission(ctx, missionID)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if perf.TotalParticipants != 3 {
		t.Fatalf("expected 3 total participants, got %d", perf.TotalParticipants)
	}
	if perf.CompletedCount != 2 {
		t.Fatalf("expected 2 completions, got %d", perf.CompletedCount)
	}
	if perf.EstimatedViews != 9 {
		t.Fatalf("expected 3x3=9 estimated views, got %d", perf.EstimatedViews)
	}

	recs, err := svc.BusinessRecommendations(ctx, businessID)
	if err != nil {
		t.Fatalf("recommendations failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(recs))
	}
	if recs[0].Confidence > 65 {
		t.Fatalf("three participants is a small sample; confidence must stay at or below 65, got %d", recs[0].Confidence)
	}
}
