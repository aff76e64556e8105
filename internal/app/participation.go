/**
 * @description
 * Participation workflow: apply -> pending -> approve/reject, plus the
 * point-award side effect on approval. All state checks read the authoritative
 * store, and the single decision write is conditional on PENDING so concurrent
 * decisions on the same participation resolve to exactly one winner.
 *
 * The participant-counter bump lives inside the decision write's transaction;
 * only the ledger credit runs after it. A failed ledger credit is compensated
 * by a reconciliation event rather than by rolling the decision back; the
 * ledger is an external collaborator and the decision itself must stay
 * immutable once made.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
)

// ApplyToMission creates a PENDING participation for a creator. The mission
// must be ACTIVE per the authoritative store, and the participant cap (when
// set) must not be exhausted.
func (s *Service) ApplyToMission(ctx context.Context, missionID, userID uuid.UUID) (*domain.Participation, error) {
	mission, err := s.repo.FindMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.LifecycleStatus != domain.StatusActive {
		return nil, ErrMissionInactive
	}
	if mission.MaxParticipants > 0 && mission.CurrentParticipants >= mission.MaxParticipants {
		return nil, ErrMissionFull
	}

	participation := &domain.Participation{
		ID:         uuid.New(),
		MissionID:  mission.ID,
		UserID:     userID,
		BusinessID: mission.BusinessID,
		Status:     domain.ParticipationPending,
		AppliedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateParticipation(ctx, participation); err != nil {
		return nil, fmt.Errorf("failed to create participation: %w", err)
	}

	log.Printf("level=info component=participation msg=\"application created\" participation_id=%s mission_id=%s user_id=%s", participation.ID, mission.ID, userID)
	return participation, nil
}

// ApproveParticipation decides a pending participation in the acting business's
// favor: snapshots the mission's current reward and credits the creator's point
// balance. The decision write and the participant-counter bump are one store
// transaction, so the counter cannot drift from the decided participations.
func (s *Service) ApproveParticipation(ctx context.Context, participationID, actingBusinessID uuid.UUID) (*domain.Participation, error) {
	participation, err := s.repo.FindParticipationByID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if participation.BusinessID != actingBusinessID {
		return nil, ErrNotMissionOwner
	}

	// Snapshot the reward from the authoritative mission record, not any cache.
	mission, err := s.repo.FindMissionByID(ctx, participation.MissionID)
	if err != nil {
		return nil, err
	}

	decidedAt := time.Now().UTC()
	if err := s.repo.UpdateParticipationDecision(ctx, participationID, domain.ParticipationApproved, decidedAt, mission.RewardPoints); err != nil {
		return nil, err
	}

	participation.Status = domain.ParticipationApproved
	participation.ApprovedAt = &decidedAt
	participation.Points = mission.RewardPoints

	if s.ledger != nil && mission.RewardPoints > 0 {
		if err := s.ledger.IncrementPoints(ctx, participation.UserID, mission.RewardPoints, fmt.Sprintf("mission %s approved", mission.ID)); err != nil {
			log.Printf("level=error component=participation msg=\"CRITICAL: point award failed after approval\" participation_id=%s user_id=%s points=%d err=%v", participationID, participation.UserID, mission.RewardPoints, err)
			s.publishAwardFailed(ctx, participation, err)
		}
	}

	s.invalidateCache(ctx, mission.ID)
	s.publishDecisionEvent(ctx, participation, "participation.approved")
	return participation, nil
}

// RejectParticipation decides a pending participation against the creator.
// No points are awarded and the participant counter is untouched.
func (s *Service) RejectParticipation(ctx context.Context, participationID, actingBusinessID uuid.UUID) (*domain.Participation, error) {
	participation, err := s.repo.FindParticipationByID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if participation.BusinessID != actingBusinessID {
		return nil, ErrNotMissionOwner
	}

	if err := s.repo.UpdateParticipationDecision(ctx, participationID, domain.ParticipationRejected, time.Now().UTC(), 0); err != nil {
		return nil, err
	}

	participation.Status = domain.ParticipationRejected
	participation.ApprovedAt = nil
	participation.Points = 0

	s.publishDecisionEvent(ctx, participation, "participation.rejected")
	return participation, nil
}

// ListBusinessParticipations is the dashboard read: every participation across
// the acting business's missions.
func (s *Service) ListBusinessParticipations(ctx context.Context, businessID uuid.UUID) ([]domain.Participation, error) {
	return s.repo.FindParticipationsByBusiness(ctx, businessID)
}

// ListMissionParticipations is the per-mission stats read.
func (s *Service) ListMissionParticipations(ctx context.Context, missionID uuid.UUID) ([]domain.Participation, error) {
	return s.repo.FindParticipationsByMission(ctx, missionID)
}

func (s *Service) publishDecisionEvent(ctx context.Context, p *domain.Participation, routingKey string) {
	if s.producer == nil {
		return
	}
	err := s.producer.Publish(ctx, eventsExchange, routingKey, domain.ParticipationDecisionEvent{
		ParticipationID: p.ID,
		MissionID:       p.MissionID,
		UserID:          p.UserID,
		BusinessID:      p.BusinessID,
		Decision:        p.Status,
		Points:          p.Points,
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		log.Printf("level=warn component=participation msg=\"event publish failed\" routing_key=%s participation_id=%s err=%v", routingKey, p.ID, err)
	}
}

func (s *Service) publishAwardFailed(ctx context.Context, p *domain.Participation, cause error) {
	if s.producer == nil {
		return
	}
	err := s.producer.Publish(ctx, eventsExchange, "participation.award.failed", domain.PointAwardFailedEvent{
		ParticipationID: p.ID,
		UserID:          p.UserID,
		Points:          p.Points,
		Reason:          cause.Error(),
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		log.Printf("level=error component=participation msg=\"CRITICAL: award-failed event publish failed; manual reconciliation required\" participation_id=%s err=%v", p.ID, err)
	}
}
