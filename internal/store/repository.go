/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the mission-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
)

// Repository defines the set of methods for interacting with the authoritative store.
// Writes are synchronous: when a method returns nil the store has acknowledged the
// mutation, so callers may immediately issue dependent reads against it.
type Repository interface {
	// Mission methods
	CreateMission(ctx context.Context, m *domain.Mission) error
	// CreateMissionIfAbsent inserts the mission unless a non-completed mission with
	// the same (business_id, title) already exists. It is a single conditional
	// insert, not read-then-create, so concurrent activations of the same template
	// cannot produce duplicates. Returns the stored mission and whether this call
	// created it.
	CreateMissionIfAbsent(ctx context.Context, m *domain.Mission) (*domain.Mission, bool, error)
	FindMissionByID(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error)
	FindMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error)
	FindActiveMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error)
	// UpdateMissionLifecycle is a check-and-set status transition. It also keeps
	// is_active consistent with the new status in the same statement. Returns
	// ErrLifecycleConflict when the mission exists but is not in `expected`.
	UpdateMissionLifecycle(ctx context.Context, missionID uuid.UUID, expected, next domain.LifecycleStatus) error
	// FindCompetitorMissions returns ACTIVE missions in the given city and category
	// owned by businesses other than excludeBusinessID.
	FindCompetitorMissions(ctx context.Context, city, category string, excludeBusinessID uuid.UUID) ([]domain.Mission, error)
	FindExpiredMissions(ctx context.Context, now time.Time) ([]domain.Mission, error)

	// Participation methods
	CreateParticipation(ctx context.Context, p *domain.Participation) error
	FindParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error)
	FindParticipationsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Participation, error)
	FindParticipationsByMission(ctx context.Context, missionID uuid.UUID) ([]domain.Participation, error)
	// UpdateParticipationDecision conditionally moves a PENDING participation to
	// APPROVED or REJECTED. Exactly one concurrent caller succeeds; the rest get
	// ErrAlreadyDecided. Points and approved_at are only written on approval, and
	// an approval bumps the mission's participant counter in the same
	// transaction, so the decision and the counter can never diverge.
	UpdateParticipationDecision(ctx context.Context, participationID uuid.UUID, decision domain.ParticipationStatus, decidedAt time.Time, points int) error
}
