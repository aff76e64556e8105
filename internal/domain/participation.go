/**
 * @description
 * Domain models for participations: a single creator's application to, and
 * outcome on, a mission. A participation is created PENDING and decided exactly
 * once (APPROVED or REJECTED), after which it is immutable.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus is the participation state machine's state.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "PENDING"
	ParticipationApproved ParticipationStatus = "APPROVED"
	ParticipationRejected ParticipationStatus = "REJECTED"
)

// Participation maps directly to the `participations` table.
// BusinessID is denormalized from the mission so business dashboards can be
// served from a single indexed query without a composite secondary index.
// Invariant: ApprovedAt is set iff Status == APPROVED, and Points is only
// meaningful on approved rows (it is the reward snapshot taken at approval).
type Participation struct {
	ID         uuid.UUID           `json:"id" db:"id"`
	MissionID  uuid.UUID           `json:"mission_id" db:"mission_id"`
	UserID     uuid.UUID           `json:"user_id" db:"user_id"`
	BusinessID uuid.UUID           `json:"business_id" db:"business_id"`
	Status     ParticipationStatus `json:"status" db:"status"`
	AppliedAt  time.Time           `json:"applied_at" db:"applied_at"`
	ApprovedAt *time.Time          `json:"approved_at,omitempty" db:"approved_at"`
	Points     int                 `json:"points" db:"points"`
}

// ParticipationDecisionEvent is published to RabbitMQ when a business decides
// a pending participation.
type ParticipationDecisionEvent struct {
	ParticipationID uuid.UUID           `json:"participation_id"`
	MissionID       uuid.UUID           `json:"mission_id"`
	UserID          uuid.UUID           `json:"user_id"`
	BusinessID      uuid.UUID           `json:"business_id"`
	Decision        ParticipationStatus `json:"decision"`
	Points          int                 `json:"points"`
	Timestamp       time.Time           `json:"timestamp"`
}

// PointAwardFailedEvent is published when the decision write succeeded but the
// points ledger could not be credited. A downstream reconciler retries these.
type PointAwardFailedEvent struct {
	ParticipationID uuid.UUID `json:"participation_id"`
	UserID          uuid.UUID `json:"user_id"`
	Points          int       `json:"points"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
}
