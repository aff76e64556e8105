/**
 * @description
 * This file defines the core domain models for the mission-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Mission type, complexity, and lifecycle status are closed enumerations validated
 *   at the API boundary rather than free-text strings, so every layer below the
 *   handlers can rely on the values being well-formed.
 * - Reward points are plain integers; there is no fractional point unit.
 */

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus is the mission state machine's state. COMPLETED is terminal.
type LifecycleStatus string

const (
	StatusActive    LifecycleStatus = "ACTIVE"
	StatusPaused    LifecycleStatus = "PAUSED"
	StatusCompleted LifecycleStatus = "COMPLETED"
)

// MissionType identifies what a creator is asked to do.
type MissionType string

const (
	TypeFollow      MissionType = "follow"
	TypeTextReview  MissionType = "text_review"
	TypePhotoReview MissionType = "photo_review"
	TypePhotoShare  MissionType = "photo_share"
	TypeInPerson    MissionType = "in_person"
	TypeCustom      MissionType = "custom"
)

// ParseMissionType validates a free-text mission type at the boundary.
func ParseMissionType(raw string) (MissionType, error) {
	t := MissionType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeFollow, TypeTextReview, TypePhotoReview, TypePhotoShare, TypeInPerson, TypeCustom:
		return t, nil
	}
	return "", fmt.Errorf("unknown mission type %q", raw)
}

// Complexity grades how demanding a mission is for the creator.
type Complexity string

const (
	ComplexityEasy   Complexity = "EASY"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHard   Complexity = "HARD"
)

// ParseComplexity validates a free-text complexity at the boundary.
func ParseComplexity(raw string) (Complexity, error) {
	c := Complexity(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case ComplexityEasy, ComplexityMedium, ComplexityHard:
		return c, nil
	}
	return "", fmt.Errorf("unknown complexity %q", raw)
}

// Mission is the central record for a task a business offers to creators.
// This struct maps directly to the `missions` table in the database.
// IsActive is kept consistent with LifecycleStatus inside every status write;
// it exists as a separate column because listing queries filter on it.
type Mission struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	BusinessID          uuid.UUID       `json:"business_id" db:"business_id"`
	Title               string          `json:"title" db:"title"`
	Category            string          `json:"category" db:"category"`
	MissionType         MissionType     `json:"mission_type" db:"mission_type"`
	RewardPoints        int             `json:"reward_points" db:"reward_points"`
	LifecycleStatus     LifecycleStatus `json:"lifecycle_status" db:"lifecycle_status"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	MaxParticipants     int             `json:"max_participants" db:"max_participants"` // 0 = no cap
	CurrentParticipants int             `json:"current_participants" db:"current_participants"`
	ValidUntil          *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	City                string          `json:"city" db:"city"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// MissionTemplate is a business-independent standard-mission definition.
// Activating a template spawns a concrete Mission owned by the activating business.
type MissionTemplate struct {
	Title               string      `json:"title"`
	Category            string      `json:"category"`
	MissionType         MissionType `json:"mission_type"`
	DefaultRewardPoints int         `json:"default_reward_points"`
	MaxParticipants     int         `json:"max_participants"`
}

// CreateMissionRequest is the DTO for creating a custom mission.
type CreateMissionRequest struct {
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	MissionType     string     `json:"mission_type"`
	RewardPoints    int        `json:"reward_points"`
	MaxParticipants int        `json:"max_participants"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	City            string     `json:"city"`
}

// ActivateTemplateRequest is the DTO for activating a standard-mission template.
type ActivateTemplateRequest struct {
	Template MissionTemplate `json:"template"`
	City     string          `json:"city"`
}

// ToggleMissionRequest carries the caller's view of the current activation state.
// The service uses it as the expected state of a conditional write, so a stale
// toggle fails instead of silently double-flipping.
type ToggleMissionRequest struct {
	CurrentlyActive bool `json:"currently_active"`
}

// MissionLifecycleEvent is published to RabbitMQ on every lifecycle transition.
type MissionLifecycleEvent struct {
	MissionID  uuid.UUID       `json:"mission_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Status     LifecycleStatus `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
}
