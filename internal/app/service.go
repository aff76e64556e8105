/**
 * @description
 * This file contains the core business logic for the mission lifecycle. The `Service`
 * struct orchestrates mission state transitions, coordinating between the database
 * repository, the points ledger and business profile clients, the Redis mirror,
 * and the message broker.
 *
 * Key features:
 * - Owns the mission status state machine (ACTIVE <-> PAUSED, -> COMPLETED terminal).
 * - Template activation is lookup-or-create on (business, title), so duplicate
 *   activations never spawn duplicate missions.
 * - Every mutation goes through a conditional write against the authoritative
 *   store; the local Redis mirror is invalidated only after the store acknowledges.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/fluzio/mission-service/internal/domain"
	"github.com/fluzio/mission-service/internal/store"
	"github.com/fluzio/mission-service/pkg/rabbitmq"
)

var (
	ErrMissionInactive   = errors.New("mission is not active")
	ErrMissionFull       = errors.New("mission has reached its participant cap")
	ErrMissionCompleted  = errors.New("mission is completed and immutable")
	ErrNotMissionOwner   = errors.New("participation does not belong to the acting business")
	ErrInvalidMissionReq = errors.New("invalid mission request")
)

const eventsExchange = "fluzio.events"

// PointsLedger is the external user points ledger consumed on approval.
type PointsLedger interface {
	IncrementPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error
}

// BusinessDirectory resolves business profile attributes (city, category) used
// by the competitive pricing estimator.
type BusinessDirectory interface {
	GetBusinessCity(ctx context.Context, businessID uuid.UUID) (string, error)
}

// MissionCacheStore is the local mirror of mission records used for responsive
// reads. It is never authoritative: lifecycle and pricing decisions read the
// repository directly, and the mirror is invalidated after every mutation.
type MissionCacheStore interface {
	GetMission(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error)
	PutMission(ctx context.Context, m *domain.Mission) error
	InvalidateMission(ctx context.Context, missionID uuid.UUID) error
}

// Service provides the core business logic for missions and participations.
type Service struct {
	repo         store.Repository
	ledger       PointsLedger
	businesses   BusinessDirectory
	producer     rabbitmq.Publisher
	cache        MissionCacheStore
	analyzerCfg  AnalyzerConfig
	estimatorCfg EstimatorConfig
}

// NewService creates a new mission service instance.
func NewService(repo store.Repository, ledger PointsLedger, businesses BusinessDirectory, producer rabbitmq.Publisher, analyzerCfg AnalyzerConfig, estimatorCfg EstimatorConfig) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledger,
		businesses:   businesses,
		producer:     producer,
		analyzerCfg:  analyzerCfg,
		estimatorCfg: estimatorCfg,
	}
}

// SetMissionCache attaches the optional Redis mirror. The service works without
// it; reads then always hit the authoritative store.
func (s *Service) SetMissionCache(cache MissionCacheStore) {
	s.cache = cache
}

// CreateMission creates a custom mission owned by the acting business. New
// missions start ACTIVE.
func (s *Service) CreateMission(ctx context.Context, businessID uuid.UUID, req domain.CreateMissionRequest) (*domain.Mission, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidMissionReq)
	}
	missionType, err := domain.ParseMissionType(req.MissionType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMissionReq, err)
	}
	if req.RewardPoints < 0 {
		return nil, fmt.Errorf("%w: reward points must not be negative", ErrInvalidMissionReq)
	}
	if req.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max participants must not be negative", ErrInvalidMissionReq)
	}

	mission := &domain.Mission{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Title:           title,
		Category:        strings.TrimSpace(req.Category),
		MissionType:     missionType,
		RewardPoints:    req.RewardPoints,
		LifecycleStatus: domain.StatusActive,
		IsActive:        true,
		MaxParticipants: req.MaxParticipants,
		ValidUntil:      req.ValidUntil,
		City:            strings.TrimSpace(req.City),
	}
	if err := s.repo.CreateMission(ctx, mission); err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	s.publishLifecycleEvent(ctx, mission, "mission.lifecycle.activated")
	return mission, nil
}

// ToggleMissionStatus flips a mission between ACTIVE and PAUSED. The caller's
// view of the current state (`currentlyActive`) is used as the expected state of
// a conditional write: a stale toggle either turns out to be a no-op (the mission
// already reached the target state) or fails without mutating anything.
func (s *Service) ToggleMissionStatus(ctx context.Context, missionID uuid.UUID, currentlyActive bool) (*domain.Mission, error) {
	expected, next := domain.StatusActive, domain.StatusPaused
	if !currentlyActive {
		expected, next = domain.StatusPaused, domain.StatusActive
	}

	err := s.repo.UpdateMissionLifecycle(ctx, missionID, expected, next)
	if err != nil {
		if !errors.Is(err, store.ErrLifecycleConflict) {
			return nil, err
		}
		// Re-read the authoritative state to classify the conflict.
		mission, findErr := s.repo.FindMissionByID(ctx, missionID)
		if findErr != nil {
			return nil, findErr
		}
		if mission.LifecycleStatus == domain.StatusCompleted {
			return nil, ErrMissionCompleted
		}
		if mission.LifecycleStatus == next {
			// Already in the target state; the toggle is idempotent.
			return mission, nil
		}
		return nil, err
	}

	mission, err := s.repo.FindMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, missionID)
	routingKey := "mission.lifecycle.paused"
	if next == domain.StatusActive {
		routingKey = "mission.lifecycle.activated"
	}
	s.publishLifecycleEvent(ctx, mission, routingKey)
	return mission, nil
}

// ActivateTemplate activates a standard-mission template for a business.
// An existing ACTIVE mission with the same title makes this a no-op; a PAUSED
// one is reactivated in place; otherwise a new mission is created. The returned
// bool reports whether a new mission record was created.
func (s *Service) ActivateTemplate(ctx context.Context, businessID uuid.UUID, req domain.ActivateTemplateRequest) (*domain.Mission, bool, error) {
	tpl := req.Template
	title := strings.TrimSpace(tpl.Title)
	if title == "" {
		return nil, false, fmt.Errorf("%w: template title is required", ErrInvalidMissionReq)
	}
	if tpl.DefaultRewardPoints < 0 {
		return nil, false, fmt.Errorf("%w: template reward must not be negative", ErrInvalidMissionReq)
	}
	missionType := tpl.MissionType
	if missionType == "" {
		missionType = domain.TypeCustom
	}

	candidate := &domain.Mission{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Title:           title,
		Category:        strings.TrimSpace(tpl.Category),
		MissionType:     missionType,
		RewardPoints:    tpl.DefaultRewardPoints,
		LifecycleStatus: domain.StatusActive,
		IsActive:        true,
		MaxParticipants: tpl.MaxParticipants,
		City:            strings.TrimSpace(req.City),
	}

	mission, created, err := s.repo.CreateMissionIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to activate template: %w", err)
	}
	if created {
		s.publishLifecycleEvent(ctx, mission, "mission.lifecycle.activated")
		return mission, true, nil
	}

	switch mission.LifecycleStatus {
	case domain.StatusActive:
		// Duplicate activation; suppress.
		log.Printf("level=info component=lifecycle msg=\"template already active; activation suppressed\" business_id=%s title=%q mission_id=%s", businessID, title, mission.ID)
		return mission, false, nil
	case domain.StatusPaused:
		if err := s.repo.UpdateMissionLifecycle(ctx, mission.ID, domain.StatusPaused, domain.StatusActive); err != nil {
			if errors.Is(err, store.ErrLifecycleConflict) {
				// Raced with another activation; read back whatever won.
				reread, findErr := s.repo.FindMissionByID(ctx, mission.ID)
				if findErr != nil {
					return nil, false, findErr
				}
				if reread.LifecycleStatus == domain.StatusActive {
					return reread, false, nil
				}
			}
			return nil, false, err
		}
		reactivated, err := s.repo.FindMissionByID(ctx, mission.ID)
		if err != nil {
			return nil, false, err
		}
		s.invalidateCache(ctx, mission.ID)
		s.publishLifecycleEvent(ctx, reactivated, "mission.lifecycle.activated")
		return reactivated, false, nil
	default:
		return nil, false, ErrMissionCompleted
	}
}

// CompleteMission transitions a mission to its terminal state from either
// ACTIVE or PAUSED. Completing an already-completed mission is an error.
func (s *Service) CompleteMission(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	err := s.repo.UpdateMissionLifecycle(ctx, missionID, domain.StatusActive, domain.StatusCompleted)
	if errors.Is(err, store.ErrLifecycleConflict) {
		err = s.repo.UpdateMissionLifecycle(ctx, missionID, domain.StatusPaused, domain.StatusCompleted)
	}
	if err != nil {
		if errors.Is(err, store.ErrLifecycleConflict) {
			return nil, ErrMissionCompleted
		}
		return nil, err
	}

	mission, err := s.repo.FindMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, missionID)
	s.publishLifecycleEvent(ctx, mission, "mission.lifecycle.completed")
	return mission, nil
}

// GetMission serves the UI read path: cache first, authoritative store on miss.
// Callers that make lifecycle or pricing decisions must not use this; they go
// through the repository directly.
func (s *Service) GetMission(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	if s.cache != nil {
		cached, err := s.cache.GetMission(ctx, missionID)
		if err != nil {
			log.Printf("level=warn component=cache msg=\"cache read failed; falling back to store\" mission_id=%s err=%v", missionID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	mission, err := s.repo.FindMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.PutMission(ctx, mission); err != nil {
			log.Printf("level=warn component=cache msg=\"cache fill failed\" mission_id=%s err=%v", missionID, err)
		}
	}
	return mission, nil
}

// ListBusinessMissions returns all missions owned by a business, straight from
// the authoritative store.
func (s *Service) ListBusinessMissions(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error) {
	return s.repo.FindMissionsByBusiness(ctx, businessID)
}

// CompleteExpiredMissions transitions every mission whose valid_until has passed
// to COMPLETED. Called by the cron sweep; safe to run concurrently because each
// transition is a conditional write.
func (s *Service) CompleteExpiredMissions(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.FindExpiredMissions(ctx, now)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range expired {
		if _, err := s.CompleteMission(ctx, expired[i].ID); err != nil {
			if errors.Is(err, ErrMissionCompleted) {
				continue // another sweep or an explicit call got there first
			}
			log.Printf("level=warn component=sweeper msg=\"expiry completion failed\" mission_id=%s err=%v", expired[i].ID, err)
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *Service) invalidateCache(ctx context.Context, missionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMission(ctx, missionID); err != nil {
		log.Printf("level=warn component=cache msg=\"cache invalidation failed\" mission_id=%s err=%v", missionID, err)
	}
}

func (s *Service) publishLifecycleEvent(ctx context.Context, mission *domain.Mission, routingKey string) {
	if s.producer == nil {
		return
	}
	err := s.producer.Publish(ctx, eventsExchange, routingKey, domain.MissionLifecycleEvent{
		MissionID:  mission.ID,
		BusinessID: mission.BusinessID,
		Status:     mission.LifecycleStatus,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("level=warn component=lifecycle msg=\"event publish failed\" routing_key=%s mission_id=%s err=%v", routingKey, mission.ID, err)
	}
}
