/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to missions and participations.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - The `missions` table carries a partial unique index on (business_id, title)
 *   WHERE lifecycle_status <> 'COMPLETED'; CreateMissionIfAbsent relies on it.
 * - Transient driver/pool failures are wrapped in ErrStoreUnavailable so upper
 *   layers can tell "retry later" apart from "illegal request".
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/fluzio/mission-service/internal/domain"
)

var (
	ErrMissionNotFound       = errors.New("mission not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrLifecycleConflict     = errors.New("mission is not in the expected lifecycle state")
	ErrAlreadyDecided        = errors.New("participation has already been decided")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

// wrapUnavailable marks a driver error as a transient store failure. Callers
// receiving this must not assume the write partially succeeded.
func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const missionColumns = `id, business_id, title, category, mission_type, reward_points, lifecycle_status, is_active, max_participants, current_participants, valid_until, city, created_at, updated_at`

func scanMission(row pgx.Row) (*domain.Mission, error) {
	var m domain.Mission
	err := row.Scan(
		&m.ID,
		&m.BusinessID,
		&m.Title,
		&m.Category,
		&m.MissionType,
		&m.RewardPoints,
		&m.LifecycleStatus,
		&m.IsActive,
		&m.MaxParticipants,
		&m.CurrentParticipants,
		&m.ValidUntil,
		&m.City,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMission inserts a new mission record.
func (r *PostgresRepository) CreateMission(ctx context.Context, m *domain.Mission) error {
	query := `
		INSERT INTO missions (id, business_id, title, category, mission_type, reward_points, lifecycle_status, is_active, max_participants, current_participants, valid_until, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.BusinessID, m.Title, m.Category, m.MissionType, m.RewardPoints,
		m.LifecycleStatus, m.IsActive, m.MaxParticipants, m.CurrentParticipants,
		m.ValidUntil, m.City,
	)
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// CreateMissionIfAbsent inserts the mission unless a non-completed mission with the
// same (business_id, title) already exists. The insert and the duplicate check are
// one statement, so two concurrent template activations cannot both create a row.
func (r *PostgresRepository) CreateMissionIfAbsent(ctx context.Context, m *domain.Mission) (*domain.Mission, bool, error) {
	query := `
		INSERT INTO missions (id, business_id, title, category, mission_type, reward_points, lifecycle_status, is_active, max_participants, current_participants, valid_until, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (business_id, title) WHERE lifecycle_status <> 'COMPLETED' DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		m.ID, m.BusinessID, m.Title, m.Category, m.MissionType, m.RewardPoints,
		m.LifecycleStatus, m.IsActive, m.MaxParticipants, m.CurrentParticipants,
		m.ValidUntil, m.City,
	)
	if err != nil {
		return nil, false, wrapUnavailable(err)
	}
	if tag.RowsAffected() == 1 {
		created, err := r.FindMissionByID(ctx, m.ID)
		if err != nil {
			return nil, false, err
		}
		return created, true, nil
	}

	// Lost the conflict: fetch the existing non-completed mission instead.
	existingQuery := fmt.Sprintf(`SELECT %s FROM missions WHERE business_id = $1 AND title = $2 AND lifecycle_status <> 'COMPLETED'`, missionColumns)
	existing, err := scanMission(r.db.QueryRow(ctx, existingQuery, m.BusinessID, m.Title))
	if err != nil {
		if err == pgx.ErrNoRows {
			// The conflicting row was completed or removed between statements.
			return nil, false, ErrMissionNotFound
		}
		return nil, false, wrapUnavailable(err)
	}
	return existing, false, nil
}

// FindMissionByID retrieves a mission by its ID.
func (r *PostgresRepository) FindMissionByID(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	query := fmt.Sprintf(`SELECT %s FROM missions WHERE id = $1`, missionColumns)
	m, err := scanMission(r.db.QueryRow(ctx, query, missionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMissionNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return m, nil
}

// FindMissionsByBusiness retrieves all missions owned by a business.
func (r *PostgresRepository) FindMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error) {
	query := fmt.Sprintf(`SELECT %s FROM missions WHERE business_id = $1 ORDER BY created_at DESC`, missionColumns)
	return r.queryMissions(ctx, query, businessID)
}

// FindActiveMissionsByBusiness retrieves a business's ACTIVE missions.
func (r *PostgresRepository) FindActiveMissionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Mission, error) {
	query := fmt.Sprintf(`SELECT %s FROM missions WHERE business_id = $1 AND is_active = TRUE ORDER BY created_at DESC`, missionColumns)
	return r.queryMissions(ctx, query, businessID)
}

// FindCompetitorMissions retrieves ACTIVE missions from other businesses in the
// same city and category.
func (r *PostgresRepository) FindCompetitorMissions(ctx context.Context, city, category string, excludeBusinessID uuid.UUID) ([]domain.Mission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM missions
		WHERE lower(btrim(city)) = lower(btrim($1))
		  AND lower(btrim(category)) = lower(btrim($2))
		  AND business_id <> $3
		  AND is_active = TRUE
	`, missionColumns)
	return r.queryMissions(ctx, query, city, category, excludeBusinessID)
}

// FindExpiredMissions retrieves non-completed missions whose valid_until has passed.
func (r *PostgresRepository) FindExpiredMissions(ctx context.Context, now time.Time) ([]domain.Mission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM missions
		WHERE lifecycle_status <> 'COMPLETED'
		  AND valid_until IS NOT NULL
		  AND valid_until <= $1
	`, missionColumns)
	return r.queryMissions(ctx, query, now)
}

func (r *PostgresRepository) queryMissions(ctx context.Context, query string, args ...any) ([]domain.Mission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	var missions []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		missions = append(missions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return missions, nil
}

// UpdateMissionLifecycle performs a check-and-set transition of the mission state
// machine. is_active is derived from the new status in the same statement, so the
// two columns can never drift apart.
func (r *PostgresRepository) UpdateMissionLifecycle(ctx context.Context, missionID uuid.UUID, expected, next domain.LifecycleStatus) error {
	query := `
		UPDATE missions
		SET lifecycle_status = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3 AND lifecycle_status = $4
	`
	tag, err := r.db.Exec(ctx, query, next, next == domain.StatusActive, missionID, expected)
	if err != nil {
		return wrapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing mission from one in the wrong state.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM missions WHERE id = $1)`, missionID).Scan(&exists); err != nil {
			return wrapUnavailable(err)
		}
		if !exists {
			return ErrMissionNotFound
		}
		return ErrLifecycleConflict
	}
	return nil
}

// CreateParticipation inserts a new PENDING participation.
func (r *PostgresRepository) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	query := `
		INSERT INTO participations (id, mission_id, user_id, business_id, status, applied_at, approved_at, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.MissionID, p.UserID, p.BusinessID, p.Status, p.AppliedAt, p.ApprovedAt, p.Points)
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// FindParticipationByID retrieves a participation by its ID.
func (r *PostgresRepository) FindParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error) {
	query := `SELECT id, mission_id, user_id, business_id, status, applied_at, approved_at, points FROM participations WHERE id = $1`
	p, err := scanParticipation(r.db.QueryRow(ctx, query, participationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrParticipationNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return p, nil
}

// FindParticipationsByBusiness lists all participations across a business's
// missions for dashboards. Sorting and filtering happen client-side after this
// role-scoped fetch.
func (r *PostgresRepository) FindParticipationsByBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.Participation, error) {
	query := `SELECT id, mission_id, user_id, business_id, status, applied_at, approved_at, points FROM participations WHERE business_id = $1 ORDER BY applied_at DESC`
	return r.queryParticipations(ctx, query, businessID)
}

// FindParticipationsByMission lists a mission's participation history.
func (r *PostgresRepository) FindParticipationsByMission(ctx context.Context, missionID uuid.UUID) ([]domain.Participation, error) {
	query := `SELECT id, mission_id, user_id, business_id, status, applied_at, approved_at, points FROM participations WHERE mission_id = $1 ORDER BY applied_at DESC`
	return r.queryParticipations(ctx, query, missionID)
}

func (r *PostgresRepository) queryParticipations(ctx context.Context, query string, args ...any) ([]domain.Participation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	var participations []domain.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		participations = append(participations, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return participations, nil
}

func scanParticipation(row pgx.Row) (*domain.Participation, error) {
	var p domain.Participation
	err := row.Scan(&p.ID, &p.MissionID, &p.UserID, &p.BusinessID, &p.Status, &p.AppliedAt, &p.ApprovedAt, &p.Points)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateParticipationDecision conditionally decides a PENDING participation.
// The PENDING check lives in the WHERE clause: under concurrent approve calls
// exactly one UPDATE matches and the others observe zero affected rows. An
// approval also bumps the mission's current_participants inside the same
// transaction, so the counter and the decision commit or roll back together.
func (r *PostgresRepository) UpdateParticipationDecision(ctx context.Context, participationID uuid.UUID, decision domain.ParticipationStatus, decidedAt time.Time, points int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrapUnavailable(err)
	}
	defer tx.Rollback(ctx)

	decisionQuery := `
		UPDATE participations
		SET status = $1,
		    approved_at = CASE WHEN $1 = 'APPROVED' THEN $2 ELSE NULL END,
		    points = CASE WHEN $1 = 'APPROVED' THEN $3 ELSE 0 END
		WHERE id = $4 AND status = 'PENDING'
		RETURNING mission_id
	`
	var missionID uuid.UUID
	err = tx.QueryRow(ctx, decisionQuery, decision, decidedAt, points, participationID).Scan(&missionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM participations WHERE id = $1)`, participationID).Scan(&exists); err != nil {
				return wrapUnavailable(err)
			}
			if !exists {
				return ErrParticipationNotFound
			}
			return ErrAlreadyDecided
		}
		return wrapUnavailable(err)
	}

	if decision == domain.ParticipationApproved {
		counterQuery := `UPDATE missions SET current_participants = current_participants + 1, updated_at = NOW() WHERE id = $1`
		tag, err := tx.Exec(ctx, counterQuery, missionID)
		if err != nil {
			return wrapUnavailable(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrMissionNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}
