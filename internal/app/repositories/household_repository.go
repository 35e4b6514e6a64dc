package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/db"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/dberrors"
)

// HouseholdRepository handles database operations for households, including
// the transactional writes that uphold the single-head and capacity
// invariants. These methods are the only code paths that mutate
// is_household_head or perform capacity-gated household assignment.
type HouseholdRepository struct {
	db *pgxpool.Pool
}

// NewHouseholdRepository creates a new HouseholdRepository
func NewHouseholdRepository(db *pgxpool.Pool) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

// CreateHousehold creates a household explicitly (manager action)
func (r *HouseholdRepository) CreateHousehold(ctx context.Context, household *models.Household) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO households (community_id, name, contact_email, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		household.CommunityID, household.Name, household.ContactEmail, household.Status).Scan(&id)

	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "households_community_name_key") {
			return 0, apperrors.ErrHouseholdExists
		}
		return 0, fmt.Errorf("error creating household: %w", err)
	}

	return id, nil
}

// GetHouseholdByID retrieves a household by ID
func (r *HouseholdRepository) GetHouseholdByID(ctx context.Context, id int64) (*models.Household, error) {
	household := &models.Household{}
	err := r.db.QueryRow(ctx, `
		SELECT id, community_id, name, contact_email, status, created_at, updated_at
		FROM households
		WHERE id = $1`,
		id).Scan(&household.ID, &household.CommunityID, &household.Name,
		&household.ContactEmail, &household.Status, &household.CreatedAt, &household.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("error querying household: %w", err)
	}

	return household, nil
}

// GetHouseholdsByCommunity retrieves all households of a community
func (r *HouseholdRepository) GetHouseholdsByCommunity(ctx context.Context, communityID int64) ([]*models.Household, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, community_id, name, contact_email, status, created_at, updated_at
		FROM households
		WHERE community_id = $1
		ORDER BY name`, communityID)
	if err != nil {
		return nil, fmt.Errorf("error querying households: %w", err)
	}
	defer rows.Close()

	var households []*models.Household
	for rows.Next() {
		household := &models.Household{}
		err := rows.Scan(&household.ID, &household.CommunityID, &household.Name,
			&household.ContactEmail, &household.Status, &household.CreatedAt, &household.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		households = append(households, household)
	}

	return households, nil
}

// UpdateStatus switches a household between active and suspended.
func (r *HouseholdRepository) UpdateStatus(ctx context.Context, id int64, status models.HouseholdStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE households SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("error updating household status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrHouseholdNotFound
	}
	return nil
}

// GetOrCreateByName resolves a household by (community, name), creating it if
// absent. The insert rides on the unique constraint: a concurrent creator wins
// the race and the loser re-reads the surviving row, so two approvals for the
// same unit never materialize two households.
func (r *HouseholdRepository) GetOrCreateByName(ctx context.Context, communityID int64, name string) (*models.Household, error) {
	household := &models.Household{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO households (community_id, name, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (community_id, name) DO NOTHING
		RETURNING id, community_id, name, contact_email, status, created_at, updated_at`,
		communityID, name).Scan(&household.ID, &household.CommunityID, &household.Name,
		&household.ContactEmail, &household.Status, &household.CreatedAt, &household.UpdatedAt)

	if err == nil {
		return household, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error creating household: %w", err)
	}

	// DO NOTHING returned no row: the household already exists, fetch it.
	err = r.db.QueryRow(ctx, `
		SELECT id, community_id, name, contact_email, status, created_at, updated_at
		FROM households
		WHERE community_id = $1 AND name = $2`,
		communityID, name).Scan(&household.ID, &household.CommunityID, &household.Name,
		&household.ContactEmail, &household.Status, &household.CreatedAt, &household.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error fetching existing household: %w", err)
	}

	return household, nil
}

// TransferHead demotes every current head of the household and promotes the
// target member, in one SERIALIZABLE transaction. No observer ever sees two
// heads; when two transfers race, the loser fails the one-head unique index
// and surfaces as a conflict rather than a double promotion.
func (r *HouseholdRepository) TransferHead(ctx context.Context, householdID, newHeadMemberID int64) error {
	err := db.WithSerializableTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE members
			SET is_household_head = FALSE, updated_at = NOW()
			WHERE household_id = $1 AND is_household_head = TRUE`,
			householdID)
		if err != nil {
			return fmt.Errorf("error demoting current head: %w", err)
		}

		result, err := tx.Exec(ctx, `
			UPDATE members
			SET is_household_head = TRUE, updated_at = NOW()
			WHERE id = $1 AND household_id = $2`,
			newHeadMemberID, householdID)
		if err != nil {
			return fmt.Errorf("error promoting new head: %w", err)
		}
		if result.RowsAffected() == 0 {
			// Rolls back the demotion too, so the old head survives.
			return apperrors.ErrMemberNotInHousehold
		}

		return nil
	})
	if dberrors.IsDuplicateConstraintError(err, "members_one_head_per_household") {
		return apperrors.NewConflictError("household head changed concurrently, retry the transfer")
	}
	return err
}

// AdmitMember links a member to a household after re-validating the resident
// cap inside the transaction. The household row is locked first, so two
// concurrent admissions for the same household count sequentially and cannot
// jointly exceed the limit.
func (r *HouseholdRepository) AdmitMember(ctx context.Context, memberID, householdID int64, maxResidents int) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var communityID int64
		var status models.HouseholdStatus
		err := tx.QueryRow(ctx, `
			SELECT community_id, status FROM households WHERE id = $1 FOR UPDATE`,
			householdID).Scan(&communityID, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrHouseholdNotFound
			}
			return fmt.Errorf("error locking household: %w", err)
		}
		if status == models.HouseholdSuspended {
			return apperrors.ErrHouseholdSuspended
		}

		var count int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM members WHERE household_id = $1`,
			householdID).Scan(&count)
		if err != nil {
			return fmt.Errorf("error counting household members: %w", err)
		}
		if count >= maxResidents {
			return apperrors.ErrCapacityExceeded
		}

		// Admission never grants headship; a stale declared-head flag is
		// dropped here and only ChangeHead can set it again.
		result, err := tx.Exec(ctx, `
			UPDATE members
			SET household_id = $1, is_household_head = FALSE, updated_at = NOW()
			WHERE id = $2 AND community_id = $3 AND household_id IS NULL`,
			householdID, memberID, communityID)
		if err != nil {
			return fmt.Errorf("error assigning member to household: %w", err)
		}
		if result.RowsAffected() == 0 {
			// Either the member doesn't exist in this community or is
			// already assigned somewhere.
			var existingHousehold *int64
			err := tx.QueryRow(ctx, `
				SELECT household_id FROM members WHERE id = $1 AND community_id = $2`,
				memberID, communityID).Scan(&existingHousehold)
			if err != nil {
				return apperrors.ErrMemberNotFound
			}
			return apperrors.ErrAlreadyAssigned
		}

		return nil
	})
}
