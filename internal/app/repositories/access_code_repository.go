package repositories

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/db"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/dberrors"
)

// maxCodeAttempts bounds the regenerate-on-collision loop when issuing codes
const maxCodeAttempts = 5

// accessCodeColumns are the columns selected for a full access code row
const accessCodeColumns = `id, community_id, host_id, visitor_name, access_code, code_type,
		valid_from, valid_until, is_one_time, max_uses, usage_count, used_at,
		is_active, vehicle_plate, created_at, updated_at`

// AccessCodeRepository handles database operations for access codes,
// including the transactional usage accounting performed on every granted
// scan.
type AccessCodeRepository struct {
	db *pgxpool.Pool
}

// NewAccessCodeRepository creates a new AccessCodeRepository
func NewAccessCodeRepository(db *pgxpool.Pool) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

// GenerateCode draws a 6-digit decimal code uniformly in [100000, 999999]
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("error generating access code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func scanAccessCode(row pgx.Row) (*models.AccessCode, error) {
	code := &models.AccessCode{}
	err := row.Scan(
		&code.ID, &code.CommunityID, &code.HostID, &code.VisitorName, &code.AccessCode,
		&code.CodeType, &code.ValidFrom, &code.ValidUntil, &code.IsOneTime, &code.MaxUses,
		&code.UsageCount, &code.UsedAt, &code.IsActive, &code.VehiclePlate,
		&code.CreatedAt, &code.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return code, nil
}

// CreateAccessCode issues a new code for the host. The 6-digit value is
// generated here; a collision with another code in the same community hits
// the unique constraint and the insert is retried with a fresh draw.
func (r *AccessCodeRepository) CreateAccessCode(ctx context.Context, code *models.AccessCode) (*models.AccessCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		generated, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		created, err := scanAccessCode(r.db.QueryRow(ctx, `
			INSERT INTO access_codes (community_id, host_id, visitor_name, access_code, code_type,
				valid_from, valid_until, is_one_time, max_uses, is_active, vehicle_plate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10)
			RETURNING `+accessCodeColumns,
			code.CommunityID, code.HostID, code.VisitorName, generated, code.CodeType,
			code.ValidFrom, code.ValidUntil, code.IsOneTime, code.MaxUses, code.VehiclePlate))
		if err == nil {
			return created, nil
		}
		if dberrors.IsDuplicateConstraintError(err, "access_codes_community_code_key") {
			continue
		}
		return nil, fmt.Errorf("error creating access code: %w", err)
	}

	return nil, apperrors.ErrCodeGeneration
}

// GetAccessCodeByCode resolves a submitted code within a community
func (r *AccessCodeRepository) GetAccessCodeByCode(ctx context.Context, communityID int64, accessCode string) (*models.AccessCode, error) {
	code, err := scanAccessCode(r.db.QueryRow(ctx, `
		SELECT `+accessCodeColumns+`
		FROM access_codes
		WHERE community_id = $1 AND access_code = $2`,
		communityID, accessCode))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAccessCodeNotFound
		}
		return nil, fmt.Errorf("error querying access code: %w", err)
	}

	return code, nil
}

// GetAccessCodeByID retrieves a code by ID
func (r *AccessCodeRepository) GetAccessCodeByID(ctx context.Context, id int64) (*models.AccessCode, error) {
	code, err := scanAccessCode(r.db.QueryRow(ctx, `
		SELECT `+accessCodeColumns+`
		FROM access_codes
		WHERE id = $1`, id))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAccessCodeNotFound
		}
		return nil, fmt.Errorf("error querying access code: %w", err)
	}

	return code, nil
}

// GetAccessCodesByHost retrieves all codes issued by a member
func (r *AccessCodeRepository) GetAccessCodesByHost(ctx context.Context, hostID int64) ([]*models.AccessCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accessCodeColumns+`
		FROM access_codes
		WHERE host_id = $1
		ORDER BY created_at DESC`, hostID)
	if err != nil {
		return nil, fmt.Errorf("error querying access codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.AccessCode
	for rows.Next() {
		code, err := scanAccessCode(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// Reschedule moves a code's validity window. Scoped to the issuing host.
func (r *AccessCodeRepository) Reschedule(ctx context.Context, id, hostID int64, validFrom, validUntil time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE access_codes
		SET valid_from = $1, valid_until = $2, updated_at = NOW()
		WHERE id = $3 AND host_id = $4`,
		validFrom, validUntil, id, hostID)
	if err != nil {
		return fmt.Errorf("error rescheduling access code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAccessCodeNotFound
	}
	return nil
}

// SetActive flips the manual suspend switch. Scoped to the issuing host.
func (r *AccessCodeRepository) SetActive(ctx context.Context, id, hostID int64, active bool) error {
	result, err := r.db.Exec(ctx, `
		UPDATE access_codes
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND host_id = $3`,
		active, id, hostID)
	if err != nil {
		return fmt.Errorf("error updating access code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAccessCodeNotFound
	}
	return nil
}

// DeleteAccessCode removes a code. Scoped to the issuing host.
func (r *AccessCodeRepository) DeleteAccessCode(ctx context.Context, id, hostID int64) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM access_codes WHERE id = $1 AND host_id = $2`, id, hostID)
	if err != nil {
		return fmt.Errorf("error deleting access code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAccessCodeNotFound
	}
	return nil
}

// RegisterEntry performs the grant-side writes of a verification in one
// transaction: consume a use (conditionally, so racing scans cannot
// over-grant) and append the entry log row. On any failure the whole unit
// rolls back; a grant that cannot be durably logged must not consume a use.
// Returns the created entry log ID.
func (r *AccessCodeRepository) RegisterEntry(ctx context.Context, code *models.AccessCode, entry *models.EntryLog) (int64, error) {
	var entryID int64
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		switch {
		case code.IsOneTime:
			result, err := tx.Exec(ctx, `
				UPDATE access_codes
				SET used_at = NOW(), usage_count = usage_count + 1, updated_at = NOW()
				WHERE id = $1 AND used_at IS NULL`,
				code.ID)
			if err != nil {
				return fmt.Errorf("error marking code used: %w", err)
			}
			if result.RowsAffected() == 0 {
				return apperrors.ErrCodeAlreadyUsed
			}

		case code.MaxUses != nil:
			result, err := tx.Exec(ctx, `
				UPDATE access_codes
				SET usage_count = usage_count + 1, updated_at = NOW()
				WHERE id = $1 AND usage_count < max_uses`,
				code.ID)
			if err != nil {
				return fmt.Errorf("error incrementing usage: %w", err)
			}
			if result.RowsAffected() == 0 {
				return apperrors.ErrCodeLimitExhausted
			}

		default:
			if _, err := tx.Exec(ctx, `
				UPDATE access_codes
				SET usage_count = usage_count + 1, updated_at = NOW()
				WHERE id = $1`,
				code.ID); err != nil {
				return fmt.Errorf("error incrementing usage: %w", err)
			}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO entry_logs (community_id, access_code_id, guard_id, code_type, entered_at, entry_point)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			entry.CommunityID, entry.AccessCodeID, entry.GuardID, entry.CodeType,
			entry.EnteredAt, entry.EntryPoint).Scan(&entryID)
		if err != nil {
			if dberrors.IsDuplicateConstraintError(err, "entry_logs_open_session_key") {
				// Lost a clock-in race: another scan already opened a session.
				return apperrors.ErrEntryLogWriteFailed
			}
			return fmt.Errorf("error inserting entry log: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return entryID, nil
}
