package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/dberrors"
)

// memberColumns are the columns selected for a full member row
const memberColumns = "m.id, m.community_id, m.user_id, m.role, m.status, m.unit_number, m.household_id, m.is_household_head, m.created_at, m.updated_at"

// MemberRepository handles database operations for community members
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

func scanMember(row pgx.Row) (*models.Member, error) {
	member := &models.Member{}
	err := row.Scan(
		&member.ID, &member.CommunityID, &member.UserID, &member.Role, &member.Status,
		&member.UnitNumber, &member.HouseholdID, &member.IsHouseholdHead,
		&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CreateMember creates a new membership record
func (r *MemberRepository) CreateMember(ctx context.Context, member *models.Member) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO members (community_id, user_id, role, status, unit_number, household_id, is_household_head)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		member.CommunityID, member.UserID, member.Role, member.Status,
		member.UnitNumber, member.HouseholdID, member.IsHouseholdHead).Scan(&id)

	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "members_community_user_key") {
			return 0, apperrors.ErrMemberAlreadyExists
		}
		return 0, fmt.Errorf("error creating member: %w", err)
	}

	return id, nil
}

// GetMemberByID retrieves a member by ID
func (r *MemberRepository) GetMemberByID(ctx context.Context, id int64) (*models.Member, error) {
	member, err := scanMember(r.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		WHERE m.id = $1`, id))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error querying member: %w", err)
	}

	return member, nil
}

// GetMemberByCommunityAndUser retrieves a membership record for a user within a community
func (r *MemberRepository) GetMemberByCommunityAndUser(ctx context.Context, communityID, userID int64) (*models.Member, error) {
	member, err := scanMember(r.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		WHERE m.community_id = $1 AND m.user_id = $2`, communityID, userID))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error querying member: %w", err)
	}

	return member, nil
}

// GetMembersByCommunity retrieves members of a community with optional status/role
// filters and pagination. Returns the rows and the total count.
func (r *MemberRepository) GetMembersByCommunity(ctx context.Context, communityID int64, status, role string, page, pageSize int) ([]*models.Member, int, error) {
	where := squirrel.And{squirrel.Eq{"m.community_id": communityID}}
	if status != "" {
		where = append(where, squirrel.Eq{"m.status": status})
	}
	if role != "" {
		where = append(where, squirrel.Eq{"m.role": role})
	}

	countQuery := squirrel.Select("COUNT(*)").
		From("members m").
		Where(where).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting members: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := squirrel.Select(memberColumns).
		From("members m").
		Where(where).
		OrderBy("m.created_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		members = append(members, member)
	}

	return members, total, nil
}

// GetMembersByHousehold retrieves all members linked to a household
func (r *MemberRepository) GetMembersByHousehold(ctx context.Context, householdID int64) ([]*models.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		WHERE m.household_id = $1
		ORDER BY m.is_household_head DESC, m.created_at`, householdID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		members = append(members, member)
	}

	return members, nil
}

// UpdateStatus sets a member's lifecycle status
func (r *MemberRepository) UpdateStatus(ctx context.Context, memberID int64, status models.MemberStatus) error {
	result, err := r.db.Exec(ctx, `
		UPDATE members SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, memberID)
	if err != nil {
		return fmt.Errorf("error updating member status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrMemberNotFound
	}
	return nil
}

// UpdateRole sets a member's role within the community
func (r *MemberRepository) UpdateRole(ctx context.Context, memberID int64, role models.MemberRole) error {
	result, err := r.db.Exec(ctx, `
		UPDATE members SET role = $1, updated_at = NOW() WHERE id = $2`,
		role, memberID)
	if err != nil {
		return fmt.Errorf("error updating member role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrMemberNotFound
	}
	return nil
}

// LinkHousehold points a member at a household without any capacity check.
// Used by the approval flow for household heads; capacity-gated admission
// goes through HouseholdRepository.AdmitMember instead. The head flag
// survives the link only when the household has no head yet: a second
// declared head approved for the same unit joins as a regular resident.
func (r *MemberRepository) LinkHousehold(ctx context.Context, memberID, householdID int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE members
		SET household_id = $1,
		    is_household_head = is_household_head AND NOT EXISTS (
		        SELECT 1 FROM members existing
		        WHERE existing.household_id = $1
		          AND existing.is_household_head
		          AND existing.id <> members.id),
		    updated_at = NOW()
		WHERE id = $2`,
		householdID, memberID)
	if err != nil {
		return fmt.Errorf("error linking member to household: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrMemberNotFound
	}
	return nil
}

// ClearHousehold unlinks a member from their household and drops the head
// flag in the same statement, so no observer can see a headless-household
// member still flagged as head.
func (r *MemberRepository) ClearHousehold(ctx context.Context, memberID int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE members
		SET household_id = NULL, is_household_head = FALSE, updated_at = NOW()
		WHERE id = $1`,
		memberID)
	if err != nil {
		return fmt.Errorf("error clearing member household: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrMemberNotFound
	}
	return nil
}
