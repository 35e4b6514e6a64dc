package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
)

// InvitationRepository handles database operations for household invitations
type InvitationRepository struct {
	db *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// CreateInvitation persists a new invitation
func (r *InvitationRepository) CreateInvitation(ctx context.Context, invitation *models.Invitation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invitations (community_id, household_id, email, token, invited_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		invitation.CommunityID, invitation.HouseholdID, invitation.Email,
		invitation.Token, invitation.InvitedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating invitation: %w", err)
	}
	return id, nil
}

// GetInvitationByToken resolves an invitation by its token
func (r *InvitationRepository) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	invitation := &models.Invitation{}
	err := r.db.QueryRow(ctx, `
		SELECT id, community_id, household_id, email, token, invited_by, accepted_at, created_at
		FROM invitations
		WHERE token = $1`,
		token).Scan(&invitation.ID, &invitation.CommunityID, &invitation.HouseholdID,
		&invitation.Email, &invitation.Token, &invitation.InvitedBy,
		&invitation.AcceptedAt, &invitation.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("error querying invitation: %w", err)
	}

	return invitation, nil
}

// MarkAccepted records the acceptance time of an invitation
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE invitations SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`,
		id)
	if err != nil {
		return fmt.Errorf("error accepting invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrInvitationNotFound
	}
	return nil
}
