package auth

import (
	"context"
	"errors"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/logger"
)

// memberResolver is the slice of the member repository authorization
// needs.
type memberResolver interface {
	GetMemberByCommunityAndUser(ctx context.Context, communityID, userID int64) (*models.Member, error)
}

// AuthorizationService resolves a caller's community-scoped membership
// and checks it against the roles an operation requires. Roles live on
// the member row, not in the JWT, so a role change takes effect on the
// next request.
type AuthorizationService struct {
	members memberResolver
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(members memberResolver) *AuthorizationService {
	return &AuthorizationService{
		members: members,
	}
}

// RequireMember returns the caller's approved membership in the
// community, or ErrPermissionDenied when there is none.
func (s *AuthorizationService) RequireMember(ctx context.Context, userID, communityID int64) (*models.Member, error) {
	member, err := s.members.GetMemberByCommunityAndUser(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMemberNotFound) {
			return nil, apperrors.ErrPermissionDenied
		}
		logger.Error().Err(err).
			Int64("userID", userID).
			Int64("communityID", communityID).
			Msg("Error resolving membership for authorization")
		return nil, err
	}

	if member.Status != models.MemberApproved {
		return nil, apperrors.ErrPermissionDenied
	}

	return member, nil
}

// RequireRole returns the caller's membership when it holds one of the
// given roles. Approved membership alone is not enough.
func (s *AuthorizationService) RequireRole(ctx context.Context, userID, communityID int64, roles ...models.MemberRole) (*models.Member, error) {
	member, err := s.RequireMember(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if member.Role == role {
			return member, nil
		}
	}

	return nil, apperrors.ErrPermissionDenied
}

// RequireHouseholdHead returns the caller's membership when it is the
// head of the given household.
func (s *AuthorizationService) RequireHouseholdHead(ctx context.Context, userID, communityID, householdID int64) (*models.Member, error) {
	member, err := s.RequireMember(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}

	if !member.IsHouseholdHead || member.HouseholdID == nil || *member.HouseholdID != householdID {
		return nil, apperrors.ErrPermissionDenied
	}

	return member, nil
}
