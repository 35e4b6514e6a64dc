package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/notify"
)

// Store surface the approval flow needs. The pgx repositories satisfy
// these; tests substitute in-memory fakes.
type approvalMemberStore interface {
	GetMemberByID(ctx context.Context, id int64) (*models.Member, error)
	UpdateStatus(ctx context.Context, memberID int64, status models.MemberStatus) error
	LinkHousehold(ctx context.Context, memberID, householdID int64) error
}

type approvalHouseholdStore interface {
	GetOrCreateByName(ctx context.Context, communityID int64, name string) (*models.Household, error)
}

// ApprovalService promotes pending members. For declared household
// heads it also materializes or reuses the household named by the
// member's unit number and links the member to it.
type ApprovalService interface {
	ApproveMember(ctx context.Context, communityID, memberID int64) error
	RejectMember(ctx context.Context, communityID, memberID int64) error
}

// approvalServiceImpl implements ApprovalService
type approvalServiceImpl struct {
	memberStore    approvalMemberStore
	householdStore approvalHouseholdStore
	notifier       notify.Notifier
	logger         zerolog.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	memberStore approvalMemberStore,
	householdStore approvalHouseholdStore,
	notifier notify.Notifier,
	logger zerolog.Logger,
) ApprovalService {
	return &approvalServiceImpl{
		memberStore:    memberStore,
		householdStore: householdStore,
		notifier:       notifier,
		logger:         logger,
	}
}

// ApproveMember sets a pending member to approved. When the member
// declared household headship with a unit number, the matching
// household is looked up or created and the member linked to it.
// Household linking is best-effort: a failure there is logged and the
// approval stands.
func (s *approvalServiceImpl) ApproveMember(ctx context.Context, communityID, memberID int64) error {
	member, err := s.loadCommunityMember(ctx, communityID, memberID)
	if err != nil {
		return err
	}

	if member.Status != models.MemberPending {
		return apperrors.ErrMemberNotPending
	}

	if err := s.memberStore.UpdateStatus(ctx, memberID, models.MemberApproved); err != nil {
		s.logger.Error().Err(err).Int64("memberID", memberID).Msg("Failed to approve member")
		return err
	}

	if member.IsHouseholdHead && member.UnitNumber != "" {
		s.linkHeadHousehold(ctx, member)
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventMemberApproved,
		CommunityID: communityID,
		MemberID:    memberID,
	})

	s.logger.Info().
		Int64("communityID", communityID).
		Int64("memberID", memberID).
		Msg("Member approved")

	return nil
}

// RejectMember sets a pending member to rejected. Rejection is
// terminal.
func (s *approvalServiceImpl) RejectMember(ctx context.Context, communityID, memberID int64) error {
	member, err := s.loadCommunityMember(ctx, communityID, memberID)
	if err != nil {
		return err
	}

	if member.Status != models.MemberPending {
		return apperrors.ErrMemberNotPending
	}

	if err := s.memberStore.UpdateStatus(ctx, memberID, models.MemberRejected); err != nil {
		s.logger.Error().Err(err).Int64("memberID", memberID).Msg("Failed to reject member")
		return err
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventMemberRejected,
		CommunityID: communityID,
		MemberID:    memberID,
	})

	return nil
}

// linkHeadHousehold resolves the household named by the member's unit
// number and links the member. Errors are logged and swallowed; the
// approval is never rolled back over a household link.
func (s *approvalServiceImpl) linkHeadHousehold(ctx context.Context, member *models.Member) {
	household, err := s.householdStore.GetOrCreateByName(ctx, member.CommunityID, member.UnitNumber)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("memberID", member.ID).
			Str("unitNumber", member.UnitNumber).
			Msg("Failed to resolve household for approved head; member left unlinked")
		return
	}

	if err := s.memberStore.LinkHousehold(ctx, member.ID, household.ID); err != nil {
		s.logger.Error().Err(err).
			Int64("memberID", member.ID).
			Int64("householdID", household.ID).
			Msg("Failed to link approved head to household; member left unlinked")
	}
}

func (s *approvalServiceImpl) loadCommunityMember(ctx context.Context, communityID, memberID int64) (*models.Member, error) {
	member, err := s.memberStore.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.CommunityID != communityID {
		return nil, apperrors.ErrMemberNotFound
	}
	return member, nil
}

func (s *approvalServiceImpl) publish(ctx context.Context, evt notify.Event) {
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("type", evt.Type).Msg("Failed to publish notification")
	}
}
