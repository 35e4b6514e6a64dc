package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/pkg/apperrors"
	authpkg "github.com/selimd/porta/internal/pkg/auth"
	"github.com/selimd/porta/internal/pkg/email"
	"github.com/selimd/porta/internal/pkg/notify"
)

// Store surfaces the household engine needs. The pgx repositories
// satisfy these; tests substitute in-memory fakes.
type householdStore interface {
	CreateHousehold(ctx context.Context, household *models.Household) (int64, error)
	GetHouseholdByID(ctx context.Context, id int64) (*models.Household, error)
	GetHouseholdsByCommunity(ctx context.Context, communityID int64) ([]*models.Household, error)
	UpdateStatus(ctx context.Context, id int64, status models.HouseholdStatus) error
	TransferHead(ctx context.Context, householdID, newHeadMemberID int64) error
	AdmitMember(ctx context.Context, memberID, householdID int64, maxResidents int) error
}

type householdMemberStore interface {
	CreateMember(ctx context.Context, member *models.Member) (int64, error)
	GetMemberByID(ctx context.Context, id int64) (*models.Member, error)
	GetMemberByCommunityAndUser(ctx context.Context, communityID, userID int64) (*models.Member, error)
	GetMembersByHousehold(ctx context.Context, householdID int64) ([]*models.Member, error)
	ClearHousehold(ctx context.Context, memberID int64) error
}

type householdUserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	ActivateUser(ctx context.Context, userID int64, firstName, lastName, hashedPassword string) error
}

type householdCommunityStore interface {
	GetCommunityByID(ctx context.Context, id int64) (*models.Community, error)
}

type householdInvitationStore interface {
	CreateInvitation(ctx context.Context, invitation *models.Invitation) (int64, error)
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	MarkAccepted(ctx context.Context, id int64) error
}

// HouseholdService owns household lifecycle, headship transfer,
// capacity-gated admission and member removal. All operations that act
// on a specific household re-validate that the caller is a community
// manager or that household's head.
type HouseholdService interface {
	CreateHousehold(ctx context.Context, callerUserID, communityID int64, req *dto.CreateHouseholdRequest) (*dto.HouseholdResponse, error)
	GetHousehold(ctx context.Context, callerUserID, communityID, householdID int64) (*dto.HouseholdResponse, error)
	GetHouseholds(ctx context.Context, callerUserID, communityID int64) ([]dto.HouseholdResponse, error)
	SetHouseholdStatus(ctx context.Context, callerUserID, communityID, householdID int64, status models.HouseholdStatus) error
	ChangeHead(ctx context.Context, callerUserID, communityID, householdID, newHeadMemberID int64) error
	AdmitMember(ctx context.Context, callerUserID, communityID, householdID, memberID int64) error
	RemoveMember(ctx context.Context, callerUserID, communityID, memberID int64) error
	InviteOrAttach(ctx context.Context, callerUserID, communityID, householdID int64, inviteeEmail string) (*dto.InvitationResponse, error)
	AcceptInvitation(ctx context.Context, token, firstName, lastName, password string) error
}

// householdServiceImpl implements HouseholdService
type householdServiceImpl struct {
	households  householdStore
	members     householdMemberStore
	users       householdUserStore
	communities householdCommunityStore
	invitations householdInvitationStore
	emailSender email.EmailService
	notifier    notify.Notifier
	logger      zerolog.Logger
}

// NewHouseholdService creates a new HouseholdService
func NewHouseholdService(
	households householdStore,
	members householdMemberStore,
	users householdUserStore,
	communities householdCommunityStore,
	invitations householdInvitationStore,
	emailSender email.EmailService,
	notifier notify.Notifier,
	logger zerolog.Logger,
) HouseholdService {
	return &householdServiceImpl{
		households:  households,
		members:     members,
		users:       users,
		communities: communities,
		invitations: invitations,
		emailSender: emailSender,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateHousehold creates a household explicitly. Managers only.
func (s *householdServiceImpl) CreateHousehold(ctx context.Context, callerUserID, communityID int64, req *dto.CreateHouseholdRequest) (*dto.HouseholdResponse, error) {
	if _, err := s.requireManager(ctx, callerUserID, communityID); err != nil {
		return nil, err
	}

	household := &models.Household{
		CommunityID: communityID,
		Name:        strings.TrimSpace(req.Name),
		Status:      models.HouseholdActive,
	}
	if req.ContactEmail != "" {
		contactEmail := req.ContactEmail
		household.ContactEmail = &contactEmail
	}

	id, err := s.households.CreateHousehold(ctx, household)
	if err != nil {
		return nil, err
	}
	household.ID = id

	resp := householdToResponse(household, nil)
	return &resp, nil
}

// GetHousehold returns a household with its members.
func (s *householdServiceImpl) GetHousehold(ctx context.Context, callerUserID, communityID, householdID int64) (*dto.HouseholdResponse, error) {
	if _, err := s.requireApprovedMember(ctx, callerUserID, communityID); err != nil {
		return nil, err
	}

	household, err := s.loadCommunityHousehold(ctx, communityID, householdID)
	if err != nil {
		return nil, err
	}

	members, err := s.members.GetMembersByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}

	resp := householdToResponse(household, members)
	return &resp, nil
}

// GetHouseholds lists a community's households.
func (s *householdServiceImpl) GetHouseholds(ctx context.Context, callerUserID, communityID int64) ([]dto.HouseholdResponse, error) {
	if _, err := s.requireManager(ctx, callerUserID, communityID); err != nil {
		return nil, err
	}

	households, err := s.households.GetHouseholdsByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.HouseholdResponse, 0, len(households))
	for _, h := range households {
		responses = append(responses, householdToResponse(h, nil))
	}
	return responses, nil
}

// SetHouseholdStatus suspends or reactivates a household. Managers
// only. A suspended household refuses new admissions; existing members
// stay linked.
func (s *householdServiceImpl) SetHouseholdStatus(ctx context.Context, callerUserID, communityID, householdID int64, status models.HouseholdStatus) error {
	if _, err := s.requireManager(ctx, callerUserID, communityID); err != nil {
		return err
	}

	if _, err := s.loadCommunityHousehold(ctx, communityID, householdID); err != nil {
		return err
	}

	return s.households.UpdateStatus(ctx, householdID, status)
}

// ChangeHead makes newHeadMemberID the household's single head. Every
// current head is demoted and the target promoted in one transaction,
// so no observer ever sees two heads or zero heads mid-transfer.
func (s *householdServiceImpl) ChangeHead(ctx context.Context, callerUserID, communityID, householdID, newHeadMemberID int64) error {
	if _, err := s.requireManagerOrHead(ctx, callerUserID, communityID, householdID); err != nil {
		return err
	}

	if _, err := s.loadCommunityHousehold(ctx, communityID, householdID); err != nil {
		return err
	}

	target, err := s.members.GetMemberByID(ctx, newHeadMemberID)
	if err != nil {
		return err
	}
	if target.CommunityID != communityID {
		return apperrors.ErrMemberNotFound
	}
	if target.HouseholdID == nil || *target.HouseholdID != householdID {
		return apperrors.ErrMemberNotInHousehold
	}

	// The transfer re-checks household membership inside the
	// transaction; the read above only produces the friendlier error
	// before any write happens.
	if err := s.households.TransferHead(ctx, householdID, newHeadMemberID); err != nil {
		return err
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventHeadChanged,
		CommunityID: communityID,
		HouseholdID: householdID,
		MemberID:    newHeadMemberID,
	})

	s.logger.Info().
		Int64("householdID", householdID).
		Int64("newHeadMemberID", newHeadMemberID).
		Msg("Household head changed")

	return nil
}

// AdmitMember attaches an approved community member to a household,
// subject to the community's resident limit. The count-and-assign runs
// in one transaction against the locked household row, so two
// concurrent admissions can never jointly exceed the limit.
func (s *householdServiceImpl) AdmitMember(ctx context.Context, callerUserID, communityID, householdID, memberID int64) error {
	if _, err := s.requireManagerOrHead(ctx, callerUserID, communityID, householdID); err != nil {
		return err
	}

	community, err := s.communities.GetCommunityByID(ctx, communityID)
	if err != nil {
		return err
	}

	target, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return err
	}
	if target.CommunityID != communityID {
		return apperrors.ErrMemberNotFound
	}
	if target.Status != models.MemberApproved {
		return apperrors.ErrMemberNotPending
	}

	if err := s.households.AdmitMember(ctx, memberID, householdID, community.MaxResidentsPerHousehold); err != nil {
		return err
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventMemberAdmitted,
		CommunityID: communityID,
		HouseholdID: householdID,
		MemberID:    memberID,
	})

	return nil
}

// RemoveMember unlinks a member from their household. The head flag is
// cleared in the same UPDATE, so an unlinked head can never be
// observed.
func (s *householdServiceImpl) RemoveMember(ctx context.Context, callerUserID, communityID, memberID int64) error {
	target, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return err
	}
	if target.CommunityID != communityID {
		return apperrors.ErrMemberNotFound
	}
	if target.HouseholdID == nil {
		return apperrors.ErrMemberNotInHousehold
	}

	if _, err := s.requireManagerOrHead(ctx, callerUserID, communityID, *target.HouseholdID); err != nil {
		return err
	}

	if err := s.members.ClearHousehold(ctx, memberID); err != nil {
		return err
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventMemberRemoved,
		CommunityID: communityID,
		HouseholdID: *target.HouseholdID,
		MemberID:    memberID,
	})

	return nil
}

// InviteOrAttach resolves an email address to a community member and
// attaches them to the household. An existing member already in a
// household fails with ErrAlreadyAssigned; an unknown email gets a
// placeholder account plus an invitation email, and is attached
// immediately. Every path goes through the capacity transaction.
func (s *householdServiceImpl) InviteOrAttach(ctx context.Context, callerUserID, communityID, householdID int64, inviteeEmail string) (*dto.InvitationResponse, error) {
	caller, err := s.requireManagerOrHead(ctx, callerUserID, communityID, householdID)
	if err != nil {
		return nil, err
	}

	household, err := s.loadCommunityHousehold(ctx, communityID, householdID)
	if err != nil {
		return nil, err
	}

	community, err := s.communities.GetCommunityByID(ctx, communityID)
	if err != nil {
		return nil, err
	}

	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))

	invited := false
	user, err := s.users.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		user, err = s.createPlaceholderUser(ctx, inviteeEmail)
		if err != nil {
			return nil, err
		}
		invited = true
	}

	memberID, err := s.resolveMember(ctx, communityID, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.households.AdmitMember(ctx, memberID, householdID, community.MaxResidentsPerHousehold); err != nil {
		return nil, err
	}

	if invited {
		if err := s.sendInvitation(ctx, caller.ID, household, community, inviteeEmail); err != nil {
			// The member is already attached; the invitee can still be
			// onboarded manually.
			s.logger.Error().Err(err).
				Str("email", inviteeEmail).
				Int64("householdID", householdID).
				Msg("Failed to record or send household invitation")
		}
	}

	s.publish(ctx, notify.Event{
		Type:        notify.EventMemberAdmitted,
		CommunityID: communityID,
		HouseholdID: householdID,
		MemberID:    memberID,
	})

	return &dto.InvitationResponse{
		MemberID:    memberID,
		HouseholdID: householdID,
		Email:       inviteeEmail,
		Invited:     invited,
	}, nil
}

// AcceptInvitation completes the placeholder account created by
// InviteOrAttach.
func (s *householdServiceImpl) AcceptInvitation(ctx context.Context, token, firstName, lastName, password string) error {
	invitation, err := s.invitations.GetInvitationByToken(ctx, token)
	if err != nil {
		return err
	}
	if invitation.AcceptedAt != nil {
		return apperrors.ErrInvitationNotFound
	}

	user, err := s.users.GetUserByEmail(ctx, invitation.Email)
	if err != nil {
		return err
	}

	hashed, err := authpkg.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.users.ActivateUser(ctx, user.ID, firstName, lastName, hashed); err != nil {
		return err
	}

	return s.invitations.MarkAccepted(ctx, invitation.ID)
}

// resolveMember returns the user's member id in the community, creating
// an approved resident record when none exists. A member already in a
// household fails with ErrAlreadyAssigned.
func (s *householdServiceImpl) resolveMember(ctx context.Context, communityID, userID int64) (int64, error) {
	member, err := s.members.GetMemberByCommunityAndUser(ctx, communityID, userID)
	if err == nil {
		if member.InHousehold() {
			return 0, apperrors.ErrAlreadyAssigned
		}
		return member.ID, nil
	}
	if !errors.Is(err, apperrors.ErrMemberNotFound) {
		return 0, err
	}

	return s.members.CreateMember(ctx, &models.Member{
		CommunityID: communityID,
		UserID:      userID,
		Role:        models.RoleResident,
		Status:      models.MemberApproved,
	})
}

func (s *householdServiceImpl) createPlaceholderUser(ctx context.Context, emailAddr string) (*models.User, error) {
	// The placeholder cannot log in until AcceptInvitation replaces the
	// throwaway password and activates the account.
	hashed, err := authpkg.HashPassword(uuid.New().String())
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    emailAddr,
		Password: hashed,
		IsActive: false,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (s *householdServiceImpl) sendInvitation(ctx context.Context, inviterMemberID int64, household *models.Household, community *models.Community, inviteeEmail string) error {
	token, err := email.GenerateInvitationToken()
	if err != nil {
		return err
	}

	if _, err := s.invitations.CreateInvitation(ctx, &models.Invitation{
		CommunityID: community.ID,
		HouseholdID: household.ID,
		Email:       inviteeEmail,
		Token:       token,
		InvitedBy:   inviterMemberID,
	}); err != nil {
		return err
	}

	return s.emailSender.SendInvitationEmail(inviteeEmail, household.Name, community.Name, token)
}

// requireApprovedMember resolves the caller's approved membership.
func (s *householdServiceImpl) requireApprovedMember(ctx context.Context, userID, communityID int64) (*models.Member, error) {
	member, err := s.members.GetMemberByCommunityAndUser(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMemberNotFound) {
			return nil, apperrors.ErrPermissionDenied
		}
		return nil, err
	}
	if member.Status != models.MemberApproved {
		return nil, apperrors.ErrPermissionDenied
	}
	return member, nil
}

func (s *householdServiceImpl) requireManager(ctx context.Context, userID, communityID int64) (*models.Member, error) {
	member, err := s.requireApprovedMember(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.RoleManager {
		return nil, apperrors.ErrPermissionDenied
	}
	return member, nil
}

// requireManagerOrHead admits community managers and the head of the
// given household. A head of a different household is denied.
func (s *householdServiceImpl) requireManagerOrHead(ctx context.Context, userID, communityID, householdID int64) (*models.Member, error) {
	member, err := s.requireApprovedMember(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if member.Role == models.RoleManager {
		return member, nil
	}
	if member.IsHouseholdHead && member.HouseholdID != nil && *member.HouseholdID == householdID {
		return member, nil
	}
	return nil, apperrors.ErrPermissionDenied
}

func (s *householdServiceImpl) loadCommunityHousehold(ctx context.Context, communityID, householdID int64) (*models.Household, error) {
	household, err := s.households.GetHouseholdByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if household.CommunityID != communityID {
		return nil, apperrors.ErrHouseholdNotFound
	}
	return household, nil
}

func (s *householdServiceImpl) publish(ctx context.Context, evt notify.Event) {
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("type", evt.Type).Msg("Failed to publish notification")
	}
}

func householdToResponse(h *models.Household, members []*models.Member) dto.HouseholdResponse {
	resp := dto.HouseholdResponse{
		ID:           h.ID,
		CommunityID:  h.CommunityID,
		Name:         h.Name,
		ContactEmail: h.ContactEmail,
		Status:       string(h.Status),
		CreatedAt:    h.CreatedAt,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, memberToResponse(m))
	}
	return resp
}
