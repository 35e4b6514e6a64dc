package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/auth"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/app/repositories"
	"github.com/selimd/porta/internal/pkg/apperrors"
)

// CommunityService defines the interface for community and membership
// listing operations.
type CommunityService interface {
	CreateCommunity(ctx context.Context, userID int64, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error)
	GetAllCommunities(ctx context.Context) ([]dto.CommunityResponse, error)
	JoinCommunity(ctx context.Context, userID, communityID int64, req *dto.JoinCommunityRequest) (*dto.MemberResponse, error)
	GetMembers(ctx context.Context, callerID, communityID int64, filter *dto.MemberFilterRequest) (*dto.MemberListResponse, error)
	UpdateMemberRole(ctx context.Context, callerID, communityID, memberID int64, role models.MemberRole) error
}

// communityServiceImpl implements CommunityService
type communityServiceImpl struct {
	communityRepo       *repositories.CommunityRepository
	memberRepo          *repositories.MemberRepository
	userRepo            *repositories.UserRepository
	authzService        *auth.AuthorizationService
	defaultMaxResidents int
	logger              zerolog.Logger
}

// NewCommunityService creates a new CommunityService. defaultMaxResidents
// is applied when a community is created without an explicit cap.
func NewCommunityService(
	communityRepo *repositories.CommunityRepository,
	memberRepo *repositories.MemberRepository,
	userRepo *repositories.UserRepository,
	authzService *auth.AuthorizationService,
	defaultMaxResidents int,
	logger zerolog.Logger,
) CommunityService {
	return &communityServiceImpl{
		communityRepo:       communityRepo,
		memberRepo:          memberRepo,
		userRepo:            userRepo,
		authzService:        authzService,
		defaultMaxResidents: defaultMaxResidents,
		logger:              logger,
	}
}

// CreateCommunity creates a community; the creator becomes its first
// approved manager.
func (s *communityServiceImpl) CreateCommunity(ctx context.Context, userID int64, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error) {
	maxResidents := req.MaxResidentsPerHousehold
	if maxResidents <= 0 {
		maxResidents = s.defaultMaxResidents
	}

	community := &models.Community{
		Name:                     strings.TrimSpace(req.Name),
		Address:                  req.Address,
		MaxResidentsPerHousehold: maxResidents,
	}

	id, err := s.communityRepo.CreateCommunity(ctx, community)
	if err != nil {
		s.logger.Error().Err(err).Str("name", community.Name).Msg("Failed to create community")
		return nil, err
	}
	community.ID = id

	manager := &models.Member{
		CommunityID: id,
		UserID:      userID,
		Role:        models.RoleManager,
		Status:      models.MemberApproved,
	}
	if _, err := s.memberRepo.CreateMember(ctx, manager); err != nil {
		s.logger.Error().Err(err).Int64("communityID", id).Int64("userID", userID).
			Msg("Failed to create manager membership for new community")
		return nil, err
	}

	s.logger.Info().Int64("communityID", id).Int64("userID", userID).Msg("Community created")

	resp := communityToResponse(community)
	return &resp, nil
}

// GetAllCommunities lists all communities.
func (s *communityServiceImpl) GetAllCommunities(ctx context.Context) ([]dto.CommunityResponse, error) {
	communities, err := s.communityRepo.GetAllCommunities(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CommunityResponse, 0, len(communities))
	for _, c := range communities {
		responses = append(responses, communityToResponse(c))
	}
	return responses, nil
}

// JoinCommunity files a pending membership request. The Approval Engine
// later promotes or rejects it.
func (s *communityServiceImpl) JoinCommunity(ctx context.Context, userID, communityID int64, req *dto.JoinCommunityRequest) (*dto.MemberResponse, error) {
	if _, err := s.communityRepo.GetCommunityByID(ctx, communityID); err != nil {
		return nil, err
	}

	role := models.RoleResident
	if req.Role != "" {
		role = models.MemberRole(req.Role)
	}
	if role == models.RoleManager {
		return nil, apperrors.ErrPermissionDenied
	}

	member := &models.Member{
		CommunityID:     communityID,
		UserID:          userID,
		Role:            role,
		Status:          models.MemberPending,
		UnitNumber:      strings.TrimSpace(req.UnitNumber),
		IsHouseholdHead: req.IsHouseholdHead && role == models.RoleResident,
	}

	id, err := s.memberRepo.CreateMember(ctx, member)
	if err != nil {
		return nil, err
	}
	member.ID = id

	s.logger.Info().
		Int64("communityID", communityID).
		Int64("userID", userID).
		Str("role", string(role)).
		Msg("Join request filed")

	resp := memberToResponse(member)
	return &resp, nil
}

// GetMembers lists a community's members. Managers and heads of
// security only.
func (s *communityServiceImpl) GetMembers(ctx context.Context, callerID, communityID int64, filter *dto.MemberFilterRequest) (*dto.MemberListResponse, error) {
	if _, err := s.authzService.RequireRole(ctx, callerID, communityID, models.RoleManager, models.RoleHeadOfSecurity); err != nil {
		return nil, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	members, total, err := s.memberRepo.GetMembersByCommunity(ctx, communityID, filter.Status, filter.Role, page, pageSize)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, memberToResponse(m))
	}

	return &dto.MemberListResponse{
		Members:        responses,
		PaginationInfo: dto.NewPaginationInfo(page, pageSize, total),
	}, nil
}

// UpdateMemberRole assigns a new role to a member. Managers only; the
// manager role itself cannot be granted this way.
func (s *communityServiceImpl) UpdateMemberRole(ctx context.Context, callerID, communityID, memberID int64, role models.MemberRole) error {
	if _, err := s.authzService.RequireRole(ctx, callerID, communityID, models.RoleManager); err != nil {
		return err
	}
	if role == models.RoleManager {
		return apperrors.ErrPermissionDenied
	}

	member, err := s.memberRepo.GetMemberByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member.CommunityID != communityID {
		return apperrors.ErrMemberNotFound
	}

	return s.memberRepo.UpdateRole(ctx, memberID, role)
}

func communityToResponse(c *models.Community) dto.CommunityResponse {
	return dto.CommunityResponse{
		ID:                       c.ID,
		Name:                     c.Name,
		Address:                  c.Address,
		MaxResidentsPerHousehold: c.MaxResidentsPerHousehold,
		CreatedAt:                c.CreatedAt,
	}
}

func memberToResponse(m *models.Member) dto.MemberResponse {
	resp := dto.MemberResponse{
		ID:              m.ID,
		CommunityID:     m.CommunityID,
		UserID:          m.UserID,
		Role:            string(m.Role),
		Status:          string(m.Status),
		UnitNumber:      m.UnitNumber,
		HouseholdID:     m.HouseholdID,
		IsHouseholdHead: m.IsHouseholdHead,
		JoinedAt:        m.CreatedAt,
	}
	if m.User != nil {
		resp.User = &dto.UserResponse{
			ID:        m.User.ID,
			Email:     m.User.Email,
			FirstName: m.User.FirstName,
			LastName:  m.User.LastName,
		}
	}
	return resp
}
