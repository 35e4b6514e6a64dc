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

// AccessCodeService covers issuance and host-side management of access
// codes. Scan-time behavior lives in VerificationService.
type AccessCodeService interface {
	CreateAccessCode(ctx context.Context, callerUserID, communityID int64, req *dto.CreateAccessCodeRequest) (*dto.AccessCodeResponse, error)
	GetMyAccessCodes(ctx context.Context, callerUserID, communityID int64) ([]dto.AccessCodeResponse, error)
	RescheduleAccessCode(ctx context.Context, callerUserID, communityID, codeID int64, req *dto.RescheduleAccessCodeRequest) error
	SetAccessCodeActive(ctx context.Context, callerUserID, communityID, codeID int64, active bool) error
	DeleteAccessCode(ctx context.Context, callerUserID, communityID, codeID int64) error
}

// accessCodeServiceImpl implements AccessCodeService
type accessCodeServiceImpl struct {
	accessCodeRepo *repositories.AccessCodeRepository
	authzService   *auth.AuthorizationService
	logger         zerolog.Logger
}

// NewAccessCodeService creates a new AccessCodeService
func NewAccessCodeService(
	accessCodeRepo *repositories.AccessCodeRepository,
	authzService *auth.AuthorizationService,
	logger zerolog.Logger,
) AccessCodeService {
	return &accessCodeServiceImpl{
		accessCodeRepo: accessCodeRepo,
		authzService:   authzService,
		logger:         logger,
	}
}

// CreateAccessCode issues a new code on behalf of the calling member.
func (s *accessCodeServiceImpl) CreateAccessCode(ctx context.Context, callerUserID, communityID int64, req *dto.CreateAccessCodeRequest) (*dto.AccessCodeResponse, error) {
	host, err := s.authzService.RequireMember(ctx, callerUserID, communityID)
	if err != nil {
		return nil, err
	}

	if !req.ValidUntil.After(req.ValidFrom) {
		return nil, apperrors.NewBadRequestError("validUntil must be after validFrom")
	}

	code := &models.AccessCode{
		CommunityID: communityID,
		HostID:      host.ID,
		VisitorName: strings.TrimSpace(req.VisitorName),
		CodeType:    models.AccessCodeType(req.CodeType),
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		IsOneTime:   req.IsOneTime,
	}
	// A one-time code is its own cap.
	if !req.IsOneTime {
		code.MaxUses = req.MaxUses
	}
	if req.VehiclePlate != "" {
		plate := req.VehiclePlate
		code.VehiclePlate = &plate
	}

	created, err := s.accessCodeRepo.CreateAccessCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("communityID", communityID).
			Int64("hostID", host.ID).
			Msg("Failed to issue access code")
		return nil, err
	}

	s.logger.Info().
		Int64("codeID", created.ID).
		Int64("hostID", host.ID).
		Str("codeType", string(created.CodeType)).
		Msg("Access code issued")

	resp := accessCodeToResponse(created)
	return &resp, nil
}

// GetMyAccessCodes lists the caller's issued codes.
func (s *accessCodeServiceImpl) GetMyAccessCodes(ctx context.Context, callerUserID, communityID int64) ([]dto.AccessCodeResponse, error) {
	host, err := s.authzService.RequireMember(ctx, callerUserID, communityID)
	if err != nil {
		return nil, err
	}

	codes, err := s.accessCodeRepo.GetAccessCodesByHost(ctx, host.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AccessCodeResponse, 0, len(codes))
	for _, c := range codes {
		responses = append(responses, accessCodeToResponse(c))
	}
	return responses, nil
}

// RescheduleAccessCode moves a code's validity window. Hosts can only
// touch their own codes; the host-scoped UPDATE enforces that.
func (s *accessCodeServiceImpl) RescheduleAccessCode(ctx context.Context, callerUserID, communityID, codeID int64, req *dto.RescheduleAccessCodeRequest) error {
	host, err := s.authzService.RequireMember(ctx, callerUserID, communityID)
	if err != nil {
		return err
	}

	if !req.ValidUntil.After(req.ValidFrom) {
		return apperrors.NewBadRequestError("validUntil must be after validFrom")
	}

	return s.accessCodeRepo.Reschedule(ctx, codeID, host.ID, req.ValidFrom, req.ValidUntil)
}

// SetAccessCodeActive suspends or resumes one of the caller's codes.
func (s *accessCodeServiceImpl) SetAccessCodeActive(ctx context.Context, callerUserID, communityID, codeID int64, active bool) error {
	host, err := s.authzService.RequireMember(ctx, callerUserID, communityID)
	if err != nil {
		return err
	}

	return s.accessCodeRepo.SetActive(ctx, codeID, host.ID, active)
}

// DeleteAccessCode removes one of the caller's codes.
func (s *accessCodeServiceImpl) DeleteAccessCode(ctx context.Context, callerUserID, communityID, codeID int64) error {
	host, err := s.authzService.RequireMember(ctx, callerUserID, communityID)
	if err != nil {
		return err
	}

	return s.accessCodeRepo.DeleteAccessCode(ctx, codeID, host.ID)
}

func accessCodeToResponse(c *models.AccessCode) dto.AccessCodeResponse {
	return dto.AccessCodeResponse{
		ID:           c.ID,
		VisitorName:  c.VisitorName,
		AccessCode:   c.AccessCode,
		CodeType:     string(c.CodeType),
		ValidFrom:    c.ValidFrom,
		ValidUntil:   c.ValidUntil,
		IsOneTime:    c.IsOneTime,
		MaxUses:      c.MaxUses,
		UsageCount:   c.UsageCount,
		UsedAt:       c.UsedAt,
		IsActive:     c.IsActive,
		VehiclePlate: c.VehiclePlate,
		CreatedAt:    c.CreatedAt,
	}
}
