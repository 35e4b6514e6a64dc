package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/pkg/apperrors"
)

// HandleAPIError maps service errors to HTTP responses. All controllers
// funnel their error paths through here so status codes and error
// payloads stay consistent.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrCommunityNotFound),
		errors.Is(err, apperrors.ErrMemberNotFound),
		errors.Is(err, apperrors.ErrHouseholdNotFound),
		errors.Is(err, apperrors.ErrAccessCodeNotFound),
		errors.Is(err, apperrors.ErrInvitationNotFound):
		c.JSON(404, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error()),
		})
	case errors.Is(err, apperrors.ErrPermissionDenied):
		c.JSON(403, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied"),
		})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials"),
		})
	case errors.Is(err, apperrors.ErrAccountDisabled):
		c.JSON(403, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Account is disabled"),
		})
	case errors.Is(err, apperrors.ErrTokenExpired):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired"),
		})
	case errors.Is(err, apperrors.ErrTokenInvalid):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token"),
		})
	case errors.Is(err, apperrors.ErrTokenNotFound):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Token not found"),
		})
	case errors.Is(err, apperrors.ErrValidationFailed),
		errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error()),
		})
	case errors.Is(err, apperrors.ErrEmailAlreadyExists),
		errors.Is(err, apperrors.ErrCommunityAlreadyExists),
		errors.Is(err, apperrors.ErrMemberAlreadyExists),
		errors.Is(err, apperrors.ErrHouseholdExists):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, err.Error()),
		})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, err.Error()),
		})
	case errors.Is(err, apperrors.ErrAlreadyAssigned):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeAlreadyAssigned, "User is already assigned to a household"),
		})
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeCapacityExceeded, "Household resident limit reached"),
		})
	case errors.Is(err, apperrors.ErrMemberNotPending),
		errors.Is(err, apperrors.ErrMemberNotInHousehold),
		errors.Is(err, apperrors.ErrHouseholdSuspended),
		errors.Is(err, apperrors.ErrCodeSuspended),
		errors.Is(err, apperrors.ErrCodeNotYetActive),
		errors.Is(err, apperrors.ErrCodeExpired),
		errors.Is(err, apperrors.ErrCodeAlreadyUsed),
		errors.Is(err, apperrors.ErrCodeLimitExhausted):
		c.JSON(422, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidState, err.Error()),
		})
	case errors.Is(err, apperrors.ErrEntryLogWriteFailed):
		c.JSON(503, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeLogFailed, "Entry could not be recorded"),
		})
	case errors.Is(err, apperrors.ErrDependencyFailure):
		c.JSON(503, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Store operation failed"),
		})
	default:
		c.JSON(500, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		})
	}
}
