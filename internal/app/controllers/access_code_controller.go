package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/app/services"
	"github.com/selimd/porta/internal/middleware"
)

// AccessCodeController handles access code issuance and management
type AccessCodeController struct {
	accessCodeService services.AccessCodeService
	logger            zerolog.Logger
}

// NewAccessCodeController creates a new AccessCodeController
func NewAccessCodeController(accessCodeService services.AccessCodeService, logger zerolog.Logger) *AccessCodeController {
	return &AccessCodeController{
		accessCodeService: accessCodeService,
		logger:            logger,
	}
}

// CreateAccessCode issues a new access code
// @Summary Issue an access code
// @Description Issues a 6-digit visitor or service-provider code with a validity window and optional usage limits.
// @Tags access-codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.CreateAccessCodeRequest true "Code details"
// @Success 201 {object} dto.APIResponse{data=dto.AccessCodeResponse} "Code issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid validity window"
// @Router /communities/{id}/access-codes [post]
func (c *AccessCodeController) CreateAccessCode(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	var req dto.CreateAccessCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	code, err := c.accessCodeService.CreateAccessCode(ctx.Request.Context(), userID, communityID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(code))
}

// GetMyAccessCodes lists the caller's issued codes
// @Summary List my access codes
// @Tags access-codes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.AccessCodeResponse} "Codes"
// @Router /communities/{id}/access-codes [get]
func (c *AccessCodeController) GetMyAccessCodes(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	codes, err := c.accessCodeService.GetMyAccessCodes(ctx.Request.Context(), userID, communityID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(codes))
}

// RescheduleAccessCode moves a code's validity window
// @Summary Reschedule an access code
// @Tags access-codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param codeId path int true "Access code ID"
// @Param request body dto.RescheduleAccessCodeRequest true "New validity window"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Code rescheduled"
// @Failure 404 {object} dto.ErrorResponse "Code not found or not owned by caller"
// @Router /communities/{id}/access-codes/{codeId}/reschedule [put]
func (c *AccessCodeController) RescheduleAccessCode(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, codeID, ok := c.codePathParams(ctx)
	if !ok {
		return
	}

	var req dto.RescheduleAccessCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.accessCodeService.RescheduleAccessCode(ctx.Request.Context(), userID, communityID, codeID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Access code rescheduled"}))
}

// SetAccessCodeActive suspends or resumes a code
// @Summary Suspend or resume an access code
// @Tags access-codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param codeId path int true "Access code ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Code updated"
// @Router /communities/{id}/access-codes/{codeId}/active [put]
func (c *AccessCodeController) SetAccessCodeActive(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, codeID, ok := c.codePathParams(ctx)
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.accessCodeService.SetAccessCodeActive(ctx.Request.Context(), userID, communityID, codeID, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Access code updated"}))
}

// DeleteAccessCode removes a code
// @Summary Delete an access code
// @Tags access-codes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param codeId path int true "Access code ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Code deleted"
// @Router /communities/{id}/access-codes/{codeId} [delete]
func (c *AccessCodeController) DeleteAccessCode(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, codeID, ok := c.codePathParams(ctx)
	if !ok {
		return
	}

	err := c.accessCodeService.DeleteAccessCode(ctx.Request.Context(), userID, communityID, codeID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Access code deleted"}))
}

func (c *AccessCodeController) codePathParams(ctx *gin.Context) (communityID, codeID int64, ok bool) {
	communityID, ok = parseIDParam(ctx, "id", "community ID")
	if !ok {
		return 0, 0, false
	}
	codeID, ok = parseIDParam(ctx, "codeId", "access code ID")
	if !ok {
		return 0, 0, false
	}
	return communityID, codeID, true
}
