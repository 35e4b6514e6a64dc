package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/auth"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/app/services"
	"github.com/selimd/porta/internal/middleware"
)

// GateController handles gate-side scan verification and entry logs
type GateController struct {
	verificationService services.VerificationService
	authzService        *auth.AuthorizationService
	logger              zerolog.Logger
}

// NewGateController creates a new GateController
func NewGateController(
	verificationService services.VerificationService,
	authzService *auth.AuthorizationService,
	logger zerolog.Logger,
) *GateController {
	return &GateController{
		verificationService: verificationService,
		authzService:        authzService,
		logger:              logger,
	}
}

// Verify decides a gate scan
// @Summary Verify an access code at the gate
// @Description Grants or denies a submitted 6-digit code. Service-provider codes toggle clock-in/clock-out. A denial is a 200 with granted=false; the HTTP layer only errors on auth or transport problems.
// @Tags gate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.VerifyRequest true "Scanned code"
// @Success 200 {object} dto.APIResponse{data=dto.VerificationResponse} "Verification decision"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a guard"
// @Failure 429 {object} dto.ErrorResponse "Scan rate limit hit"
// @Router /communities/{id}/gate/verify [post]
func (c *GateController) Verify(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	guard, err := c.authzService.RequireRole(ctx.Request.Context(), userID, communityID,
		models.RoleGuard, models.RoleHeadOfSecurity, models.RoleManager)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	result, err := c.verificationService.Verify(ctx.Request.Context(), communityID, guard.ID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// GetEntryLogs pages through a community's entry logs
// @Summary List entry logs
// @Tags gate
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param accessCodeId query int false "Filter by access code"
// @Param openOnly query bool false "Only open sessions"
// @Success 200 {object} dto.APIResponse{data=dto.EntryLogListResponse} "Entry logs"
// @Failure 403 {object} dto.ErrorResponse "Caller lacks a gate role"
// @Router /communities/{id}/entry-logs [get]
func (c *GateController) GetEntryLogs(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	if _, err := c.authzService.RequireRole(ctx.Request.Context(), userID, communityID,
		models.RoleGuard, models.RoleHeadOfSecurity, models.RoleManager); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var filter dto.EntryLogFilterRequest
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	logs, err := c.verificationService.GetEntryLogs(ctx.Request.Context(), communityID, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(logs))
}
