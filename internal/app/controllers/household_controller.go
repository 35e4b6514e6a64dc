package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/app/services"
	"github.com/selimd/porta/internal/middleware"
)

// HouseholdController handles household and headship operations
type HouseholdController struct {
	householdService services.HouseholdService
	logger           zerolog.Logger
}

// NewHouseholdController creates a new HouseholdController
func NewHouseholdController(householdService services.HouseholdService, logger zerolog.Logger) *HouseholdController {
	return &HouseholdController{
		householdService: householdService,
		logger:           logger,
	}
}

// CreateHousehold creates a household explicitly
// @Summary Create a household
// @Tags households
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.CreateHouseholdRequest true "Household information"
// @Success 201 {object} dto.APIResponse{data=dto.HouseholdResponse} "Household created"
// @Failure 409 {object} dto.ErrorResponse "Unit name already taken"
// @Router /communities/{id}/households [post]
func (c *HouseholdController) CreateHousehold(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	var req dto.CreateHouseholdRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	household, err := c.householdService.CreateHousehold(ctx.Request.Context(), userID, communityID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(household))
}

// GetHouseholds lists a community's households
// @Summary List households
// @Tags households
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.HouseholdResponse} "Households"
// @Router /communities/{id}/households [get]
func (c *HouseholdController) GetHouseholds(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	households, err := c.householdService.GetHouseholds(ctx.Request.Context(), userID, communityID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(households))
}

// GetHousehold returns a household with its members
// @Summary Get a household
// @Tags households
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param householdId path int true "Household ID"
// @Success 200 {object} dto.APIResponse{data=dto.HouseholdResponse} "Household"
// @Failure 404 {object} dto.ErrorResponse "Household not found"
// @Router /communities/{id}/households/{householdId} [get]
func (c *HouseholdController) GetHousehold(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, householdID, ok := c.householdPathParams(ctx)
	if !ok {
		return
	}

	household, err := c.householdService.GetHousehold(ctx.Request.Context(), userID, communityID, householdID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(household))
}

// SetHouseholdStatus suspends or reactivates a household
// @Summary Suspend or reactivate a household
// @Tags households
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param householdId path int true "Household ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Status updated"
// @Router /communities/{id}/households/{householdId}/status [put]
func (c *HouseholdController) SetHouseholdStatus(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, householdID, ok := c.householdPathParams(ctx)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=active suspended"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.householdService.SetHouseholdStatus(ctx.Request.Context(), userID, communityID, householdID, models.HouseholdStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Household status updated"}))
}

// ChangeHead transfers household headship
// @Summary Change the household head
// @Description Demotes the current head and promotes the target member in one transaction.
// @Tags households
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param householdId path int true "Household ID"
// @Param request body dto.ChangeHeadRequest true "New head"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Head changed"
// @Failure 422 {object} dto.ErrorResponse "Target member is not in the household"
// @Router /communities/{id}/households/{householdId}/head [post]
func (c *HouseholdController) ChangeHead(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, householdID, ok := c.householdPathParams(ctx)
	if !ok {
		return
	}

	var req dto.ChangeHeadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.householdService.ChangeHead(ctx.Request.Context(), userID, communityID, householdID, req.NewHeadMemberID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Household head changed"}))
}

// AdmitMember attaches a member to a household
// @Summary Admit a member into a household
// @Description Subject to the community's resident limit; the count and the assignment run in one transaction.
// @Tags households
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param householdId path int true "Household ID"
// @Param request body dto.AdmitMemberRequest true "Member to admit"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Member admitted"
// @Failure 409 {object} dto.ErrorResponse "Resident limit reached or member already assigned"
// @Router /communities/{id}/households/{householdId}/members [post]
func (c *HouseholdController) AdmitMember(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, householdID, ok := c.householdPathParams(ctx)
	if !ok {
		return
	}

	var req dto.AdmitMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.householdService.AdmitMember(ctx.Request.Context(), userID, communityID, householdID, req.MemberID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Member admitted"}))
}

// RemoveMember unlinks a member from their household
// @Summary Remove a member from their household
// @Description Clears the household link and the head flag together.
// @Tags households
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param memberId path int true "Member ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Member removed"
// @Failure 422 {object} dto.ErrorResponse "Member is not in a household"
// @Router /communities/{id}/household-members/{memberId} [delete]
func (c *HouseholdController) RemoveMember(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}
	memberID, ok := parseIDParam(ctx, "memberId", "member ID")
	if !ok {
		return
	}

	err := c.householdService.RemoveMember(ctx.Request.Context(), userID, communityID, memberID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Member removed from household"}))
}

// InviteMember invites an email address into a household
// @Summary Invite or attach a member by email
// @Description Attaches an existing user to the household, or creates a placeholder account and emails an invitation.
// @Tags households
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param householdId path int true "Household ID"
// @Param request body dto.InviteMemberRequest true "Invitee email"
// @Success 200 {object} dto.APIResponse{data=dto.InvitationResponse} "Member attached"
// @Failure 409 {object} dto.ErrorResponse "Already assigned or resident limit reached"
// @Router /communities/{id}/households/{householdId}/invite [post]
func (c *HouseholdController) InviteMember(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, householdID, ok := c.householdPathParams(ctx)
	if !ok {
		return
	}

	var req dto.InviteMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	result, err := c.householdService.InviteOrAttach(ctx.Request.Context(), userID, communityID, householdID, req.Email)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// AcceptInvitation completes an invited placeholder account
// @Summary Accept a household invitation
// @Tags households
// @Accept json
// @Produce json
// @Param request body dto.AcceptInvitationRequest true "Invitation token and account details"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Invitation accepted"
// @Failure 404 {object} dto.ErrorResponse "Invitation not found or already used"
// @Router /invitations/accept [post]
func (c *HouseholdController) AcceptInvitation(ctx *gin.Context) {
	var req dto.AcceptInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.householdService.AcceptInvitation(ctx.Request.Context(), req.Token, req.FirstName, req.LastName, req.Password)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Invitation accepted, you can now log in"}))
}

func (c *HouseholdController) householdPathParams(ctx *gin.Context) (communityID, householdID int64, ok bool) {
	communityID, ok = parseIDParam(ctx, "id", "community ID")
	if !ok {
		return 0, 0, false
	}
	householdID, ok = parseIDParam(ctx, "householdId", "household ID")
	if !ok {
		return 0, 0, false
	}
	return communityID, householdID, true
}
