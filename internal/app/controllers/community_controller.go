package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/auth"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/app/services"
	"github.com/selimd/porta/internal/middleware"
)

// CommunityController handles community, membership and approval
// operations
type CommunityController struct {
	communityService services.CommunityService
	approvalService  services.ApprovalService
	authzService     *auth.AuthorizationService
	logger           zerolog.Logger
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(
	communityService services.CommunityService,
	approvalService services.ApprovalService,
	authzService *auth.AuthorizationService,
	logger zerolog.Logger,
) *CommunityController {
	return &CommunityController{
		communityService: communityService,
		approvalService:  approvalService,
		authzService:     authzService,
		logger:           logger,
	}
}

// CreateCommunity handles creating a new community
// @Summary Create a community
// @Description Creates a community; the caller becomes its first manager.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCommunityRequest true "Community information"
// @Success 201 {object} dto.APIResponse{data=dto.CommunityResponse} "Community created"
// @Failure 409 {object} dto.ErrorResponse "Community name already taken"
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)

	var req dto.CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	community, err := c.communityService.CreateCommunity(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(community))
}

// GetCommunities lists all communities
// @Summary List communities
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CommunityResponse} "Communities"
// @Router /communities [get]
func (c *CommunityController) GetCommunities(ctx *gin.Context) {
	communities, err := c.communityService.GetAllCommunities(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(communities))
}

// JoinCommunity files a membership request
// @Summary Request to join a community
// @Description Creates a pending membership; a manager approves or rejects it.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.JoinCommunityRequest true "Join details"
// @Success 201 {object} dto.APIResponse{data=dto.MemberResponse} "Join request filed"
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /communities/{id}/join [post]
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	var req dto.JoinCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	member, err := c.communityService.JoinCommunity(ctx.Request.Context(), userID, communityID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(member))
}

// GetMembers lists a community's members
// @Summary List community members
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param status query string false "Filter by status"
// @Param role query string false "Filter by role"
// @Success 200 {object} dto.APIResponse{data=dto.MemberListResponse} "Members"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a manager or head of security"
// @Router /communities/{id}/members [get]
func (c *CommunityController) GetMembers(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, ok := parseIDParam(ctx, "id", "community ID")
	if !ok {
		return
	}

	var filter dto.MemberFilterRequest
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	members, err := c.communityService.GetMembers(ctx.Request.Context(), userID, communityID, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// ApproveMember approves a pending member
// @Summary Approve a pending member
// @Description Promotes a pending member to approved. Declared household heads are linked to their unit's household, creating it on first approval.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param memberId path int true "Member ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Member approved"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Failure 422 {object} dto.ErrorResponse "Member is not pending"
// @Router /communities/{id}/members/{memberId}/approve [post]
func (c *CommunityController) ApproveMember(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, memberID, ok := c.memberPathParams(ctx)
	if !ok {
		return
	}

	if _, err := c.authzService.RequireRole(ctx.Request.Context(), userID, communityID, models.RoleManager); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.approvalService.ApproveMember(ctx.Request.Context(), communityID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Member approved"}))
}

// RejectMember rejects a pending member
// @Summary Reject a pending member
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param memberId path int true "Member ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Member rejected"
// @Failure 422 {object} dto.ErrorResponse "Member is not pending"
// @Router /communities/{id}/members/{memberId}/reject [post]
func (c *CommunityController) RejectMember(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, memberID, ok := c.memberPathParams(ctx)
	if !ok {
		return
	}

	if _, err := c.authzService.RequireRole(ctx.Request.Context(), userID, communityID, models.RoleManager); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.approvalService.RejectMember(ctx.Request.Context(), communityID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Member rejected"}))
}

// UpdateMemberRole assigns a member's role
// @Summary Update a member's role
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param memberId path int true "Member ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Role updated"
// @Router /communities/{id}/members/{memberId}/role [put]
func (c *CommunityController) UpdateMemberRole(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	communityID, memberID, ok := c.memberPathParams(ctx)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,oneof=guard head_of_security resident"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	err := c.communityService.UpdateMemberRole(ctx.Request.Context(), userID, communityID, memberID, models.MemberRole(req.Role))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Role updated"}))
}

func (c *CommunityController) memberPathParams(ctx *gin.Context) (communityID, memberID int64, ok bool) {
	communityID, ok = parseIDParam(ctx, "id", "community ID")
	if !ok {
		return 0, 0, false
	}
	memberID, ok = parseIDParam(ctx, "memberId", "member ID")
	if !ok {
		return 0, 0, false
	}
	return communityID, memberID, true
}

// parseIDParam parses a numeric path parameter, writing a 400 response
// on failure.
func parseIDParam(ctx *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id < 1 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label)
		errorDetail = errorDetail.WithDetails(label + " must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}
