package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/selimd/porta/internal/app/controllers"
	"github.com/selimd/porta/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	communityController *controllers.CommunityController,
	householdController *controllers.HouseholdController,
	accessCodeController *controllers.AccessCodeController,
	gateController *controllers.GateController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
		auth.POST("/logout", authController.Logout)
	}

	// Invitation acceptance is public: the invitee has no credentials
	// yet, only the emailed token.
	v1.POST("/invitations/accept", householdController.AcceptInvitation)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		communities := authenticated.Group("/communities")
		{
			communities.POST("", communityController.CreateCommunity)
			communities.GET("", communityController.GetCommunities)
			communities.POST("/:id/join", communityController.JoinCommunity)

			// Community-scoped role checks happen in the services and
			// controllers: roles live on the member row, not the token.
			communities.GET("/:id/members", communityController.GetMembers)
			communities.POST("/:id/members/:memberId/approve", communityController.ApproveMember)
			communities.POST("/:id/members/:memberId/reject", communityController.RejectMember)
			communities.PUT("/:id/members/:memberId/role", communityController.UpdateMemberRole)

			communities.POST("/:id/households", householdController.CreateHousehold)
			communities.GET("/:id/households", householdController.GetHouseholds)
			communities.GET("/:id/households/:householdId", householdController.GetHousehold)
			communities.PUT("/:id/households/:householdId/status", householdController.SetHouseholdStatus)
			communities.POST("/:id/households/:householdId/head", householdController.ChangeHead)
			communities.POST("/:id/households/:householdId/members", householdController.AdmitMember)
			communities.POST("/:id/households/:householdId/invite", householdController.InviteMember)
			communities.DELETE("/:id/household-members/:memberId", householdController.RemoveMember)

			communities.POST("/:id/access-codes", accessCodeController.CreateAccessCode)
			communities.GET("/:id/access-codes", accessCodeController.GetMyAccessCodes)
			communities.PUT("/:id/access-codes/:codeId/reschedule", accessCodeController.RescheduleAccessCode)
			communities.PUT("/:id/access-codes/:codeId/active", accessCodeController.SetAccessCodeActive)
			communities.DELETE("/:id/access-codes/:codeId", accessCodeController.DeleteAccessCode)

			communities.POST("/:id/gate/verify", rateLimitMiddleware.Limit(), gateController.Verify)
			communities.GET("/:id/entry-logs", gateController.GetEntryLogs)
		}
	}
}
