package dto

import "time"

// CreateHouseholdRequest represents an explicit household creation by a manager
type CreateHouseholdRequest struct {
	Name         string `json:"name" binding:"required" example:"Unit-9"`
	ContactEmail string `json:"contactEmail,omitempty" binding:"omitempty,email"`
}

// ChangeHeadRequest designates a new household head
type ChangeHeadRequest struct {
	NewHeadMemberID int64 `json:"newHeadMemberId" binding:"required,min=1"`
}

// AdmitMemberRequest attaches an existing community member to a household
type AdmitMemberRequest struct {
	MemberID int64 `json:"memberId" binding:"required,min=1"`
}

// InviteMemberRequest invites a user by email into a household
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// HouseholdResponse represents a household in API responses
type HouseholdResponse struct {
	ID           int64            `json:"id"`
	CommunityID  int64            `json:"communityId"`
	Name         string           `json:"name"`
	ContactEmail *string          `json:"contactEmail,omitempty"`
	Status       string           `json:"status"`
	Members      []MemberResponse `json:"members,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// AcceptInvitationRequest completes a placeholder account created by an
// invitation
type AcceptInvitationRequest struct {
	Token     string `json:"token" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
}

// InvitationResponse represents the outcome of an invite
type InvitationResponse struct {
	MemberID    int64  `json:"memberId"`
	HouseholdID int64  `json:"householdId"`
	Email       string `json:"email"`
	Invited     bool   `json:"invited"` // true when a new invitation email was sent
}
