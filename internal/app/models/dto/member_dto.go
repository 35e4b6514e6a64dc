package dto

import "time"

// JoinCommunityRequest represents a user's request to join a community
type JoinCommunityRequest struct {
	Role            string `json:"role" binding:"omitempty,oneof=resident guard head_of_security" example:"resident"`
	UnitNumber      string `json:"unitNumber,omitempty" example:"Unit-9"`
	IsHouseholdHead bool   `json:"isHouseholdHead,omitempty"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID              int64         `json:"id"`
	CommunityID     int64         `json:"communityId"`
	UserID          int64         `json:"userId"`
	Role            string        `json:"role"`
	Status          string        `json:"status"`
	UnitNumber      string        `json:"unitNumber,omitempty"`
	HouseholdID     *int64        `json:"householdId,omitempty"`
	IsHouseholdHead bool          `json:"isHouseholdHead"`
	User            *UserResponse `json:"user,omitempty"`
	JoinedAt        time.Time     `json:"joinedAt"`
}

// MemberListResponse is a paged list of members
type MemberListResponse struct {
	Members        []MemberResponse `json:"members"`
	PaginationInfo PaginationInfo   `json:"pagination"`
}

// MemberFilterRequest carries list filters for community members
type MemberFilterRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending approved rejected suspended"`
	Role     string `form:"role" binding:"omitempty,oneof=manager guard head_of_security resident"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize,default=20" binding:"omitempty,min=1,max=100"`
}

// CreateCommunityRequest represents a community creation request
type CreateCommunityRequest struct {
	Name                     string `json:"name" binding:"required" example:"Cedar Park Residences"`
	Address                  string `json:"address,omitempty"`
	MaxResidentsPerHousehold int    `json:"maxResidentsPerHousehold,omitempty" binding:"omitempty,min=1"`
}

// CommunityResponse represents a community in API responses
type CommunityResponse struct {
	ID                       int64     `json:"id"`
	Name                     string    `json:"name"`
	Address                  string    `json:"address,omitempty"`
	MaxResidentsPerHousehold int       `json:"maxResidentsPerHousehold"`
	CreatedAt                time.Time `json:"createdAt"`
}
