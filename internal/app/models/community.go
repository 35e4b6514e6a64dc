package models

import "time"

// Community represents one managed residential community (estate, compound,
// gated site). All membership, household and access-code records are scoped
// to a community.
type Community struct {
	ID                       int64     `json:"id" db:"id"`
	Name                     string    `json:"name" db:"name"`
	Address                  string    `json:"address" db:"address"`
	MaxResidentsPerHousehold int       `json:"maxResidentsPerHousehold" db:"max_residents_per_household"`
	CreatedAt                time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                time.Time `json:"updatedAt" db:"updated_at"`
}

// HouseholdStatus represents the lifecycle status of a household
type HouseholdStatus string

const (
	HouseholdActive    HouseholdStatus = "active"
	HouseholdSuspended HouseholdStatus = "suspended"
)

// Household represents a physical unit within a community. Identity is
// (community_id, name); creation is lazy, either by a manager or the first
// time a pending household head is approved with a matching unit number.
type Household struct {
	ID           int64           `json:"id" db:"id"`
	CommunityID  int64           `json:"communityId" db:"community_id"`
	Name         string          `json:"name" db:"name"`
	ContactEmail *string         `json:"contactEmail,omitempty" db:"contact_email"`
	Status       HouseholdStatus `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`

	// Related entities
	Members []*Member `json:"members,omitempty"`
}
