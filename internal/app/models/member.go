package models

import "time"

// MemberRole represents a user's role within a community
type MemberRole string

const (
	RoleManager        MemberRole = "manager"
	RoleGuard          MemberRole = "guard"
	RoleHeadOfSecurity MemberRole = "head_of_security"
	RoleResident       MemberRole = "resident"
)

// MemberStatus represents a member's lifecycle status. Transitions are
// one-directional except suspended<->approved; rejected is terminal.
type MemberStatus string

const (
	MemberPending   MemberStatus = "pending"
	MemberApproved  MemberStatus = "approved"
	MemberRejected  MemberStatus = "rejected"
	MemberSuspended MemberStatus = "suspended"
)

// Member represents one user's relationship to one community: role, approval
// status and household link. On a pending member IsHouseholdHead records the
// declared intent to head the unit named by UnitNumber; once linked, within
// one household at most one member is head at any instant, and unlinking
// always clears the flag.
type Member struct {
	ID              int64        `json:"id" db:"id"`
	CommunityID     int64        `json:"communityId" db:"community_id"`
	UserID          int64        `json:"userId" db:"user_id"`
	Role            MemberRole   `json:"role" db:"role"`
	Status          MemberStatus `json:"status" db:"status"`
	UnitNumber      string       `json:"unitNumber" db:"unit_number"` // free text, only meaningful before a household exists
	HouseholdID     *int64       `json:"householdId,omitempty" db:"household_id"`
	IsHouseholdHead bool         `json:"isHouseholdHead" db:"is_household_head"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" db:"updated_at"`

	// Related entities
	User      *User      `json:"user,omitempty"`
	Household *Household `json:"household,omitempty"`
}

// InHousehold reports whether the member is currently linked to a household.
func (m *Member) InHousehold() bool {
	return m.HouseholdID != nil
}
