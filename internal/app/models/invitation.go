package models

import "time"

// Invitation records an out-of-band household invite sent to an email address
// with no existing account. A placeholder user is created alongside the
// invitation so the household link can be established before the invitee
// accepts.
type Invitation struct {
	ID          int64      `json:"id" db:"id"`
	CommunityID int64      `json:"communityId" db:"community_id"`
	HouseholdID int64      `json:"householdId" db:"household_id"`
	Email       string     `json:"email" db:"email"`
	Token       string     `json:"-" db:"token"`
	InvitedBy   int64      `json:"invitedBy" db:"invited_by"` // member id of the inviter
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
