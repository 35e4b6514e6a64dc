package models

import "time"

// EntryLog is one granted physical entry. For service-provider codes an entry
// with a null ExitedAt is an open session (the provider is clocked in); at
// most one open session may exist per access code at any time.
type EntryLog struct {
	ID           int64          `json:"id" db:"id"`
	CommunityID  int64          `json:"communityId" db:"community_id"`
	AccessCodeID int64          `json:"accessCodeId" db:"access_code_id"`
	GuardID      int64          `json:"guardId" db:"guard_id"`
	CodeType     AccessCodeType `json:"codeType" db:"code_type"`
	EnteredAt    time.Time      `json:"enteredAt" db:"entered_at"`
	ExitedAt     *time.Time     `json:"exitedAt,omitempty" db:"exited_at"`
	EntryPoint   string         `json:"entryPoint" db:"entry_point"`
	ExitPoint    *string        `json:"exitPoint,omitempty" db:"exit_point"`

	// Related entities
	AccessCode *AccessCode `json:"accessCode,omitempty"`
}

// IsOpen reports whether the log row represents an open session.
func (l *EntryLog) IsOpen() bool {
	return l.ExitedAt == nil
}
