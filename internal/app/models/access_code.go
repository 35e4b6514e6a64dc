package models

import "time"

// AccessCodeType distinguishes guest passes from recurring service-provider
// passes. Service-provider codes toggle a clock-in/clock-out session on each
// scan instead of consuming a use on every pass through the gate.
type AccessCodeType string

const (
	CodeTypeVisitor         AccessCodeType = "visitor"
	CodeTypeServiceProvider AccessCodeType = "service_provider"
)

// AccessCode is a time-boxed, usage-limited 6-digit credential issued by a
// resident for a visitor or service provider.
type AccessCode struct {
	ID           int64          `json:"id" db:"id"`
	CommunityID  int64          `json:"communityId" db:"community_id"`
	HostID       int64          `json:"hostId" db:"host_id"` // member who issued the code
	VisitorName  string         `json:"visitorName" db:"visitor_name"`
	AccessCode   string         `json:"accessCode" db:"access_code"` // 6-digit decimal string
	CodeType     AccessCodeType `json:"codeType" db:"code_type"`
	ValidFrom    time.Time      `json:"validFrom" db:"valid_from"`
	ValidUntil   time.Time      `json:"validUntil" db:"valid_until"`
	IsOneTime    bool           `json:"isOneTime" db:"is_one_time"`
	MaxUses      *int           `json:"maxUses,omitempty" db:"max_uses"` // nil = unlimited
	UsageCount   int            `json:"usageCount" db:"usage_count"`
	UsedAt       *time.Time     `json:"usedAt,omitempty" db:"used_at"` // set at most once, only for one-time codes
	IsActive     bool           `json:"isActive" db:"is_active"`       // manual suspend switch
	VehiclePlate *string        `json:"vehiclePlate,omitempty" db:"vehicle_plate"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt" db:"updated_at"`
}

// WindowContains reports whether the instant t falls inside the code's
// validity window. Boundaries are inclusive: only t < ValidFrom or
// t > ValidUntil fall outside.
func (c *AccessCode) WindowContains(t time.Time) bool {
	return !t.Before(c.ValidFrom) && !t.After(c.ValidUntil)
}

// IsCapped reports whether the code carries a finite multi-use limit.
func (c *AccessCode) IsCapped() bool {
	return !c.IsOneTime && c.MaxUses != nil
}

// RemainingUses returns how many uses are left on a capped code. Returns 0
// for exhausted codes and is meaningless for uncapped codes.
func (c *AccessCode) RemainingUses() int {
	if c.MaxUses == nil {
		return 0
	}
	remaining := *c.MaxUses - c.UsageCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
