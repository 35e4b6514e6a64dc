package dto

import "time"

// CreateAccessCodeRequest represents a resident issuing a new code
type CreateAccessCodeRequest struct {
	VisitorName  string    `json:"visitorName" binding:"required" example:"Plumber - Mehmet"`
	CodeType     string    `json:"codeType" binding:"required,oneof=visitor service_provider"`
	ValidFrom    time.Time `json:"validFrom" binding:"required"`
	ValidUntil   time.Time `json:"validUntil" binding:"required"`
	IsOneTime    bool      `json:"isOneTime,omitempty"`
	MaxUses      *int      `json:"maxUses,omitempty" binding:"omitempty,min=1"`
	VehiclePlate string    `json:"vehiclePlate,omitempty"`
}

// RescheduleAccessCodeRequest moves a code's validity window
type RescheduleAccessCodeRequest struct {
	ValidFrom  time.Time `json:"validFrom" binding:"required"`
	ValidUntil time.Time `json:"validUntil" binding:"required"`
}

// AccessCodeResponse represents an access code in API responses
type AccessCodeResponse struct {
	ID           int64      `json:"id"`
	VisitorName  string     `json:"visitorName"`
	AccessCode   string     `json:"accessCode"`
	CodeType     string     `json:"codeType"`
	ValidFrom    time.Time  `json:"validFrom"`
	ValidUntil   time.Time  `json:"validUntil"`
	IsOneTime    bool       `json:"isOneTime"`
	MaxUses      *int       `json:"maxUses,omitempty"`
	UsageCount   int        `json:"usageCount"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	IsActive     bool       `json:"isActive"`
	VehiclePlate *string    `json:"vehiclePlate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// VerifyRequest is a guard's gate scan submission
type VerifyRequest struct {
	AccessCode string `json:"accessCode" binding:"required,len=6,numeric"`
	EntryPoint string `json:"entryPoint,omitempty" example:"Main Gate"`
}

// VerificationResponse is the gate decision returned to the guard UI
type VerificationResponse struct {
	Granted       bool      `json:"granted"`
	Reason        string    `json:"reason,omitempty"` // denial category, empty on grant
	Message       string    `json:"message"`
	VisitorName   string    `json:"visitorName,omitempty"`
	CodeType      string    `json:"codeType,omitempty"`
	ClockedOut    bool      `json:"clockedOut,omitempty"`
	RemainingUses *int      `json:"remainingUses,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EntryLogResponse represents a single entry log row
type EntryLogResponse struct {
	ID           int64      `json:"id"`
	AccessCodeID int64      `json:"accessCodeId"`
	VisitorName  string     `json:"visitorName,omitempty"`
	GuardID      int64      `json:"guardId"`
	EnteredAt    time.Time  `json:"enteredAt"`
	ExitedAt     *time.Time `json:"exitedAt,omitempty"`
	EntryPoint   string     `json:"entryPoint"`
	ExitPoint    *string    `json:"exitPoint,omitempty"`
}

// EntryLogListResponse is a paged list of entry logs
type EntryLogListResponse struct {
	Logs           []EntryLogResponse `json:"logs"`
	PaginationInfo PaginationInfo     `json:"pagination"`
}

// EntryLogFilterRequest carries list filters for entry logs
type EntryLogFilterRequest struct {
	AccessCodeID int64 `form:"accessCodeId" binding:"omitempty,min=1"`
	OpenOnly     bool  `form:"openOnly"`
	Page         int   `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize     int   `form:"pageSize,default=20" binding:"omitempty,min=1,max=100"`
}
