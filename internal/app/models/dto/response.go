package dto

import "time"

// SuccessResponse represents a standard success response for API endpoints
type SuccessResponse struct {
	Message string `json:"message"`
}

// APIResponse is the standard envelope for successful API responses
type APIResponse struct {
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewSuccessResponse wraps payload data in the standard envelope
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Data:      data,
		Timestamp: time.Now(),
	}
}

// PaginationInfo carries paging metadata for list responses
type PaginationInfo struct {
	CurrentPage int `json:"currentPage" example:"1"`
	PageSize    int `json:"pageSize" example:"20"`
	TotalItems  int `json:"totalItems" example:"57"`
	TotalPages  int `json:"totalPages" example:"3"`
}

// NewPaginationInfo computes paging metadata from a total item count
func NewPaginationInfo(page, pageSize, totalItems int) PaginationInfo {
	totalPages := 1
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
		if totalPages < 1 {
			totalPages = 1
		}
	}
	return PaginationInfo{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
	}
}
