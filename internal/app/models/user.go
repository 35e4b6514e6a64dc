package models

import "time"

// User defines the user model based on the 'users' table. A user exists
// independently of any community; community-scoped role and status live on
// the Member record.
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`                                   // Unique identifier for the user
	Email       string     `json:"email" db:"email" example:"resident@porta.app"`            // User's email address
	Password    string     `json:"-" db:"password"`                                          // User's hashed password (excluded from JSON)
	FirstName   string     `json:"firstName" db:"first_name" example:"Selim"`                // User's first name
	LastName    string     `json:"lastName" db:"last_name" example:"Demir"`                  // User's last name
	Phone       *string    `json:"phone,omitempty" db:"phone"`                               // Phone number (nullable)
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`                   // Whether the account is active
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`                 // Timestamp of the last login (nullable)
	CreatedAt   time.Time  `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"` // Timestamp when the user was created
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`                                // Timestamp when the user was last updated
}
