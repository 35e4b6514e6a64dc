package dto

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email" example:"resident@porta.app"`
	Password  string `json:"password" binding:"required,min=8" example:"s3cureP@ss"`
	FirstName string `json:"firstName" binding:"required" example:"Selim"`
	LastName  string `json:"lastName" binding:"required" example:"Demir"`
	Phone     string `json:"phone,omitempty" example:"+905321112233"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse represents issued token pair
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int    `json:"expiresIn"`        // seconds
	RefreshExpiresIn int    `json:"refreshExpiresIn"` // seconds
	TokenType        string `json:"tokenType" example:"Bearer"`
}

// UserResponse represents user information in responses
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
