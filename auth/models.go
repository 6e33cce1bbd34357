package auth

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// User is the domain representation of a dashboard operator. Every user
// belongs to exactly one client.
type User struct {
	ID                 string
	ClientID           string
	Email              string
	FullName           string
	PasswordHash       string
	Role               Role
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Identity is what a verified token says about the caller.
type Identity struct {
	UserID   string
	ClientID string
	Role     Role
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
