package auth

import (
	"context"
	"errors"
	"time"

	coreUser "github.com/frahmantamala/spine-admin/internal/core/user"
)

const TokenTypeBearer = "Bearer"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateUser  = errors.New("user already exists")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("refresh token presented where an access token is required")
)

// RepositoryAPI is the credential store. Lookups are exact-match and return ErrUserNotFound when absent.
type RepositoryAPI interface {
	FindByUsername(ctx context.Context, username string) (*coreUser.User, error)
	FindByEmail(ctx context.Context, email string) (*coreUser.User, error)
	FindByEmployeeNumber(ctx context.Context, employeeNumber string) (*coreUser.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmployeeNumber(ctx context.Context, employeeNumber string) (bool, error)
	Create(ctx context.Context, u *coreUser.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateEmail(ctx context.Context, username, email string) error
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	IssueAccessToken(username, department string) (string, error)
	IssueRefreshToken(username string) (string, error)
	Validate(token string) bool
	IsRefreshToken(token string) bool
	DecodeUsername(token string) (string, error)
	ParseAccessToken(token string) (*Claims, error)
}

// UserView is the sanitized projection returned to clients. It never carries the password hash.
type UserView struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Location       string          `json:"location"`
	Department     string          `json:"department"`
	EmployeeNumber string          `json:"employeeNumber,omitempty"`
	Role           string          `json:"role"`
	IsAdmin        bool            `json:"isAdmin"`
	Permissions    map[string]bool `json:"permissions,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}

type AuthResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
}

type RefreshResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type EmailResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
}
