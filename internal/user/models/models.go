// Package models holds the user-facing account and login contracts.
package models

import "time"

// Account status values.
const (
	StatusDisabled = 0
	StatusActive   = 1
)

// Account is a registered user. PasswordHash is a bcrypt digest and never
// leaves the service boundary.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Nickname     string    `json:"nickname"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	PasswordHash string    `json:"-"`
	Status       int       `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Active reports whether the account may log in.
func (a *Account) Active() bool {
	return a.Status == StatusActive
}

// LoginRequest carries the credentials plus request metadata the handler
// fills in from the connection.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`

	// Filled by the transport layer, never by the client.
	LoginIP string `json:"-"`
	Device  string `json:"-"`
}

// LoginResponse is the successful login payload.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	Avatar       string `json:"avatar"`
	LoginTime    int64  `json:"loginTime"`
}
