package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	RoleHomeOwner = "homeOwner"
	RoleRenter    = "renter"
	RoleAdmin     = "admin"
)

type User struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Gender   string `json:"gender,omitempty"`
	DOB      string `json:"dob,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role"`
	Location *Point `json:"location,omitempty"`
}

// Claims are the fields the marketplace API puts in its access tokens.
type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type SignUpRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
	DOB      string `json:"dob,omitempty"`
	Address  string `json:"address"`
	Role     string `json:"role"`
	Location Point  `json:"location"`
}

// Session binds a gateway session id to the upstream credentials of a user.
type Session struct {
	ID          string    `json:"id"`
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) UserID() int { return s.User.ID }

func (s Session) Role() string { return s.User.Role }

// DeviceToken is a push notification registration of one device.
type DeviceToken struct {
	UserID    int       `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UpdatedAt time.Time `json:"updated_at"`
}
