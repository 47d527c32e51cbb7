package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
	"roomfinder/utils"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// LoginOutput is returned to the client after a successful login.
type LoginOutput struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// AuthService opens and resolves gateway sessions. The upstream access
// token never leaves the gateway; clients hold a signed session token.
type AuthService struct {
	API        AuthAPI
	Sessions   SessionStore
	Tokens     *utils.Manager
	SessionTTL time.Duration
	Logger     *slog.Logger

	now func() time.Time
}

func NewAuthService(api AuthAPI, sessions SessionStore, tokens *utils.Manager, ttl time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		API:        api,
		Sessions:   sessions,
		Tokens:     tokens,
		SessionTTL: ttl,
		Logger:     logger.With("service", "auth"),
		now:        time.Now,
	}
}

// ValidateLogin applies the login form rules.
func ValidateLogin(in models.LoginRequest) error {
	errs := models.ValidationError{}
	if !phonePattern.MatchString(strings.TrimSpace(in.Phone)) {
		errs["phone"] = "Phone number must be 10 digits"
	}
	if len(in.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs.OrNil()
}

func (s *AuthService) Login(ctx context.Context, in models.LoginRequest) (LoginOutput, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if err := ValidateLogin(in); err != nil {
		return LoginOutput{}, err
	}

	res, err := s.API.Login(ctx, in)
	if err != nil {
		var apiErr *roomapi.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusNotFound) {
			return LoginOutput{}, fmt.Errorf("%w: %s", models.ErrInvalidCredentials, roomapi.UserMessage(err, "wrong phone or password"))
		}
		return LoginOutput{}, err
	}

	now := s.now().UTC()
	expires := now.Add(s.SessionTTL)
	if claims, ok := upstreamClaims(res.AccessToken); ok {
		if claims.ExpiresAt > 0 {
			exp := time.Unix(claims.ExpiresAt, 0).UTC()
			if !exp.After(now) {
				return LoginOutput{}, models.ErrSessionExpired
			}
			if exp.Before(expires) {
				expires = exp
			}
		}
		if res.User.ID == 0 {
			res.User.ID = claims.UserID
		}
		if res.User.Role == "" {
			res.User.Role = claims.Role
		}
	}

	sess := models.Session{
		ID:          uuid.NewString(),
		User:        res.User,
		AccessToken: res.AccessToken,
		CreatedAt:   now,
		ExpiresAt:   expires,
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return LoginOutput{}, fmt.Errorf("save session: %w", err)
	}

	token, err := s.Tokens.NewJWT(sess.ID, sess.Role(), expires.Sub(now))
	if err != nil {
		return LoginOutput{}, err
	}
	s.Logger.Info("session opened", "user_id", sess.UserID(), "role", sess.Role(), "expires_at", expires)
	return LoginOutput{Token: token, ExpiresAt: expires, User: sess.User}, nil
}

// upstreamClaims reads the marketplace token without verifying it; the
// gateway has no key for it and only needs the expiry and identity.
func upstreamClaims(token string) (*models.Claims, bool) {
	claims := &models.Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Resolve turns a gateway token into its live session.
func (s *AuthService) Resolve(ctx context.Context, token string) (models.Session, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", models.ErrSessionNotFound, err)
	}
	sess, err := s.Sessions.Get(ctx, claims.Subject)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.Sessions.Delete(ctx, sess.ID); err != nil {
			s.Logger.Warn("delete expired session", "err", err)
		}
		return models.Session{}, models.ErrSessionExpired
	}
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, sess models.Session) error {
	return s.Sessions.Delete(ctx, sess.ID)
}

// ValidateSignUp applies the registration form rules.
func ValidateSignUp(in models.SignUpRequest) error {
	errs := models.ValidationError{}
	if strings.TrimSpace(in.FullName) == "" {
		errs["full_name"] = "Full name is required"
	}
	if !strings.Contains(in.Email, "@") {
		errs["email"] = "Valid email is required"
	}
	if !phonePattern.MatchString(strings.TrimSpace(in.Phone)) {
		errs["phone"] = "Phone number must be 10 digits"
	}
	if len(in.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	if strings.TrimSpace(in.Gender) == "" {
		errs["gender"] = "Gender is required"
	}
	if strings.TrimSpace(in.Address) == "" {
		errs["address"] = "Address is required"
	}
	if in.Role != models.RoleHomeOwner && in.Role != models.RoleRenter {
		errs["role"] = "Role must be homeOwner or renter"
	}
	if !in.Location.Valid() {
		errs["location"] = "Pick a location on the map"
	}
	return errs.OrNil()
}

func (s *AuthService) SignUp(ctx context.Context, in models.SignUpRequest) (roomapi.Message, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateSignUp(in); err != nil {
		return roomapi.Message{}, err
	}
	if in.Location.Type == "" {
		in.Location.Type = "Point"
	}
	return s.API.SignUp(ctx, in)
}
