package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/repository"
)

// ErrDuplicate is returned when a username, email or referral code collides.
var ErrDuplicate = errors.New("username or email already registered")

// ErrAccessDenied covers both unknown-user and wrong-password so login
// failures never reveal whether an account exists.
var ErrAccessDenied = errors.New("access denied")

// ProfileStore is the profile surface the auth service needs.
// CreateWithReferrer inserts the profile and bumps the referrer's invite
// count in one operation, so a failed signup never counts as an invite.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	CreateWithReferrer(ctx context.Context, p *models.Profile, referrerID uuid.UUID) error
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Profile, error)
	SetPasswordResetRequested(ctx context.Context, id uuid.UUID, requested bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// ResetRecorder appends the admin-visible password reset request.
type ResetRecorder interface {
	RequestPasswordReset(ctx context.Context, userID uuid.UUID) (*models.Transaction, error)
}

type Service interface {
	Register(ctx context.Context, username, email, password, refCode string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error
}

type service struct {
	profiles ProfileStore
	resets   ResetRecorder
	secret   []byte
}

func NewService(profiles ProfileStore, resets ResetRecorder) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretmvp"
	}
	return &service{profiles: profiles, resets: resets, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin"`
}

func (s *service) Register(ctx context.Context, username, email, password, refCode string) (*models.Profile, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.New("missing required fields")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p := &models.Profile{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ReferralCode: newReferralCode(),
	}

	var referrer *models.Profile
	if refCode != "" {
		referrer, err = s.profiles.GetByReferralCode(ctx, refCode)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// An unknown code does not block signup; it just attributes nothing.
		if referrer != nil {
			code := referrer.ReferralCode
			p.ReferredByCode = &code
		}
	}

	if referrer != nil {
		err = s.profiles.CreateWithReferrer(ctx, p, referrer.ID)
	} else {
		err = s.profiles.Create(ctx, p)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAccessDenied
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return "", ErrAccessDenied
	}
	return s.issueToken(p.ID, p.IsAdmin)
}

func (s *service) issueToken(userID uuid.UUID, isAdmin bool) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		IsAdmin: isAdmin,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, false, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, c.IsAdmin, nil
}

// RequestPasswordReset flags the profile and records the admin-visible
// request. Unknown emails succeed silently so the endpoint cannot reveal
// which emails have accounts.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.profiles.SetPasswordResetRequested(ctx, p.ID, true); err != nil {
		return err
	}
	_, err = s.resets.RequestPasswordReset(ctx, p.ID)
	return err
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.profiles.UpdatePassword(ctx, userID, string(hash))
}

// newReferralCode returns an 8-character uppercase hex invite code.
func newReferralCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
