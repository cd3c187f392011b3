package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory profile store and reset recorder
// ---------------------------------------------------------------------------

type mockProfiles struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*models.Profile
	createErr error
	resets    int
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{profiles: make(map[uuid.UUID]*models.Profile)}
}

func (m *mockProfiles) Create(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

// CreateWithReferrer mirrors the production contract: the insert and the
// invite count bump succeed or fail together.
func (m *mockProfiles) CreateWithReferrer(_ context.Context, p *models.Profile, referrerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.profiles[p.ID] = &cp
	m.profiles[referrerID].ReferralCount++
	return nil
}

func (m *mockProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockProfiles) GetByReferralCode(_ context.Context, code string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.ReferralCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockProfiles) SetPasswordResetRequested(_ context.Context, id uuid.UUID, requested bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id].PasswordResetRequested = requested
	return nil
}

func (m *mockProfiles) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[id]
	p.PasswordHash = passwordHash
	p.MustChangePassword = false
	p.PasswordResetRequested = false
	return nil
}

type mockResets struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (m *mockResets) RequestPasswordReset(_ context.Context, userID uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID)
	return &models.Transaction{ID: uuid.New(), UserID: userID, Type: models.TxTypePasswordReset, Status: models.TxStatusPending}, nil
}

// ---------------------------------------------------------------------------
// Registration and referral attribution
// ---------------------------------------------------------------------------

func TestRegister_IssuesReferralCode(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	p, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(p.ReferralCode) != 8 {
		t.Errorf("referral code %q, want 8 characters", p.ReferralCode)
	}
	if p.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("password123")); err != nil {
		t.Error("stored hash does not verify against the password")
	}
}

func TestRegister_AttributesReferrer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	referrer, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register referrer: %v", err)
	}

	invited, err := svc.Register(context.Background(), "bob", "bob@example.com", "password123", referrer.ReferralCode)
	if err != nil {
		t.Fatalf("Register invited: %v", err)
	}
	if invited.ReferredByCode == nil || *invited.ReferredByCode != referrer.ReferralCode {
		t.Error("invited profile not linked to the referrer's code")
	}
	if got := profiles.profiles[referrer.ID].ReferralCount; got != 1 {
		t.Errorf("referrer count: got %d, want 1", got)
	}
}

func TestRegister_RejectedSignupCountsNoInvite(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	referrer, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register referrer: %v", err)
	}

	// A colliding signup fails as a whole: no profile, no invite credit.
	profiles.createErr = &pgconn.PgError{Code: "23505"}
	_, err = svc.Register(context.Background(), "bob", "alice@example.com", "password123", referrer.ReferralCode)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate signup: got %v, want ErrDuplicate", err)
	}
	if got := profiles.profiles[referrer.ID].ReferralCount; got != 0 {
		t.Errorf("referrer count after failed signup: got %d, want 0", got)
	}
}

func TestRegister_UnknownReferralCodeIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	p, err := svc.Register(context.Background(), "carol", "carol@example.com", "password123", "NOSUCH00")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.ReferredByCode != nil {
		t.Error("unknown code should attribute nothing")
	}
}

// ---------------------------------------------------------------------------
// Login and tokens
// ---------------------------------------------------------------------------

func TestLogin_TokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	p, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	profiles.profiles[p.ID].IsAdmin = true

	token, err := svc.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	userID, isAdmin, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != p.ID {
		t.Errorf("subject: got %s, want %s", userID, p.ID)
	}
	if !isAdmin {
		t.Error("admin flag lost in the token")
	}
}

func TestLogin_SingleDenialMessage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	if _, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Wrong password and unknown account fail identically.
	if _, err := svc.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("wrong password: got %v, want ErrAccessDenied", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "password123"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("unknown email: got %v, want ErrAccessDenied", err)
	}
}

func TestValidateToken_RejectsForgedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewService(newMockProfiles(), &mockResets{})

	if _, _, err := svc.ValidateToken(context.Background(), "not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func TestRequestPasswordReset(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	resets := &mockResets{}
	svc := NewService(profiles, resets)

	p, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if !profiles.profiles[p.ID].PasswordResetRequested {
		t.Error("reset flag not set")
	}
	if len(resets.calls) != 1 || resets.calls[0] != p.ID {
		t.Errorf("reset recorded %v, want one call for %s", resets.calls, p.ID)
	}

	// Unknown emails succeed silently and record nothing.
	if err := svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Errorf("unknown email: got %v, want nil", err)
	}
	if len(resets.calls) != 1 {
		t.Errorf("reset calls after unknown email: got %d, want 1", len(resets.calls))
	}
}

func TestChangePassword_EnforcesMinimumLength(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := newMockProfiles()
	svc := NewService(profiles, &mockResets{})

	p, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), p.ID, "short"); err == nil {
		t.Error("short password accepted")
	}
	if err := svc.ChangePassword(context.Background(), p.ID, "longenough"); err != nil {
		t.Errorf("ChangePassword: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profiles.profiles[p.ID].PasswordHash), []byte("longenough")); err != nil {
		t.Error("new password does not verify")
	}
}
