package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldpro/backend/internal/models"
)

// ErrNotFound is returned when a profile or transaction does not exist.
var ErrNotFound = errors.New("not found")

const profileColumns = `id, username, email, password_hash, referral_code, referred_by_code, referral_count,
	balance_cents, withdrawable_cents, referral_cents, total_earnings_cents, vip_level, last_task_claim,
	withdrawal_address, is_admin, must_change_password, password_reset_requested, created_at, updated_at`

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.ReferralCode, &p.ReferredByCode,
		&p.ReferralCount, &p.BalanceCents, &p.WithdrawableCents, &p.ReferralCents, &p.TotalEarningsCents,
		&p.VIPLevel, &p.LastTaskClaim, &p.WithdrawalAddress, &p.IsAdmin, &p.MustChangePassword,
		&p.PasswordResetRequested, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, username, email, password_hash, referral_code, referred_by_code, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.Username, p.Email, p.PasswordHash, p.ReferralCode, p.ReferredByCode, p.IsAdmin).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// CreateWithReferrer inserts the profile and bumps the referrer's invite
// count in one transaction. A unique violation rolls back the bump, so a
// rejected signup never inflates the count.
func (r *ProfileRepo) CreateWithReferrer(ctx context.Context, p *models.Profile, referrerID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO profiles (id, username, email, password_hash, referral_code, referred_by_code, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.Username, p.Email, p.PasswordHash, p.ReferralCode, p.ReferredByCode, p.IsAdmin).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles SET referral_count = referral_count + 1, updated_at = now() WHERE id = $1
	`, referrerID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`, id))
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`, email))
}

func (r *ProfileRepo) GetByReferralCode(ctx context.Context, code string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code = $1`, code))
}

func (r *ProfileRepo) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProfileRepo) UpdateWithdrawalAddress(ctx context.Context, id uuid.UUID, address string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles SET withdrawal_address = $2, updated_at = now() WHERE id = $1
	`, id, address)
	return err
}

// UpdatePassword stores a new hash and clears the reset bookkeeping flags.
func (r *ProfileRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET password_hash = $2, must_change_password = FALSE, password_reset_requested = FALSE, updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	return err
}

func (r *ProfileRepo) SetPasswordResetRequested(ctx context.Context, id uuid.UUID, requested bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles SET password_reset_requested = $2, updated_at = now() WHERE id = $1
	`, id, requested)
	return err
}

