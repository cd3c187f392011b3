package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/payout"
	"github.com/yieldpro/backend/internal/repository"
)

var (
	errInsufficientFunds = errors.New("insufficient funds")
	errClaimUnavailable  = errors.New("daily claim not yet available")
	errInvalidUpgrade    = errors.New("upgrade does not raise the tier")
	errUnknownTier       = errors.New("upgrade transaction carries no tier")
)

// Referral attribution policy: a flat bonus to the referrer when a referred
// user's first deposit completes, for at most MaxRewardedInvites invites.
const (
	ReferralBonusCents = 200
	MaxRewardedInvites = 5
)

// InsertPayoutTxFunc enqueues a payout dispatch job within the given
// transaction. Provided by main using river.Client.InsertTx.
type InsertPayoutTxFunc func(ctx context.Context, tx pgx.Tx, args payout.DispatchPayoutArgs) error

// Repository owns every balance mutation. Each exported method runs as a
// single database transaction so a crash can never leave a transaction
// completed with its balance effect missing, or vice versa.
type Repository struct {
	pool         *pgxpool.Pool
	insertPayout InsertPayoutTxFunc
}

func NewRepository(pool *pgxpool.Pool, insertPayout InsertPayoutTxFunc) *Repository {
	return &Repository{pool: pool, insertPayout: insertPayout}
}

// ProcessTaskClaim atomically credits the daily reward, stamps the claim
// time and appends a completed reward transaction. The claim stamp update
// is conditional on the cooldown having elapsed, so two racing claims
// produce exactly one credit.
func (r *Repository) ProcessTaskClaim(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE profiles
		SET withdrawable_cents = withdrawable_cents + $1,
		    total_earnings_cents = total_earnings_cents + $1,
		    last_task_claim = now(),
		    updated_at = now()
		WHERE id = $2
		  AND (last_task_claim IS NULL OR last_task_claim <= now() - make_interval(secs => $3))
	`, amountCents, userID, eligibility.ClaimCooldown.Seconds())
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, errClaimUnavailable
	}

	reward := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.TxTypeReward,
		AmountCents: amountCents,
		Status:      models.TxStatusCompleted,
	}
	if err := insertTransaction(ctx, tx, reward); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reward, nil
}

// ApproveDeposit marks a pending deposit completed and credits the amount
// to the profile's balance. When this is the referred user's first
// completed deposit, the referrer's bonus is credited in the same
// transaction.
func (r *Repository) ApproveDeposit(ctx context.Context, txID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	var amountCents int64
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = 'completed'
		WHERE id = $1 AND status = 'pending' AND type = 'deposit'
		RETURNING user_id, amount_cents
	`, txID).Scan(&userID, &amountCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles SET balance_cents = balance_cents + $1, updated_at = now() WHERE id = $2
	`, amountCents, userID)
	if err != nil {
		return err
	}

	if err := r.creditReferrerForFirstDeposit(ctx, tx, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// creditReferrerForFirstDeposit runs inside the deposit approval
// transaction. No-op unless the depositor was referred, this deposit is
// their first completed one, and the referrer is under the invite cap.
func (r *Repository) creditReferrerForFirstDeposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var referredBy *string
	if err := tx.QueryRow(ctx, `SELECT referred_by_code FROM profiles WHERE id = $1`, userID).Scan(&referredBy); err != nil {
		return err
	}
	if referredBy == nil || *referredBy == "" {
		return nil
	}

	var completedDeposits int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM transactions WHERE user_id = $1 AND type = 'deposit' AND status = 'completed'
	`, userID).Scan(&completedDeposits)
	if err != nil {
		return err
	}
	if completedDeposits != 1 {
		return nil
	}

	var referrerID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM profiles WHERE referral_code = $1 FOR UPDATE
	`, *referredBy).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	var rewardedInvites int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM transactions WHERE user_id = $1 AND type = 'referral_bonus'
	`, referrerID).Scan(&rewardedInvites)
	if err != nil {
		return err
	}
	if rewardedInvites >= MaxRewardedInvites {
		return nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles SET referral_cents = referral_cents + $1, updated_at = now() WHERE id = $2
	`, int64(ReferralBonusCents), referrerID)
	if err != nil {
		return err
	}
	return insertTransaction(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      referrerID,
		Type:        models.TxTypeReferralBonus,
		AmountCents: ReferralBonusCents,
		Status:      models.TxStatusCompleted,
	})
}

// ApproveVipUpgrade marks a pending upgrade completed and raises the
// profile's tier to the level stored on the transaction. Rolls back when
// the transaction carries no tier or the tier would not increase.
func (r *Repository) ApproveVipUpgrade(ctx context.Context, txID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	var t models.Transaction
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = 'completed'
		WHERE id = $1 AND status = 'pending' AND type = 'vip_upgrade'
		RETURNING user_id, metadata
	`, txID).Scan(&userID, &t.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	level := t.Meta().VIPLevel
	if level <= 0 {
		return errUnknownTier
	}
	result, err := tx.Exec(ctx, `
		UPDATE profiles SET vip_level = $2, updated_at = now() WHERE id = $1 AND vip_level < $2
	`, userID, level)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errInvalidUpgrade
	}
	return tx.Commit(ctx)
}

// ReserveWithdrawal debits the relevant balance and inserts the pending
// withdrawal in one transaction. Funds are reserved at request time so a
// user cannot queue withdrawals exceeding their real balance; a rejection
// refunds the reservation.
func (r *Repository) ReserveWithdrawal(ctx context.Context, userID uuid.UUID, amountCents int64, address string, isReferral bool) (*models.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	column := "withdrawable_cents"
	if isReferral {
		column = "referral_cents"
	}
	result, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE profiles SET %s = %s - $1, updated_at = now() WHERE id = $2 AND %s >= $1
	`, column, column, column), amountCents, userID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, ErrInsufficientFunds
	}

	withdrawal := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.TxTypeWithdrawal,
		AmountCents: amountCents,
		Status:      models.TxStatusPending,
		Address:     &address,
		Metadata:    models.EncodeMeta(models.TxMetadata{IsReferral: isReferral}),
	}
	if err := insertTransaction(ctx, tx, withdrawal); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// ApproveWithdrawal marks a pending withdrawal completed and enqueues the
// payout dispatch job in the same transaction. The funds were already
// reserved at request time, so no further debit happens here.
func (r *Repository) ApproveWithdrawal(ctx context.Context, txID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var t models.Transaction
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = 'completed'
		WHERE id = $1 AND status = 'pending' AND type = 'withdrawal'
		RETURNING user_id, amount_cents, address, metadata
	`, txID).Scan(&t.UserID, &t.AmountCents, &t.Address, &t.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	if r.insertPayout != nil {
		address := ""
		if t.Address != nil {
			address = *t.Address
		}
		err = r.insertPayout(ctx, tx, payout.DispatchPayoutArgs{
			WithdrawalID: txID,
			Address:      address,
			AmountCents:  t.AmountCents,
			IsReferral:   t.Meta().IsReferral,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// CompletePasswordReset marks a pending password_reset transaction
// completed and flags the profile to change its password on next login,
// in one transaction. A crash can never leave the flag set with the
// request still pending, or the request completed with no flag.
func (r *Repository) CompletePasswordReset(ctx context.Context, txID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = 'completed'
		WHERE id = $1 AND status = 'pending' AND type = 'password_reset'
		RETURNING user_id
	`, txID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET must_change_password = TRUE,
		    password_reset_requested = FALSE,
		    updated_at = now()
		WHERE id = $1
	`, userID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RejectTransaction moves a pending transaction to failed or cancelled.
// Rejected withdrawals refund their reservation in the same transaction.
func (r *Repository) RejectTransaction(ctx context.Context, txID uuid.UUID, status string) error {
	if status != models.TxStatusFailed && status != models.TxStatusCancelled {
		return fmt.Errorf("illegal rejection status %q", status)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var t models.Transaction
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING user_id, type, amount_cents, metadata
	`, txID, status).Scan(&t.UserID, &t.Type, &t.AmountCents, &t.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotPending
		}
		return err
	}

	if t.Type == models.TxTypeWithdrawal {
		column := "withdrawable_cents"
		if t.Meta().IsReferral {
			column = "referral_cents"
		}
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			UPDATE profiles SET %s = %s + $1, updated_at = now() WHERE id = $2
		`, column, column), t.AmountCents, t.UserID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, type, amount_cents, status, address, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.UserID, t.Type, t.AmountCents, t.Status, t.Address, t.Metadata).Scan(&t.CreatedAt)
}

// ErrNotPending mirrors the repository sentinel so callers can match either.
var ErrNotPending = repository.ErrNotPending
