// Package lifecycle drives transaction creation and admin state
// transitions: every user action is validated against the eligibility
// engine before any store call, and every approval funnels through the
// ledger's single-transaction operations.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/ledger"
	"github.com/yieldpro/backend/internal/models"
)

// IneligibleError is a local validation failure. The reason is user-facing
// and the triggering action was never sent to the store.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string { return e.Reason }

// ProfileStore is the profile read surface the manager needs.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// TransactionStore covers the non-transactional inserts (requests that do
// not move money yet).
type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
}

// Manager implements the transaction lifecycle over injected stores.
type Manager struct {
	profiles ProfileStore
	txs      TransactionStore
	ledger   ledger.Service
	engine   *eligibility.Engine
	catalog  *catalog.Catalog
	now      func() time.Time
	log      *slog.Logger
}

func NewManager(profiles ProfileStore, txs TransactionStore, ledgerSvc ledger.Service, engine *eligibility.Engine, cat *catalog.Catalog, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		profiles: profiles,
		txs:      txs,
		ledger:   ledgerSvc,
		engine:   engine,
		catalog:  cat,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the manager's clock. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// ClaimDailyTask validates the claim window and invokes the atomic reward
// accrual. Returns the appended reward transaction.
func (m *Manager) ClaimDailyTask(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	p, err := m.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := m.engine.CanClaimDailyTask(p, m.now()); !d.Allowed {
		return nil, &IneligibleError{Reason: d.Reason}
	}
	reward, err := m.ledger.ProcessTaskClaim(ctx, userID, m.engine.ClaimRewardCents(p))
	if err != nil {
		return nil, err
	}
	m.log.Info("daily task claimed", "user_id", userID, "amount_cents", reward.AmountCents)
	return reward, nil
}

// RequestDeposit records a pending deposit carrying the claimed sender
// wallet as proof of payment. No balance changes until admin approval.
func (m *Manager) RequestDeposit(ctx context.Context, userID uuid.UUID, amountCents int64, claimedSender string) (*models.Transaction, error) {
	if d := m.engine.CanRequestDeposit(amountCents); !d.Allowed {
		return nil, &IneligibleError{Reason: d.Reason}
	}
	t := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.TxTypeDeposit,
		AmountCents: amountCents,
		Status:      models.TxStatusPending,
		Address:     &claimedSender,
	}
	if err := m.txs.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestWithdrawal validates the time window and balances, then reserves
// the funds and records the pending withdrawal in one transaction.
func (m *Manager) RequestWithdrawal(ctx context.Context, userID uuid.UUID, kind eligibility.WithdrawKind, amountCents int64) (*models.Transaction, error) {
	p, err := m.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := m.engine.CanWithdraw(p, m.now(), kind, amountCents); !d.Allowed {
		return nil, &IneligibleError{Reason: d.Reason}
	}
	return m.ledger.ReserveWithdrawal(ctx, userID, amountCents, *p.WithdrawalAddress, kind == eligibility.WithdrawReferral)
}

// RequestVipUpgrade records a pending upgrade for a catalog tier. The
// target level travels in the transaction metadata; approval never
// re-derives it from the amount.
func (m *Manager) RequestVipUpgrade(ctx context.Context, userID uuid.UUID, level int, claimedSender string) (*models.Transaction, error) {
	p, err := m.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := m.engine.CanRequestUpgrade(p, level); !d.Allowed {
		return nil, &IneligibleError{Reason: d.Reason}
	}
	pkg, _ := m.catalog.ByLevel(level)
	t := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.TxTypeVIPUpgrade,
		AmountCents: pkg.CostCents,
		Status:      models.TxStatusPending,
		Address:     &claimedSender,
		Metadata:    models.EncodeMeta(models.TxMetadata{VIPLevel: level}),
	}
	if err := m.txs.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RequestPasswordReset records an admin-visible reset request.
func (m *Manager) RequestPasswordReset(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	t := &models.Transaction{
		ID:     uuid.New(),
		UserID: userID,
		Type:   models.TxTypePasswordReset,
		Status: models.TxStatusPending,
	}
	if err := m.txs.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Admin transitions. Each is a conditional single-transaction ledger
// operation; a transaction that already left pending is refused.

func (m *Manager) ApproveDeposit(ctx context.Context, txID uuid.UUID) error {
	if err := m.ledger.ApproveDeposit(ctx, txID); err != nil {
		return err
	}
	m.log.Info("deposit approved", "transaction_id", txID)
	return nil
}

func (m *Manager) ApproveVipUpgrade(ctx context.Context, txID uuid.UUID) error {
	if err := m.ledger.ApproveVipUpgrade(ctx, txID); err != nil {
		return err
	}
	m.log.Info("vip upgrade approved", "transaction_id", txID)
	return nil
}

func (m *Manager) ApproveWithdrawal(ctx context.Context, txID uuid.UUID) error {
	if err := m.ledger.ApproveWithdrawal(ctx, txID); err != nil {
		return err
	}
	m.log.Info("withdrawal approved", "transaction_id", txID)
	return nil
}

func (m *Manager) CompletePasswordReset(ctx context.Context, txID uuid.UUID) error {
	if err := m.ledger.CompletePasswordReset(ctx, txID); err != nil {
		return err
	}
	m.log.Info("password reset completed", "transaction_id", txID)
	return nil
}

func (m *Manager) Reject(ctx context.Context, txID uuid.UUID, status string) error {
	if err := m.ledger.RejectTransaction(ctx, txID, status); err != nil {
		return err
	}
	m.log.Info("transaction rejected", "transaction_id", txID, "status", status)
	return nil
}
