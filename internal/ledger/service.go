package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/models"
)

// Service is the balance-mutation surface the lifecycle manager depends on.
type Service interface {
	ProcessTaskClaim(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.Transaction, error)
	ApproveDeposit(ctx context.Context, txID uuid.UUID) error
	ApproveVipUpgrade(ctx context.Context, txID uuid.UUID) error
	ReserveWithdrawal(ctx context.Context, userID uuid.UUID, amountCents int64, address string, isReferral bool) (*models.Transaction, error)
	ApproveWithdrawal(ctx context.Context, txID uuid.UUID) error
	CompletePasswordReset(ctx context.Context, txID uuid.UUID) error
	RejectTransaction(ctx context.Context, txID uuid.UUID, status string) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) ProcessTaskClaim(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.Transaction, error) {
	return s.repo.ProcessTaskClaim(ctx, userID, amountCents)
}

func (s *service) ApproveDeposit(ctx context.Context, txID uuid.UUID) error {
	return s.repo.ApproveDeposit(ctx, txID)
}

func (s *service) ApproveVipUpgrade(ctx context.Context, txID uuid.UUID) error {
	return s.repo.ApproveVipUpgrade(ctx, txID)
}

func (s *service) ReserveWithdrawal(ctx context.Context, userID uuid.UUID, amountCents int64, address string, isReferral bool) (*models.Transaction, error) {
	return s.repo.ReserveWithdrawal(ctx, userID, amountCents, address, isReferral)
}

func (s *service) ApproveWithdrawal(ctx context.Context, txID uuid.UUID) error {
	return s.repo.ApproveWithdrawal(ctx, txID)
}

func (s *service) CompletePasswordReset(ctx context.Context, txID uuid.UUID) error {
	return s.repo.CompletePasswordReset(ctx, txID)
}

func (s *service) RejectTransaction(ctx context.Context, txID uuid.UUID, status string) error {
	return s.repo.RejectTransaction(ctx, txID, status)
}

// Exported sentinels for errors.Is matching at call sites.
var (
	ErrInsufficientFunds = errInsufficientFunds
	ErrClaimUnavailable  = errClaimUnavailable
	ErrInvalidUpgrade    = errInvalidUpgrade
	ErrUnknownTier       = errUnknownTier
)
