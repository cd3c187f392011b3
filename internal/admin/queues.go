package admin

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/models"
)

// DepositRequest is one pending deposit awaiting manual verification.
// UserWallet is the sender address the requester claims to have paid from.
type DepositRequest struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	AmountCents int64     `json:"amount_cents"`
	UserWallet  string    `json:"user_wallet"`
	CreatedAt   time.Time `json:"created_at"`
}

// WithdrawalRequest is one pending withdrawal awaiting payout approval.
type WithdrawalRequest struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	AmountCents int64     `json:"amount_cents"`
	Address     string    `json:"address"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpgradeRequest is one pending tier upgrade awaiting verification.
type UpgradeRequest struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Level       int       `json:"level"`
	PackageName string    `json:"package_name"`
	AmountCents int64     `json:"amount_cents"`
	UserWallet  string    `json:"user_wallet"`
	CreatedAt   time.Time `json:"created_at"`
}

// Queues are the admin work queues built from the pending transaction set.
// Skipped counts malformed records (missing user, unknown or non-raising
// tier) that were excluded instead of crashing the view; each skip is also
// logged so data-integrity problems stay visible.
type Queues struct {
	Deposits    []DepositRequest    `json:"deposits"`
	Withdrawals []WithdrawalRequest `json:"withdrawals"`
	Upgrades    []UpgradeRequest    `json:"upgrades"`
	Skipped     int                 `json:"skipped"`
}

// BuildQueues cross-references pending transactions against the roster.
func BuildQueues(profiles []*models.Profile, pending []*models.Transaction, cat *catalog.Catalog, log *slog.Logger) Queues {
	if log == nil {
		log = slog.Default()
	}
	byID := make(map[uuid.UUID]*models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	q := Queues{
		Deposits:    []DepositRequest{},
		Withdrawals: []WithdrawalRequest{},
		Upgrades:    []UpgradeRequest{},
	}
	for _, t := range pending {
		owner, ok := byID[t.UserID]
		if !ok {
			q.Skipped++
			log.Warn("pending transaction references missing user", "transaction_id", t.ID, "user_id", t.UserID)
			continue
		}
		switch t.Type {
		case models.TxTypeDeposit:
			q.Deposits = append(q.Deposits, DepositRequest{
				ID:          t.ID,
				Username:    owner.Username,
				AmountCents: t.AmountCents,
				UserWallet:  derefAddress(t),
				CreatedAt:   t.CreatedAt,
			})
		case models.TxTypeWithdrawal:
			kind := string(eligibility.WithdrawTask)
			if t.Meta().IsReferral {
				kind = string(eligibility.WithdrawReferral)
			}
			q.Withdrawals = append(q.Withdrawals, WithdrawalRequest{
				ID:          t.ID,
				Username:    owner.Username,
				AmountCents: t.AmountCents,
				Address:     derefAddress(t),
				Kind:        kind,
				CreatedAt:   t.CreatedAt,
			})
		case models.TxTypeVIPUpgrade:
			level := t.Meta().VIPLevel
			pkg, known := cat.ByLevel(level)
			if !known {
				q.Skipped++
				log.Warn("pending upgrade carries unknown tier", "transaction_id", t.ID, "level", level)
				continue
			}
			if level <= owner.VIPLevel {
				q.Skipped++
				log.Warn("pending upgrade does not raise tier", "transaction_id", t.ID, "level", level, "current", owner.VIPLevel)
				continue
			}
			q.Upgrades = append(q.Upgrades, UpgradeRequest{
				ID:          t.ID,
				Username:    owner.Username,
				Level:       level,
				PackageName: pkg.Name,
				AmountCents: t.AmountCents,
				UserWallet:  derefAddress(t),
				CreatedAt:   t.CreatedAt,
			})
		}
	}
	return q
}

func derefAddress(t *models.Transaction) string {
	if t.Address == nil {
		return ""
	}
	return *t.Address
}
