package models

import (
	"time"

	"github.com/google/uuid"
)

// VIP tier levels. Zero means no active plan.
const (
	VIPNone = 0
	VIP1    = 1
	VIP2    = 2
	VIP3    = 3
	VIP4    = 4
	VIP5    = 5
)

// Profile is one user's account record. All monetary fields are integer
// cents; conditional updates in the repository layer keep them non-negative.
type Profile struct {
	ID                     uuid.UUID  `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	ReferralCode           string     `json:"referral_code"`
	ReferredByCode         *string    `json:"referred_by_code,omitempty"`
	ReferralCount          int        `json:"referral_count"`
	BalanceCents           int64      `json:"balance_cents"`
	WithdrawableCents      int64      `json:"withdrawable_cents"`
	ReferralCents          int64      `json:"referral_cents"`
	TotalEarningsCents     int64      `json:"total_earnings_cents"`
	VIPLevel               int        `json:"vip_level"`
	LastTaskClaim          *time.Time `json:"last_task_claim,omitempty"`
	WithdrawalAddress      *string    `json:"withdrawal_address,omitempty"`
	IsAdmin                bool       `json:"is_admin"`
	MustChangePassword     bool       `json:"must_change_password"`
	PasswordResetRequested bool       `json:"password_reset_requested"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// Transactions is populated on snapshot/roster fetches, newest first.
	// It is not a column.
	Transactions []*Transaction `json:"transactions,omitempty"`
}
