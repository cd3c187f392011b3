package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transaction type enums.
const (
	TxTypeDeposit       = "deposit"
	TxTypeWithdrawal    = "withdrawal"
	TxTypeReward        = "reward"
	TxTypeReferralBonus = "referral_bonus"
	TxTypeVIPUpgrade    = "vip_upgrade"
	TxTypePasswordReset = "password_reset"
)

// Transaction status enums. A transaction only ever moves pending -> one of
// the terminal statuses; the repository enforces this with a conditional
// update, CanTransition is the in-process guard.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// CanTransition reports whether a status write from -> to is legal.
func CanTransition(from, to string) bool {
	if from != TxStatusPending {
		return false
	}
	switch to {
	case TxStatusCompleted, TxStatusFailed, TxStatusCancelled:
		return true
	}
	return false
}

// Transaction is immutable once created except for Status.
// Address carries the claimed sender wallet (proof of payment) for
// deposits and upgrades, or the destination wallet for withdrawals.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        string          `json:"type"`
	AmountCents int64           `json:"amount_cents"`
	Status      string          `json:"status"`
	Address     *string         `json:"address,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TxMetadata is the structured part of the metadata column. Withdrawals
// carry IsReferral; upgrade requests carry the target VIPLevel so the tier
// is never re-derived from the amount.
type TxMetadata struct {
	IsReferral bool `json:"is_referral,omitempty"`
	VIPLevel   int  `json:"vip_level,omitempty"`
}

// Meta decodes the metadata column, tolerating absent or malformed JSON.
func (t *Transaction) Meta() TxMetadata {
	var m TxMetadata
	if len(t.Metadata) > 0 {
		_ = json.Unmarshal(t.Metadata, &m)
	}
	return m
}

// EncodeMeta marshals metadata for storage. Returns nil for the zero value
// so empty metadata stays NULL.
func EncodeMeta(m TxMetadata) json.RawMessage {
	if m == (TxMetadata{}) {
		return nil
	}
	raw, _ := json.Marshal(m)
	return raw
}
