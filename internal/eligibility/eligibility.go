// Package eligibility decides, from a profile snapshot and the current
// time, whether a claim, withdrawal or request is permitted right now.
// All functions are pure: no clock reads, no store calls.
package eligibility

import (
	"fmt"
	"time"

	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/models"
)

// ClaimCooldown is the minimum spacing between successful daily claims.
const ClaimCooldown = 24 * time.Hour

// MinWithdrawalCents is the platform-wide withdrawal floor ($1.00).
const MinWithdrawalCents = 100

// WithdrawalFeeCents is charged on every withdrawal. Zero by policy, kept
// explicit so the fee is a contract rather than an accident.
const WithdrawalFeeCents = 0

// WithdrawKind selects which balance a withdrawal draws from.
type WithdrawKind string

const (
	WithdrawTask     WithdrawKind = "task"
	WithdrawReferral WithdrawKind = "referral"
)

// Decision is the outcome of an eligibility check. Reason is user-facing
// and set only when the action is denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allowed() Decision             { return Decision{Allowed: true} }
func denied(reason string) Decision { return Decision{Reason: reason} }

// Engine evaluates eligibility against a fixed catalog and a single pinned
// timezone. Day-of-week gates are always computed in that zone, never in
// whatever zone the incoming timestamp happens to carry.
type Engine struct {
	catalog *catalog.Catalog
	loc     *time.Location
}

// New returns an engine pinned to loc (UTC when nil).
func New(cat *catalog.Catalog, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{catalog: cat, loc: loc}
}

// CanClaimDailyTask reports whether p may claim the daily reward at now.
func (e *Engine) CanClaimDailyTask(p *models.Profile, now time.Time) Decision {
	if p.VIPLevel == models.VIPNone {
		return denied("no active plan")
	}
	local := now.In(e.loc)
	if isWeekend(local.Weekday()) {
		return denied("weekend protocol active: tasks run Monday to Friday")
	}
	if p.LastTaskClaim != nil {
		if elapsed := now.Sub(*p.LastTaskClaim); elapsed < ClaimCooldown {
			return denied(fmt.Sprintf("next task available in %s", formatCountdown(ClaimCooldown-elapsed)))
		}
	}
	return allowed()
}

// ClaimRewardCents is the amount a successful claim credits for p's tier.
func (e *Engine) ClaimRewardCents(p *models.Profile) int64 {
	return e.catalog.RewardCents(p.VIPLevel)
}

// CanWithdraw reports whether p may withdraw amountCents of the given kind
// at now. Checks run in fixed precedence; the first failure wins.
func (e *Engine) CanWithdraw(p *models.Profile, now time.Time, kind WithdrawKind, amountCents int64) Decision {
	if p.WithdrawalAddress == nil || *p.WithdrawalAddress == "" {
		return denied("set withdrawal address first")
	}
	if amountCents < MinWithdrawalCents {
		return denied("minimum withdrawal is $1.00")
	}
	balance := p.WithdrawableCents
	if kind == WithdrawReferral {
		balance = p.ReferralCents
	}
	if amountCents > balance {
		return denied("insufficient funds")
	}
	day := now.In(e.loc).Weekday()
	if day == time.Saturday {
		return denied("withdrawals closed on Saturdays")
	}
	if kind == WithdrawTask && !isWeekday(day) {
		return denied("task withdrawals are weekdays only")
	}
	if kind == WithdrawReferral && day != time.Sunday {
		return denied("referral withdrawals are Sundays only")
	}
	return allowed()
}

// CanRequestDeposit gates deposit requests: a positive amount is all that
// is required, verification is manual downstream.
func (e *Engine) CanRequestDeposit(amountCents int64) Decision {
	if amountCents <= 0 {
		return denied("deposit amount must be positive")
	}
	return allowed()
}

// CanRequestUpgrade gates tier upgrade requests: the target level must be
// a catalog tier strictly above the profile's current one.
func (e *Engine) CanRequestUpgrade(p *models.Profile, level int) Decision {
	if _, ok := e.catalog.ByLevel(level); !ok {
		return denied("unknown VIP package")
	}
	if level <= p.VIPLevel {
		return denied("requested tier is not above your current plan")
	}
	return allowed()
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func isWeekday(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

// formatCountdown renders a remaining duration as HH:MM:SS, rounding up so
// the countdown never shows 00:00:00 while the cooldown still holds.
func formatCountdown(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
