// Package account serves the authenticated user surface. Every mutating
// endpoint answers with a fresh profile snapshot read back from the store
// so the client never has to patch local state.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/auth"
	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/insight"
	"github.com/yieldpro/backend/internal/ledger"
	"github.com/yieldpro/backend/internal/lifecycle"
	"github.com/yieldpro/backend/internal/middleware"
	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/repository"
	"github.com/yieldpro/backend/internal/session"
)

// AddressUpdater is the single profile write this handler performs itself.
type AddressUpdater interface {
	UpdateWithdrawalAddress(ctx context.Context, id uuid.UUID, address string) error
}

type Handler struct {
	manager        *lifecycle.Manager
	sessions       *session.Session
	authSvc        auth.Service
	insights       *insight.Service
	catalog        *catalog.Catalog
	addresses      AddressUpdater
	depositAddress string
	log            *slog.Logger
}

func NewHandler(manager *lifecycle.Manager, sessions *session.Session, authSvc auth.Service, insights *insight.Service, cat *catalog.Catalog, addresses AddressUpdater, depositAddress string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager:        manager,
		sessions:       sessions,
		authSvc:        authSvc,
		insights:       insights,
		catalog:        cat,
		addresses:      addresses,
		depositAddress: depositAddress,
		log:            log,
	}
}

type SettingsRequest struct {
	WithdrawalAddress *string `json:"withdrawal_address,omitempty"`
	NewPassword       *string `json:"new_password,omitempty"`
}

type DepositRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	SenderAddress string `json:"sender_address"`
}

type WithdrawalRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Kind        string `json:"kind"`
}

type UpgradeRequest struct {
	Level         int    `json:"level"`
	SenderAddress string `json:"sender_address"`
}

type SnapshotResponse struct {
	Profile *models.Profile `json:"profile"`
}

type PackagesResponse struct {
	Packages       []catalog.Package `json:"packages"`
	DepositAddress string            `json:"deposit_address"`
}

type InsightResponse struct {
	Commentary string `json:"commentary"`
}

// Me returns the caller's profile with transactions, newest first.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	h.respondSnapshot(w, r)
}

// UpdateSettings patches the withdrawal address and/or password.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.WithdrawalAddress == nil && req.NewPassword == nil {
		http.Error(w, "no settings provided", http.StatusBadRequest)
		return
	}
	if req.WithdrawalAddress != nil {
		if *req.WithdrawalAddress == "" {
			http.Error(w, "withdrawal address cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		if err := h.addresses.UpdateWithdrawalAddress(r.Context(), id.UserID, *req.WithdrawalAddress); err != nil {
			h.log.Error("address update failed", "error", err, "user_id", id.UserID)
			http.Error(w, "update failed", http.StatusInternalServerError)
			return
		}
	}
	if req.NewPassword != nil {
		if err := h.authSvc.ChangePassword(r.Context(), id.UserID, *req.NewPassword); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	h.respondSnapshot(w, r)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	p, err := h.sessions.Snapshot(r.Context(), id.UserID)
	if err != nil {
		h.log.Error("snapshot failed", "error", err, "user_id", id.UserID)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p.Transactions)
}

// ClaimDailyTask runs the daily reward claim.
func (h *Handler) ClaimDailyTask(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if _, err := h.manager.ClaimDailyTask(r.Context(), id.UserID); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondSnapshot(w, r)
}

func (h *Handler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SenderAddress == "" {
		http.Error(w, "sender address is required", http.StatusUnprocessableEntity)
		return
	}
	if _, err := h.manager.RequestDeposit(r.Context(), id.UserID, req.AmountCents, req.SenderAddress); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondSnapshot(w, r)
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	var req WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	kind := eligibility.WithdrawKind(req.Kind)
	if kind != eligibility.WithdrawTask && kind != eligibility.WithdrawReferral {
		http.Error(w, "kind must be task or referral", http.StatusBadRequest)
		return
	}
	if _, err := h.manager.RequestWithdrawal(r.Context(), id.UserID, kind, req.AmountCents); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondSnapshot(w, r)
}

func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	var req UpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SenderAddress == "" {
		http.Error(w, "sender address is required", http.StatusUnprocessableEntity)
		return
	}
	if _, err := h.manager.RequestVipUpgrade(r.Context(), id.UserID, req.Level, req.SenderAddress); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondSnapshot(w, r)
}

// Packages lists the tier catalog plus the platform deposit address.
func (h *Handler) Packages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PackagesResponse{
		Packages:       h.catalog.Packages(),
		DepositAddress: h.depositAddress,
	})
}

// Insight returns market commentary for the caller's tier. Degrades to a
// canned line internally, so it never fails.
func (h *Handler) Insight(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	level := 0
	if p, err := h.sessions.Snapshot(r.Context(), id.UserID); err == nil {
		level = p.VIPLevel
	}
	writeJSON(w, http.StatusOK, InsightResponse{Commentary: h.insights.Commentary(r.Context(), level)})
}

func (h *Handler) respondSnapshot(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	p, err := h.sessions.Snapshot(r.Context(), id.UserID)
	if err != nil {
		h.log.Error("snapshot failed", "error", err, "user_id", id.UserID)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Profile: p})
}

// writeActionError maps lifecycle and ledger failures to status codes:
// local validation 422, state conflicts 409, everything else 500.
func (h *Handler) writeActionError(w http.ResponseWriter, err error) {
	var ineligible *lifecycle.IneligibleError
	switch {
	case errors.As(err, &ineligible):
		http.Error(w, ineligible.Reason, http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrClaimUnavailable):
		http.Error(w, "task already claimed", http.StatusConflict)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.log.Error("account action failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
