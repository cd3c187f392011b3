package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/ledger"
	"github.com/yieldpro/backend/internal/lifecycle"
	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/repository"
	"github.com/yieldpro/backend/internal/session"
)

// TransactionStore is the read surface for queue building and type checks
// ahead of lifecycle transitions.
type TransactionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListPending(ctx context.Context) ([]*models.Transaction, error)
}

type Handler struct {
	manager  *lifecycle.Manager
	sessions *session.Session
	txs      TransactionStore
	catalog  *catalog.Catalog
	log      *slog.Logger
}

func NewHandler(manager *lifecycle.Manager, sessions *session.Session, txs TransactionStore, cat *catalog.Catalog, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager:  manager,
		sessions: sessions,
		txs:      txs,
		catalog:  cat,
		log:      log,
	}
}

type ApproveRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	// Proof is the admin's typed copy of the claimed sender wallet. It must
	// match the stored address byte for byte on deposits and upgrades.
	Proof string `json:"proof"`
}

type RejectRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"`
}

type ResetCompleteRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
}

type PasswordResetView struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
}

// Users returns the full roster with nested transactions.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.sessions.Roster(r.Context())
	if err != nil {
		h.log.Error("roster fetch failed", "error", err)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// PendingQueues builds the deposit, withdrawal and upgrade work queues.
func (h *Handler) PendingQueues(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.sessions.Roster(r.Context())
	if err != nil {
		h.log.Error("roster fetch failed", "error", err)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	pending, err := h.txs.ListPending(r.Context())
	if err != nil {
		h.log.Error("pending fetch failed", "error", err)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, BuildQueues(profiles, pending, h.catalog, h.log))
}

// Approve completes a pending transaction. Deposits and upgrades require
// the typed proof to match the stored sender wallet exactly.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	t, err := h.txs.GetByID(r.Context(), req.TransactionID)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}

	switch t.Type {
	case models.TxTypeDeposit, models.TxTypeVIPUpgrade:
		stored := ""
		if t.Address != nil {
			stored = *t.Address
		}
		if !VerifyProof(req.Proof, stored) {
			http.Error(w, "proof does not match claimed sender wallet", http.StatusForbidden)
			return
		}
		if t.Type == models.TxTypeDeposit {
			err = h.manager.ApproveDeposit(r.Context(), t.ID)
		} else {
			err = h.manager.ApproveVipUpgrade(r.Context(), t.ID)
		}
	case models.TxTypeWithdrawal:
		err = h.manager.ApproveWithdrawal(r.Context(), t.ID)
	default:
		http.Error(w, "transaction type cannot be approved here", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reject moves a pending transaction to failed or cancelled. Reserved
// withdrawal funds are refunded in the same operation.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	status := req.Status
	if status == "" {
		status = models.TxStatusFailed
	}
	if status != models.TxStatusFailed && status != models.TxStatusCancelled {
		http.Error(w, "status must be failed or cancelled", http.StatusBadRequest)
		return
	}
	if err := h.manager.Reject(r.Context(), req.TransactionID, status); err != nil {
		h.writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PasswordResets lists pending reset requests.
func (h *Handler) PasswordResets(w http.ResponseWriter, r *http.Request) {
	pending, err := h.txs.ListPending(r.Context())
	if err != nil {
		h.log.Error("pending fetch failed", "error", err)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	views := []PasswordResetView{}
	for _, t := range pending {
		if t.Type == models.TxTypePasswordReset {
			views = append(views, PasswordResetView{TransactionID: t.ID, UserID: t.UserID})
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// CompletePasswordReset acknowledges a reset request: the user is forced
// to change their password on next login and the request is closed.
func (h *Handler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	t, err := h.txs.GetByID(r.Context(), req.TransactionID)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	if t.Type != models.TxTypePasswordReset {
		http.Error(w, "not a password reset request", http.StatusBadRequest)
		return
	}
	if err := h.manager.CompletePasswordReset(r.Context(), t.ID); err != nil {
		h.writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrNotPending):
		http.Error(w, "transaction is not pending", http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidUpgrade):
		http.Error(w, "upgrade does not raise the user's tier", http.StatusConflict)
	case errors.Is(err, ledger.ErrUnknownTier):
		http.Error(w, "upgrade carries an unknown tier", http.StatusUnprocessableEntity)
	default:
		h.log.Error("admin action failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
