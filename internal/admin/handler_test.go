package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/ledger"
	"github.com/yieldpro/backend/internal/lifecycle"
	"github.com/yieldpro/backend/internal/models"
	"github.com/yieldpro/backend/internal/repository"
	"github.com/yieldpro/backend/internal/session"
)

// ---------------------------------------------------------------------------
// Fakes: a ledger that counts approvals and a transaction store with a
// handful of rows. The lifecycle manager under the handler is real.
// ---------------------------------------------------------------------------

type fakeLedger struct {
	mu               sync.Mutex
	txs              *fakeTxStore
	depositApprovals int
	upgradeApprovals int
	payoutApprovals  int
	resetFlagged     map[uuid.UUID]bool
}

var _ ledger.Service = (*fakeLedger)(nil)

func (f *fakeLedger) ProcessTaskClaim(context.Context, uuid.UUID, int64) (*models.Transaction, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeLedger) ApproveDeposit(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depositApprovals++
	return nil
}

func (f *fakeLedger) ApproveVipUpgrade(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upgradeApprovals++
	return nil
}

func (f *fakeLedger) ReserveWithdrawal(context.Context, uuid.UUID, int64, string, bool) (*models.Transaction, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeLedger) ApproveWithdrawal(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payoutApprovals++
	return nil
}

func (f *fakeLedger) CompletePasswordReset(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.txs.GetByID(context.Background(), id)
	if err != nil || t.Status != models.TxStatusPending || t.Type != models.TxTypePasswordReset {
		return ledger.ErrNotPending
	}
	if err := f.txs.UpdateStatus(context.Background(), id, models.TxStatusCompleted); err != nil {
		return err
	}
	if f.resetFlagged == nil {
		f.resetFlagged = make(map[uuid.UUID]bool)
	}
	f.resetFlagged[t.UserID] = true
	return nil
}

func (f *fakeLedger) RejectTransaction(context.Context, uuid.UUID, string) error { return nil }

type fakeTxStore struct {
	mu      sync.Mutex
	txs     map[uuid.UUID]*models.Transaction
	updates map[uuid.UUID]string
}

func newFakeTxStore(txs ...*models.Transaction) *fakeTxStore {
	s := &fakeTxStore{txs: make(map[uuid.UUID]*models.Transaction), updates: make(map[uuid.UUID]string)}
	for _, t := range txs {
		s.txs[t.ID] = t
	}
	return s
}

func (s *fakeTxStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTxStore) ListPending(context.Context) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range s.txs {
		if t.Status == models.TxStatusPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeTxStore) Create(context.Context, *models.Transaction) error { return nil }

func (s *fakeTxStore) ListByUserID(context.Context, uuid.UUID) ([]*models.Transaction, error) {
	return nil, nil
}

func (s *fakeTxStore) ListAll(context.Context) ([]*models.Transaction, error) { return nil, nil }

func (s *fakeTxStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.Status != models.TxStatusPending {
		return repository.ErrNotPending
	}
	t.Status = status
	s.updates[id] = status
	return nil
}

type fakeProfileStore struct{}

func (s *fakeProfileStore) GetByID(context.Context, uuid.UUID) (*models.Profile, error) {
	return nil, repository.ErrNotFound
}

func (s *fakeProfileStore) List(context.Context) ([]*models.Profile, error) { return nil, nil }

func testHandler(led *fakeLedger, txs *fakeTxStore) *Handler {
	cat := catalog.Default()
	engine := eligibility.New(cat, nil)
	profiles := &fakeProfileStore{}
	mgr := lifecycle.NewManager(profiles, txs, led, engine, cat, nil)
	sessions := session.New(profiles, txs)
	return NewHandler(mgr, sessions, txs, cat, nil)
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/approve", strings.NewReader(body)))
	return rec
}

// ---------------------------------------------------------------------------
// Proof gate
// ---------------------------------------------------------------------------

func TestApprove_DepositRequiresExactProof(t *testing.T) {
	wallet := "TSenderWallet123"
	tx := &models.Transaction{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Type:    models.TxTypeDeposit,
		Status:  models.TxStatusPending,
		Address: &wallet,
	}
	led := &fakeLedger{}
	h := testHandler(led, newFakeTxStore(tx))

	// Near-miss proof is refused and nothing is credited.
	rec := postJSON(h.Approve, fmt.Sprintf(`{"transaction_id":%q,"proof":"tsenderwallet123"}`, tx.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("mismatched proof: got %d, want 403", rec.Code)
	}
	if led.depositApprovals != 0 {
		t.Errorf("deposit approved despite proof mismatch")
	}

	// Byte-exact proof passes.
	rec = postJSON(h.Approve, fmt.Sprintf(`{"transaction_id":%q,"proof":"TSenderWallet123"}`, tx.ID))
	if rec.Code != http.StatusNoContent {
		t.Errorf("exact proof: got %d, want 204", rec.Code)
	}
	if led.depositApprovals != 1 {
		t.Errorf("deposit approvals: got %d, want 1", led.depositApprovals)
	}
}

func TestApprove_UpgradeRequiresProofToo(t *testing.T) {
	wallet := "TSenderWallet123"
	tx := &models.Transaction{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Type:     models.TxTypeVIPUpgrade,
		Status:   models.TxStatusPending,
		Address:  &wallet,
		Metadata: models.EncodeMeta(models.TxMetadata{VIPLevel: 2}),
	}
	led := &fakeLedger{}
	h := testHandler(led, newFakeTxStore(tx))

	rec := postJSON(h.Approve, fmt.Sprintf(`{"transaction_id":%q,"proof":""}`, tx.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("empty proof: got %d, want 403", rec.Code)
	}
	if led.upgradeApprovals != 0 {
		t.Error("upgrade approved with empty proof")
	}
}

func TestApprove_WithdrawalNeedsNoProof(t *testing.T) {
	dest := "TDestWallet"
	tx := &models.Transaction{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Type:    models.TxTypeWithdrawal,
		Status:  models.TxStatusPending,
		Address: &dest,
	}
	led := &fakeLedger{}
	h := testHandler(led, newFakeTxStore(tx))

	rec := postJSON(h.Approve, fmt.Sprintf(`{"transaction_id":%q}`, tx.ID))
	if rec.Code != http.StatusNoContent {
		t.Errorf("withdrawal approval: got %d, want 204", rec.Code)
	}
	if led.payoutApprovals != 1 {
		t.Errorf("payout approvals: got %d, want 1", led.payoutApprovals)
	}
}

func TestApprove_UnknownTransaction(t *testing.T) {
	h := testHandler(&fakeLedger{}, newFakeTxStore())
	rec := postJSON(h.Approve, fmt.Sprintf(`{"transaction_id":%q,"proof":"x"}`, uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown transaction: got %d, want 404", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Password reset completion
// ---------------------------------------------------------------------------

func TestCompletePasswordReset(t *testing.T) {
	tx := &models.Transaction{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Type:   models.TxTypePasswordReset,
		Status: models.TxStatusPending,
	}
	txs := newFakeTxStore(tx)
	led := &fakeLedger{txs: txs}
	h := testHandler(led, txs)

	rec := postJSON(h.CompletePasswordReset, fmt.Sprintf(`{"transaction_id":%q}`, tx.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if !led.resetFlagged[tx.UserID] {
		t.Error("user not forced to change password")
	}
	if txs.updates[tx.ID] != models.TxStatusCompleted {
		t.Error("reset request not closed")
	}

	// Closing it twice fails: the request already left pending.
	rec = postJSON(h.CompletePasswordReset, fmt.Sprintf(`{"transaction_id":%q}`, tx.ID))
	if rec.Code != http.StatusConflict {
		t.Errorf("second completion: got %d, want 409", rec.Code)
	}
}
