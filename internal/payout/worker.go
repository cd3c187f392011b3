package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// DispatchPayoutArgs describes one approved withdrawal to hand off to the
// external payout processor. Jobs are enqueued inside the same database
// transaction that marks the withdrawal completed.
type DispatchPayoutArgs struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Address      string    `json:"address"`
	AmountCents  int64     `json:"amount_cents"`
	IsReferral   bool      `json:"is_referral"`
}

func (DispatchPayoutArgs) Kind() string { return "dispatch_payout" }

// DispatchPayoutWorker POSTs approved withdrawals to the payout webhook.
// Non-2xx responses and network errors are returned so river retries.
type DispatchPayoutWorker struct {
	river.WorkerDefaults[DispatchPayoutArgs]
	webhookURL string
	httpClient *http.Client
}

func NewDispatchPayoutWorker(webhookURL string) *DispatchPayoutWorker {
	return &DispatchPayoutWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *DispatchPayoutWorker) Work(ctx context.Context, job *river.Job[DispatchPayoutArgs]) error {
	body, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payout processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payout processor returned status %d for withdrawal %s", resp.StatusCode, job.Args.WithdrawalID)
	}
	return nil
}
