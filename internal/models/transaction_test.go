package models

import (
	"encoding/json"
	"testing"
)

func TestCanTransition(t *testing.T) {
	// Pending reaches any terminal status.
	for _, to := range []string{TxStatusCompleted, TxStatusFailed, TxStatusCancelled} {
		if !CanTransition(TxStatusPending, to) {
			t.Errorf("pending -> %s should be legal", to)
		}
	}
	// Terminal statuses never move again, not even back to pending.
	for _, from := range []string{TxStatusCompleted, TxStatusFailed, TxStatusCancelled} {
		for _, to := range []string{TxStatusPending, TxStatusCompleted, TxStatusFailed, TxStatusCancelled} {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should be illegal", from, to)
			}
		}
	}
	if CanTransition(TxStatusPending, "approved") {
		t.Error("unknown target status accepted")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	tx := &Transaction{Metadata: EncodeMeta(TxMetadata{VIPLevel: 3})}
	if got := tx.Meta().VIPLevel; got != 3 {
		t.Errorf("VIPLevel: got %d, want 3", got)
	}

	tx = &Transaction{Metadata: EncodeMeta(TxMetadata{IsReferral: true})}
	if !tx.Meta().IsReferral {
		t.Error("IsReferral lost in round trip")
	}
}

func TestMetaToleratesMissingAndMalformed(t *testing.T) {
	if m := (&Transaction{}).Meta(); m != (TxMetadata{}) {
		t.Errorf("nil metadata: got %+v, want zero value", m)
	}
	if m := (&Transaction{Metadata: json.RawMessage(`{broken`)}).Meta(); m != (TxMetadata{}) {
		t.Errorf("malformed metadata: got %+v, want zero value", m)
	}
}

func TestEncodeMetaZeroValueStaysNull(t *testing.T) {
	if raw := EncodeMeta(TxMetadata{}); raw != nil {
		t.Errorf("zero metadata encoded as %s, want nil", raw)
	}
}
