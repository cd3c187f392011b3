// Package session resolves an authenticated identity to a profile snapshot
// read straight from the store of record. Callers re-fetch after every
// mutation instead of patching local state; there is no ambient current
// user, every call is explicit.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/yieldpro/backend/internal/models"
)

// ProfileStore is the profile read surface.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
}

// TransactionStore is the transaction read surface.
type TransactionStore interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
	ListAll(ctx context.Context) ([]*models.Transaction, error)
}

type Session struct {
	profiles ProfileStore
	txs      TransactionStore
}

func New(profiles ProfileStore, txs TransactionStore) *Session {
	return &Session{profiles: profiles, txs: txs}
}

// Snapshot returns the profile with its transactions, newest first.
func (s *Session) Snapshot(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.txs.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Transactions = txs
	return p, nil
}

// Roster returns every profile with its transactions attached, for the
// admin view.
func (s *Session) Roster(ctx context.Context) ([]*models.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.txs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uuid.UUID][]*models.Transaction)
	for _, t := range all {
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}
	for _, p := range profiles {
		p.Transactions = byUser[p.ID]
	}
	return profiles, nil
}
