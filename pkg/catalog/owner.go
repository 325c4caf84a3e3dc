package catalog

import (
	"context"
	"fmt"

	"mediasync/pkg/db/store"
)

// ownerCandidate pairs an account with the counts its ranking uses.
type ownerCandidate struct {
	AccountID string
	Items     int64
	Devices   int64
	CreatedMs int64
}

// rankOwner picks the canonical account out of the candidate set: most
// non-tombstoned items first, then most devices, then earliest creation.
// Pure so the heuristic can be swapped or tested without a store.
func rankOwner(candidates []ownerCandidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Items != best.Items:
			if c.Items > best.Items {
				best = c
			}
		case c.Devices != best.Devices:
			if c.Devices > best.Devices {
				best = c
			}
		case c.CreatedMs < best.CreatedMs:
			best = c
		}
	}
	return best.AccountID, true
}

// resolveOwner returns the single canonical account id. Recomputed per
// operation instead of cached, so a merge that changes which account
// qualifies is picked up immediately. Never mutates state.
func resolveOwner(ctx context.Context, tx store.MetadataStore) (string, error) {
	accounts, err := tx.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}

	candidates := make([]ownerCandidate, 0, len(accounts))
	for _, a := range accounts {
		items, err := tx.CountActiveItems(ctx, a.ID)
		if err != nil {
			return "", fmt.Errorf("failed to count items for account %s: %w", a.ID, err)
		}
		devices, err := tx.CountDevices(ctx, a.ID)
		if err != nil {
			return "", fmt.Errorf("failed to count devices for account %s: %w", a.ID, err)
		}
		candidates = append(candidates, ownerCandidate{
			AccountID: a.ID,
			Items:     items,
			Devices:   devices,
			CreatedMs: a.Created.UnixMilli(),
		})
	}

	id, ok := rankOwner(candidates)
	if !ok {
		return "", ErrNoAccount
	}
	return id, nil
}

// ResolveOwner exposes owner resolution outside a merge unit.
func (e *Engine) ResolveOwner(ctx context.Context) (string, error) {
	return resolveOwner(ctx, e.store)
}
