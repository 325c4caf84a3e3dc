package catalog

import (
	"context"
	"fmt"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// Tombstone lifecycle: active -> trashed -> purged, with restore as the
// only backward transition. Trashing is idempotent so that replayed
// tombstone lists from peers are harmless.

// TrashItem sets the tombstone on an item. Re-trashing a trashed item is
// a no-op, not an error.
func (e *Engine) TrashItem(ctx context.Context, id string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		return e.trashItem(ctx, tx, accountID, id)
	})
}

func (e *Engine) trashItem(ctx context.Context, tx store.MetadataStore, accountID, id string) error {
	item, err := tx.GetItem(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("failed to look up item %s: %w", id, err)
	}
	if item.Trashed() {
		return nil
	}

	now := e.now()
	item.Deleted = &now
	item.Updated = now
	return tx.UpdateItem(ctx, item)
}

// RestoreItem clears the tombstone. This is the only path that ever
// clears a set Deleted timestamp.
func (e *Engine) RestoreItem(ctx context.Context, id string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		item, err := tx.GetItem(ctx, accountID, id)
		if err != nil {
			return fmt.Errorf("failed to look up item %s: %w", id, err)
		}
		if !item.Trashed() {
			return nil
		}
		item.Deleted = nil
		item.Updated = e.now()
		return tx.UpdateItem(ctx, item)
	})
}

// PurgeItem permanently removes an item and its dependents. The normal
// path only purges from the trashed state; force skips that guard.
func (e *Engine) PurgeItem(ctx context.Context, id string, force bool) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		item, err := tx.GetItem(ctx, accountID, id)
		if err != nil {
			return fmt.Errorf("failed to look up item %s: %w", id, err)
		}
		if !item.Trashed() && !force {
			return fmt.Errorf("cannot purge item %s: %w", id, ErrNotTrashed)
		}
		return e.purgeItem(ctx, tx, item)
	})
}

func (e *Engine) purgeItem(ctx context.Context, tx store.MetadataStore, item *models.MediaItem) error {
	locations, err := tx.ListLocationsByItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to list locations for item %s: %w", item.ID, err)
	}
	for _, l := range locations {
		if err := tx.DeleteLocation(ctx, l.ID); err != nil {
			return fmt.Errorf("failed to delete location %s: %w", l.ID, err)
		}
	}
	if err := tx.DeleteTagLinksByItem(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete tag links for item %s: %w", item.ID, err)
	}
	return tx.DeleteItem(ctx, item.ID)
}

// EmptyTrash purges every trashed item in one unit. Returns the number of
// items removed; running it again removes nothing.
func (e *Engine) EmptyTrash(ctx context.Context) (int, error) {
	purged := 0
	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		items, err := tx.ListTrashedItems(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list trashed items: %w", err)
		}
		for i := range items {
			if err := e.purgeItem(ctx, tx, &items[i]); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		e.info("emptied trash, purged %d items", purged)
	}
	return purged, nil
}

// ListTrash returns the trashed items, newest tombstone first.
func (e *Engine) ListTrash(ctx context.Context) ([]models.MediaItem, error) {
	accountID, err := resolveOwner(ctx, e.store)
	if err != nil {
		return nil, err
	}
	return e.store.ListTrashedItems(ctx, accountID)
}

// applyTombstones marks each pushed id as trashed rather than removing
// it, preserving the tombstone for future pulls by other peers. Unknown
// ids are skipped; a peer may know about items that never reached us.
func (e *Engine) applyTombstones(ctx context.Context, tx store.MetadataStore, accountID string, ids []string) (int, error) {
	marked := 0
	for _, id := range ids {
		item, err := tx.GetItem(ctx, accountID, id)
		if notFound(err) {
			continue
		}
		if err != nil {
			return marked, fmt.Errorf("failed to look up tombstoned item %s: %w", id, err)
		}
		if item.Trashed() {
			continue
		}
		now := e.now()
		item.Deleted = &now
		item.Updated = now
		if err := tx.UpdateItem(ctx, item); err != nil {
			return marked, fmt.Errorf("failed to tombstone item %s: %w", id, err)
		}
		marked++
	}
	return marked, nil
}
