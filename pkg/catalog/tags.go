package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// EnsureTag returns the account's tag with the given name, creating it if
// it does not exist yet.
func (e *Engine) EnsureTag(ctx context.Context, name string) (*models.Tag, error) {
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	var tag *models.Tag
	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		existing, err := tx.GetTagByName(ctx, accountID, name)
		if err == nil {
			tag = existing
			return nil
		}
		if !notFound(err) {
			return fmt.Errorf("failed to look up tag %q: %w", name, err)
		}

		now := e.now()
		tag = &models.Tag{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Name:      name,
			Created:   now,
			Updated:   now,
		}
		return tx.CreateTag(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// TagItem links an item to a tag. Linking twice is a no-op.
func (e *Engine) TagItem(ctx context.Context, itemID, tagID string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.GetItem(ctx, accountID, itemID); err != nil {
			return fmt.Errorf("failed to look up item %s: %w", itemID, err)
		}
		if _, err := tx.GetTag(ctx, tagID); err != nil {
			return fmt.Errorf("failed to look up tag %s: %w", tagID, err)
		}
		return tx.CreateTagLink(ctx, &models.MediaTag{ItemID: itemID, TagID: tagID})
	})
}

// RemoveTag deletes a tag that no item links to anymore. A tag still in
// use is rejected instead of cascading through the links.
func (e *Engine) RemoveTag(ctx context.Context, id string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		count, err := tx.CountLinksByTag(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count links for tag %s: %w", id, err)
		}
		if count > 0 {
			return fmt.Errorf("cannot remove tag %s (%d links): %w", id, count, ErrTagInUse)
		}
		return tx.DeleteTag(ctx, id)
	})
}

// RemoveFolder deletes an empty folder. Folders that still contain child
// folders or items are rejected; the caller moves or removes the
// children first.
func (e *Engine) RemoveFolder(ctx context.Context, id string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		children, err := tx.CountChildFolders(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count child folders of %s: %w", id, err)
		}
		items, err := tx.CountFolderItems(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count items in folder %s: %w", id, err)
		}
		if children > 0 || items > 0 {
			return fmt.Errorf("cannot remove folder %s (%d folders, %d items): %w", id, children, items, ErrFolderNotEmpty)
		}
		return tx.DeleteFolder(ctx, id)
	})
}
