package catalog

import (
	"context"
	"fmt"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// mergeItem applies one incoming item with last-writer-wins resolution
// and then merges its locations. Returns whether the item fields were
// applied (an insert counts as applied; a stale update does not).
//
// Absence of an incoming item never deletes anything, and tombstones on
// local rows survive the merge untouched; deletion travels only through
// the explicit tombstone list.
func (e *Engine) mergeItem(ctx context.Context, tx store.MetadataStore, accountID, syncDeviceID string, in WireItem) (bool, error) {
	if in.ID == "" {
		return false, fmt.Errorf("incoming item is missing an id")
	}

	applied := false

	local, err := tx.GetItem(ctx, accountID, in.ID)
	switch {
	case notFound(err):
		now := e.now()
		created, ok := parseWireTime(in.Created)
		if !ok {
			created = now
		}
		updated, ok := parseWireTime(in.Updated)
		if !ok {
			updated = now
		}

		item := &models.MediaItem{
			ID:          in.ID,
			AccountID:   accountID,
			FolderID:    e.sanitizeFolderRef(ctx, tx, accountID, in.FolderID),
			Title:       in.Title,
			MediaType:   in.MediaType,
			Description: in.Description,
			Created:     created,
			Updated:     updated,
		}
		if err := tx.CreateItem(ctx, item); err != nil {
			return false, fmt.Errorf("failed to insert item: %w", err)
		}
		applied = true

	case err != nil:
		return false, fmt.Errorf("failed to look up item: %w", err)

	default:
		// Ties favor the incoming write; unparseable timestamps compare
		// as zero and lose against any real local timestamp.
		if wireMillis(in.Updated) >= local.Updated.UnixMilli() {
			local.Title = in.Title
			local.FolderID = e.sanitizeFolderRef(ctx, tx, accountID, in.FolderID)
			local.MediaType = in.MediaType
			local.Description = in.Description
			if t, ok := parseWireTime(in.Updated); ok {
				local.Updated = t
			} else {
				local.Updated = e.now()
			}
			if err := tx.UpdateItem(ctx, local); err != nil {
				return false, fmt.Errorf("failed to update item: %w", err)
			}
			applied = true
		}
	}

	// Locations are device-owned and merge regardless of the item
	// outcome: the reporting device is the sole writer of its own rows.
	for _, loc := range in.Locations {
		if err := e.mergeLocation(ctx, tx, accountID, in.ID, loc, &syncDeviceID, &syncDeviceID); err != nil {
			return applied, fmt.Errorf("failed to merge location %s: %w", loc.ID, err)
		}
	}

	return applied, nil
}

// mergeLocation upserts one storage location under the given item. The
// device reference is sanitized so it can never dangle: an unknown device
// becomes the fallback (the syncing device) or null. Local-kind locations
// are always force-assigned to forceLocal when set, because a device only
// reports about its own filesystem. No last-writer-wins gate here.
func (e *Engine) mergeLocation(ctx context.Context, tx store.MetadataStore, accountID, itemID string, in WireLocation, forceLocal, fallback *string) error {
	if in.ID == "" {
		return fmt.Errorf("incoming location is missing an id")
	}

	deviceID := in.DeviceID
	if in.Kind == models.StorageKindLocal && forceLocal != nil {
		deviceID = forceLocal
	} else {
		deviceID = e.sanitizeDeviceRef(ctx, tx, accountID, deviceID, fallback)
	}

	now := e.now()
	updated, ok := parseWireTime(in.Updated)
	if !ok {
		updated = now
	}

	existing, err := tx.GetLocation(ctx, in.ID)
	switch {
	case notFound(err):
		created, ok := parseWireTime(in.Created)
		if !ok {
			created = now
		}
		location := &models.StorageLocation{
			ID:         in.ID,
			ItemID:     itemID,
			DeviceID:   deviceID,
			Kind:       in.Kind,
			Path:       in.Path,
			AccessHint: in.AccessHint,
			Created:    created,
			Updated:    updated,
		}
		if in.Available != nil {
			location.Available = *in.Available
		}
		return tx.CreateLocation(ctx, location)

	case err != nil:
		return fmt.Errorf("failed to look up location: %w", err)
	}

	existing.ItemID = itemID
	existing.DeviceID = deviceID
	existing.Kind = in.Kind
	existing.Path = in.Path
	existing.AccessHint = in.AccessHint
	if in.Available != nil {
		existing.Available = *in.Available
	}
	existing.Updated = updated
	return tx.UpdateLocation(ctx, existing)
}

// sanitizeDeviceRef returns ref when it names an existing device of the
// account, the fallback when it does not, nil when there is no fallback.
func (e *Engine) sanitizeDeviceRef(ctx context.Context, tx store.MetadataStore, accountID string, ref, fallback *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	device, err := tx.GetDevice(ctx, *ref)
	if err == nil && device.AccountID == accountID {
		return ref
	}
	if fallback != nil && *fallback != "" {
		e.warn("location references unknown device %s, reassigning to %s", *ref, *fallback)
		return fallback
	}
	e.warn("location references unknown device %s, clearing the reference", *ref)
	return nil
}

// sanitizeFolderRef clears a folder reference that does not resolve
// within the account, leaving the item at the root instead of dangling.
func (e *Engine) sanitizeFolderRef(ctx context.Context, tx store.MetadataStore, accountID string, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	folder, err := tx.GetFolder(ctx, *ref)
	if err != nil || folder.AccountID != accountID {
		return nil
	}
	return ref
}
