package catalog

import (
	"context"
	"fmt"
	"time"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// Export produces a whole-catalog snapshot, or everything updated since
// the given cursor when non-nil. Devices, folders and tags are always
// complete so that the receiving side can resolve references.
func (e *Engine) Export(ctx context.Context, since *time.Time) (Snapshot, error) {
	var snap Snapshot

	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		devices, err := tx.ListDevices(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		for _, d := range devices {
			snap.Devices = append(snap.Devices, deviceToWire(d))
		}

		folders, err := tx.ListFolders(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		for _, f := range folders {
			snap.Folders = append(snap.Folders, folderToWire(f))
		}

		tags, err := tx.ListTags(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		for _, t := range tags {
			snap.Tags = append(snap.Tags, tagToWire(t))
		}

		items, err := tx.ListItems(ctx, accountID, since)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		for _, item := range items {
			snap.MediaItems = append(snap.MediaItems, itemToWire(item, nil))

			locations, err := tx.ListLocationsByItem(ctx, item.ID)
			if err != nil {
				return fmt.Errorf("failed to list locations for item %s: %w", item.ID, err)
			}
			for _, l := range locations {
				snap.StorageLocations = append(snap.StorageLocations, locationToWire(l, true))
			}
		}

		links, err := tx.ListTagLinks(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list tag links: %w", err)
		}
		for _, l := range links {
			snap.MediaTags = append(snap.MediaTags, WireTagLink{ItemID: l.ItemID, TagID: l.TagID})
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Import merges a complete peer snapshot into the local catalog inside
// one transaction, in fixed dependency order. Rows that already exist are
// overwritten field by field: import is an explicit operator-triggered
// merge, so caller intent beats timestamps. Existing rows are never
// replaced via delete-then-insert, which would cascade through foreign
// keys and destroy children.
func (e *Engine) Import(ctx context.Context, snap Snapshot) (ImportResult, error) {
	var result ImportResult

	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		// 1. Devices carry no self-references and go in directly.
		for _, d := range snap.Devices {
			if err := e.importDevice(ctx, tx, accountID, d); err != nil {
				return fmt.Errorf("failed to import device %s: %w", d.ID, err)
			}
			result.Devices++
		}

		// 2. Folder shells first, every parent cleared: after this pass
		// each folder id provably exists, whatever order the snapshot
		// listed them in.
		for _, f := range snap.Folders {
			if err := e.importFolderShell(ctx, tx, accountID, f); err != nil {
				return fmt.Errorf("failed to import folder %s: %w", f.ID, err)
			}
			result.Folders++
		}

		// 3. Wire the parent edges, but only against folders that now
		// exist. A parent that is the folder itself or absent entirely
		// leaves the folder at the root.
		for _, f := range snap.Folders {
			if err := e.wireFolderParent(ctx, tx, accountID, f); err != nil {
				return fmt.Errorf("failed to wire folder parent %s: %w", f.ID, err)
			}
		}

		// 4. Tags
		for _, t := range snap.Tags {
			imported, err := e.importTag(ctx, tx, accountID, t)
			if err != nil {
				return fmt.Errorf("failed to import tag %s: %w", t.ID, err)
			}
			if imported {
				result.Tags++
			}
		}

		// 5. Items, folder references sanitized
		for _, item := range snap.MediaItems {
			if err := e.importItem(ctx, tx, accountID, item); err != nil {
				return fmt.Errorf("failed to import item %s: %w", item.ID, err)
			}
			result.Items++
		}

		// 6. Locations: drop rows whose item never made it, sanitize the
		// device reference, upsert the rest.
		for _, loc := range snap.StorageLocations {
			if _, err := tx.GetItem(ctx, accountID, loc.ItemID); notFound(err) {
				result.SkippedLocations++
				continue
			} else if err != nil {
				return fmt.Errorf("failed to look up item %s: %w", loc.ItemID, err)
			}
			if err := e.mergeLocation(ctx, tx, accountID, loc.ItemID, loc, nil, nil); err != nil {
				return fmt.Errorf("failed to import location %s: %w", loc.ID, err)
			}
			result.Locations++
		}

		// 7. Tag links: both endpoints must exist; duplicates are no-ops.
		for _, link := range snap.MediaTags {
			if _, err := tx.GetItem(ctx, accountID, link.ItemID); notFound(err) {
				result.SkippedLinks++
				continue
			} else if err != nil {
				return fmt.Errorf("failed to look up item %s: %w", link.ItemID, err)
			}
			if _, err := tx.GetTag(ctx, link.TagID); notFound(err) {
				result.SkippedLinks++
				continue
			} else if err != nil {
				return fmt.Errorf("failed to look up tag %s: %w", link.TagID, err)
			}
			if err := tx.CreateTagLink(ctx, &models.MediaTag{ItemID: link.ItemID, TagID: link.TagID}); err != nil {
				return fmt.Errorf("failed to import tag link %s/%s: %w", link.ItemID, link.TagID, err)
			}
			result.Links++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	e.info("imported snapshot: %d devices, %d folders, %d tags, %d items, %d locations (%d skipped), %d links (%d skipped)",
		result.Devices, result.Folders, result.Tags, result.Items,
		result.Locations, result.SkippedLocations, result.Links, result.SkippedLinks)
	return result, nil
}

func (e *Engine) importDevice(ctx context.Context, tx store.MetadataStore, accountID string, in WireDevice) error {
	if in.ID == "" {
		return fmt.Errorf("incoming device is missing an id")
	}

	key := in.Key
	if key != nil && *key != "" {
		// The key is unique per account; when another row already holds
		// it the incoming key is dropped and the canonicalizer merges
		// the pair on its next run.
		if holder, err := tx.GetDeviceByKey(ctx, accountID, *key); err == nil && holder.ID != in.ID {
			e.warn("device %s imports key %q already held by %s, dropping the key", in.ID, *key, holder.ID)
			key = nil
		}
	}

	now := e.now()
	existing, err := tx.GetDevice(ctx, in.ID)
	if notFound(err) {
		device := &models.Device{
			ID:        in.ID,
			AccountID: accountID,
			Name:      in.Name,
			Class:     in.Class,
			Key:       key,
			LanURL:    in.LanURL,
			Token:     in.Token,
			Created:   timeOr(in.Created, now),
			Updated:   timeOr(in.Updated, now),
		}
		if t, ok := parseWireTime(in.LastSync); ok {
			device.LastSync = t
		}
		if device.Class == "" {
			device.Class = models.DeviceClassUnknown
		}
		return tx.CreateDevice(ctx, device)
	} else if err != nil {
		return err
	}

	existing.Name = in.Name
	existing.Class = in.Class
	if key != nil {
		existing.Key = key
	}
	if in.LanURL != nil {
		existing.LanURL = in.LanURL
	}
	if in.Token != nil {
		existing.Token = in.Token
	}
	existing.Updated = timeOr(in.Updated, now)
	return tx.UpdateDevice(ctx, existing)
}

func (e *Engine) importFolderShell(ctx context.Context, tx store.MetadataStore, accountID string, in WireFolder) error {
	if in.ID == "" {
		return fmt.Errorf("incoming folder is missing an id")
	}

	now := e.now()
	existing, err := tx.GetFolder(ctx, in.ID)
	if notFound(err) {
		folder := &models.Folder{
			ID:        in.ID,
			AccountID: accountID,
			Name:      in.Name,
			SortIndex: in.SortIndex,
			Created:   timeOr(in.Created, now),
			Updated:   timeOr(in.Updated, now),
		}
		return tx.CreateFolder(ctx, folder)
	} else if err != nil {
		return err
	}

	existing.Name = in.Name
	existing.SortIndex = in.SortIndex
	existing.ParentID = nil
	existing.Updated = timeOr(in.Updated, now)
	return tx.UpdateFolder(ctx, existing)
}

func (e *Engine) wireFolderParent(ctx context.Context, tx store.MetadataStore, accountID string, in WireFolder) error {
	if in.ParentID == nil || *in.ParentID == "" || *in.ParentID == in.ID {
		return nil
	}

	parent, err := tx.GetFolder(ctx, *in.ParentID)
	if notFound(err) || (err == nil && parent.AccountID != accountID) {
		return nil
	} else if err != nil {
		return err
	}

	folder, err := tx.GetFolder(ctx, in.ID)
	if err != nil {
		return err
	}
	folder.ParentID = in.ParentID
	return tx.UpdateFolder(ctx, folder)
}

// importTag upserts one tag; a name collision against a different row is
// skipped rather than violating the per-account uniqueness.
func (e *Engine) importTag(ctx context.Context, tx store.MetadataStore, accountID string, in WireTag) (bool, error) {
	if in.ID == "" {
		return false, fmt.Errorf("incoming tag is missing an id")
	}

	if holder, err := tx.GetTagByName(ctx, accountID, in.Name); err == nil && holder.ID != in.ID {
		e.warn("tag %s imports name %q already held by %s, skipping", in.ID, in.Name, holder.ID)
		return false, nil
	}

	now := e.now()
	existing, err := tx.GetTag(ctx, in.ID)
	if notFound(err) {
		tag := &models.Tag{
			ID:        in.ID,
			AccountID: accountID,
			Name:      in.Name,
			Created:   timeOr(in.Created, now),
			Updated:   timeOr(in.Updated, now),
		}
		return true, tx.CreateTag(ctx, tag)
	} else if err != nil {
		return false, err
	}

	existing.Name = in.Name
	existing.Updated = timeOr(in.Updated, now)
	return true, tx.UpdateTag(ctx, existing)
}

// importItem overwrites per field; the tombstone only monotonically
// advances (an incoming deleted sets it, an absent one leaves a local
// tombstone alone).
func (e *Engine) importItem(ctx context.Context, tx store.MetadataStore, accountID string, in WireItem) error {
	if in.ID == "" {
		return fmt.Errorf("incoming item is missing an id")
	}

	now := e.now()
	folderID := e.sanitizeFolderRef(ctx, tx, accountID, in.FolderID)

	existing, err := tx.GetItem(ctx, accountID, in.ID)
	if notFound(err) {
		item := &models.MediaItem{
			ID:          in.ID,
			AccountID:   accountID,
			FolderID:    folderID,
			Title:       in.Title,
			MediaType:   in.MediaType,
			Description: in.Description,
			Created:     timeOr(in.Created, now),
			Updated:     timeOr(in.Updated, now),
		}
		if t, ok := parseWireTime(in.Deleted); ok {
			item.Deleted = &t
		}
		return tx.CreateItem(ctx, item)
	} else if err != nil {
		return err
	}

	existing.FolderID = folderID
	existing.Title = in.Title
	existing.MediaType = in.MediaType
	existing.Description = in.Description
	if t, ok := parseWireTime(in.Deleted); ok {
		existing.Deleted = &t
	}
	existing.Updated = timeOr(in.Updated, now)
	return tx.UpdateItem(ctx, existing)
}

// timeOr parses a wire timestamp, falling back to the given default.
func timeOr(s string, fallback time.Time) time.Time {
	if t, ok := parseWireTime(s); ok {
		return t
	}
	return fallback
}
