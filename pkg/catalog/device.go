package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// RegisterDevice resolves a device description to one canonical device
// row, merging duplicates, inside its own transaction. Re-running with
// the same description is a no-op.
func (e *Engine) RegisterDevice(ctx context.Context, desc DeviceDescription) (*models.Device, error) {
	var device *models.Device
	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		device, err = e.canonicalizeDevice(ctx, tx, accountID, desc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// canonicalizeDevice implements the identity reconciliation:
//
//  1. Without a device key, fall back to a plain upsert by assigned id.
//  2. With a key, a row already carrying that key is canonical.
//  3. Otherwise, for reinstall-prone classes, adopt the single keyless
//     row with the same class and name and stamp the key onto it. Two or
//     more candidates are ambiguous; a fresh row is created instead of
//     guessing which history to attach.
//  4. Merge every remaining duplicate (other keyed rows, leftover keyless
//     same-class/same-name rows, the caller's assigned id): re-point its
//     storage locations at the canonical row, then drop it. A failure on
//     one duplicate is logged and skipped, never fatal.
//  5. Apply the mutable fields, keeping existing values where the
//     description leaves an optional field unset.
func (e *Engine) canonicalizeDevice(ctx context.Context, tx store.MetadataStore, accountID string, desc DeviceDescription) (*models.Device, error) {
	now := e.now()

	if desc.Key == nil || *desc.Key == "" {
		return e.upsertDeviceByID(ctx, tx, accountID, desc, false)
	}
	key := *desc.Key

	canonical, err := tx.GetDeviceByKey(ctx, accountID, key)
	if err != nil && !notFound(err) {
		return nil, fmt.Errorf("failed to look up device by key: %w", err)
	}

	ambiguous := false
	if canonical == nil && models.ClassReinstalls(desc.Class) {
		legacy, err := tx.ListKeylessDevices(ctx, accountID, desc.Class, desc.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up legacy devices: %w", err)
		}
		switch len(legacy) {
		case 0:
		case 1:
			// First writer stamps the key onto the legacy row.
			canonical = &legacy[0]
			canonical.Key = &key
		default:
			// More than one same-name candidate: adopting any of them
			// could misattribute history, so none is touched.
			ambiguous = true
			e.warn("device key %q matches %d keyless %s devices named %q, creating a fresh device",
				key, len(legacy), desc.Class, desc.Name)
		}
	}

	if canonical == nil {
		// The assigned id may still name an existing row; stamping the
		// key onto it beats creating a duplicate. A differing old key is
		// overwritten, since no row holds the incoming key and losing it
		// would leave every later sync on the same lossy path.
		if desc.AssignedID != "" {
			existing, err := tx.GetDevice(ctx, desc.AssignedID)
			if err != nil && !notFound(err) {
				return nil, fmt.Errorf("failed to look up device %s: %w", desc.AssignedID, err)
			}
			if existing != nil && existing.AccountID == accountID {
				canonical = existing
				canonical.Key = &key
			}
		}
	}

	if canonical == nil {
		created, err := e.upsertDeviceByID(ctx, tx, accountID, desc, true)
		if err != nil {
			return nil, err
		}
		canonical = created
	}

	mergeIDs := make(map[string]bool)

	duplicates, err := tx.ListDevicesByKey(ctx, accountID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices by key: %w", err)
	}
	for _, d := range duplicates {
		if d.ID != canonical.ID {
			mergeIDs[d.ID] = true
		}
	}

	if models.ClassReinstalls(desc.Class) && !ambiguous {
		legacy, err := tx.ListKeylessDevices(ctx, accountID, desc.Class, desc.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to list legacy devices: %w", err)
		}
		for _, d := range legacy {
			if d.ID != canonical.ID {
				mergeIDs[d.ID] = true
			}
		}
	}

	if desc.AssignedID != "" && desc.AssignedID != canonical.ID {
		other, err := tx.GetDevice(ctx, desc.AssignedID)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("failed to look up device %s: %w", desc.AssignedID, err)
		}
		if other != nil && other.AccountID == accountID {
			mergeIDs[other.ID] = true
		}
	}

	for id := range mergeIDs {
		if err := tx.ReassignLocations(ctx, id, canonical.ID); err != nil {
			e.warn("failed to re-point locations from device %s to %s: %v", id, canonical.ID, err)
			continue
		}
		if err := tx.DeleteDevice(ctx, id); err != nil {
			e.warn("failed to delete duplicate device %s: %v", id, err)
			continue
		}
		e.info("merged duplicate device %s into %s", id, canonical.ID)
	}

	applyDeviceDescription(canonical, desc)
	canonical.Updated = now
	if err := tx.UpdateDevice(ctx, canonical); err != nil {
		return nil, fmt.Errorf("failed to update canonical device: %w", err)
	}
	return canonical, nil
}

// upsertDeviceByID is the keyless fallback: create the row if absent,
// otherwise update its mutable fields. withKey carries the description's
// key onto a freshly created row.
func (e *Engine) upsertDeviceByID(ctx context.Context, tx store.MetadataStore, accountID string, desc DeviceDescription, withKey bool) (*models.Device, error) {
	now := e.now()

	if desc.AssignedID != "" {
		existing, err := tx.GetDevice(ctx, desc.AssignedID)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("failed to look up device %s: %w", desc.AssignedID, err)
		}
		if existing != nil && existing.AccountID == accountID {
			applyDeviceDescription(existing, desc)
			existing.Updated = now
			if err := tx.UpdateDevice(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update device %s: %w", existing.ID, err)
			}
			return existing, nil
		}
	}

	device := &models.Device{
		ID:        desc.AssignedID,
		AccountID: accountID,
		Name:      desc.Name,
		Class:     desc.Class,
		LanURL:    desc.LanURL,
		Token:     desc.Token,
		Created:   now,
		Updated:   now,
	}
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.Name == "" {
		device.Name = "Unnamed Device"
	}
	if device.Class == "" {
		device.Class = models.DeviceClassUnknown
	}
	if withKey && desc.Key != nil && *desc.Key != "" {
		key := *desc.Key
		device.Key = &key
	}
	if err := tx.CreateDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return device, nil
}

// applyDeviceDescription copies the mutable fields onto the canonical
// row. Optional fields keep their existing value when the description
// leaves them unset.
func applyDeviceDescription(device *models.Device, desc DeviceDescription) {
	if desc.Name != "" {
		device.Name = desc.Name
	}
	if desc.Class != "" {
		device.Class = desc.Class
	}
	if desc.LanURL != nil {
		device.LanURL = desc.LanURL
	}
	if desc.Token != nil {
		device.Token = desc.Token
	}
}

// RemoveDevice deletes a device that nothing references anymore. A device
// still named by storage locations is rejected instead of cascading.
func (e *Engine) RemoveDevice(ctx context.Context, id string) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		count, err := tx.CountLocationsByDevice(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count locations for device %s: %w", id, err)
		}
		if count > 0 {
			return fmt.Errorf("cannot remove device %s (%d locations): %w", id, count, ErrDeviceInUse)
		}
		return tx.DeleteDevice(ctx, id)
	})
}
