package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
)

// FileChecker is the filesystem collaborator: pure queries, no side
// effects of their own.
type FileChecker interface {
	// Exists reports whether the path currently resolves to a file.
	Exists(path string) bool
	// Stat returns the file's size and modification time when reachable.
	Stat(path string) (size int64, modTime time.Time, ok bool)
}

// OSFileChecker checks against the real filesystem.
type OSFileChecker struct{}

func (OSFileChecker) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileChecker) Stat(path string) (int64, time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, time.Time{}, false
	}
	return info.Size(), info.ModTime().UTC(), true
}

// LocationView decorates a storage location with freshly observed file
// metadata for local-kind locations.
type LocationView struct {
	models.StorageLocation
	Size    int64      `json:"size,omitempty"`
	ModTime *time.Time `json:"mod_time,omitempty"`
}

// ItemView is one catalog entry with its refreshed locations.
type ItemView struct {
	models.MediaItem
	Locations []LocationView `json:"locations"`
}

// ListCatalog returns the active (non-trashed) catalog. As a side effect
// of the read, local-kind locations whose cached availability disagrees
// with a live check are fixed in place, so steady-state reads self-heal
// without a background scanner.
func (e *Engine) ListCatalog(ctx context.Context) ([]ItemView, error) {
	var views []ItemView

	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		items, err := tx.ListItems(ctx, accountID, nil)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}

		for _, item := range items {
			if item.Trashed() {
				continue
			}

			locations, err := tx.ListLocationsByItem(ctx, item.ID)
			if err != nil {
				return fmt.Errorf("failed to list locations for item %s: %w", item.ID, err)
			}

			view := ItemView{MediaItem: item}
			for i := range locations {
				lv, err := e.refreshLocation(ctx, tx, &locations[i])
				if err != nil {
					return err
				}
				view.Locations = append(view.Locations, lv)
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// refreshLocation reconciles one location's availability flag with a live
// filesystem check and attaches observed size and mtime to the view.
func (e *Engine) refreshLocation(ctx context.Context, tx store.MetadataStore, location *models.StorageLocation) (LocationView, error) {
	view := LocationView{StorageLocation: *location}
	if !location.Local() {
		return view, nil
	}

	available := e.fs.Exists(location.Path)
	if available != location.Available {
		location.Available = available
		location.Updated = e.now()
		if err := tx.UpdateLocation(ctx, location); err != nil {
			return view, fmt.Errorf("failed to refresh location %s: %w", location.ID, err)
		}
		view.StorageLocation = *location
	}

	if available {
		if size, modTime, ok := e.fs.Stat(location.Path); ok {
			view.Size = size
			view.ModTime = &modTime
		}
	}
	return view, nil
}

// RefreshAll sweeps every local-kind location once, for batch
// reconciliation after a device was offline. Returns how many
// availability flags changed.
func (e *Engine) RefreshAll(ctx context.Context) (int, error) {
	changed := 0
	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		locations, err := tx.ListLocalLocations(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list local locations: %w", err)
		}

		for i := range locations {
			location := &locations[i]
			available := e.fs.Exists(location.Path)
			if available == location.Available {
				continue
			}
			location.Available = available
			location.Updated = e.now()
			if err := tx.UpdateLocation(ctx, location); err != nil {
				return fmt.Errorf("failed to refresh location %s: %w", location.ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
