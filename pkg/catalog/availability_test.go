package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediasync/pkg/db/models"
)

func TestListCatalogSelfHealsAvailability(t *testing.T) {
	engine, s, fs, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "item-1", "loc-1", models.StorageKindLocal, "/media/clip.mp4", &device.ID)

	mod := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	fs.files["/media/clip.mp4"] = fakeFile{size: 2048, mod: mod}

	views, err := engine.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Locations, 1)

	lv := views[0].Locations[0]
	require.True(t, lv.Available)
	require.Equal(t, int64(2048), lv.Size)
	require.NotNil(t, lv.ModTime)
	require.Equal(t, mod, *lv.ModTime)

	// The fix is persisted, not just reported.
	stored, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.True(t, stored.Available)

	// The file disappears; the next read flips the flag back.
	delete(fs.files, "/media/clip.mp4")
	views, err = engine.ListCatalog(ctx)
	require.NoError(t, err)
	require.False(t, views[0].Locations[0].Available)
	stored, err = s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.False(t, stored.Available)
}

func TestListCatalogLeavesRemoteLocationsAlone(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	loc := seedLocation(t, s, "item-1", "loc-1", models.StorageKindRemote, "sftp://nas/clip.mp4", &device.ID)
	loc.Available = true
	require.NoError(t, s.UpdateLocation(ctx, loc))

	views, err := engine.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)

	// No fake file exists, but remote availability is not ours to judge.
	require.True(t, views[0].Locations[0].Available)
}

func TestListCatalogSkipsTrashedItems(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "active", "Active", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedItem(t, s, accountID, "binned", "Binned", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, engine.TrashItem(ctx, "binned"))

	views, err := engine.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "active", views[0].ID)
}

func TestRefreshAllCountsChanges(t *testing.T) {
	engine, s, fs, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip A", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedItem(t, s, accountID, "item-2", "Clip B", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "item-1", "loc-1", models.StorageKindLocal, "/media/a.mp4", &device.ID)
	seedLocation(t, s, "item-2", "loc-2", models.StorageKindLocal, "/media/b.mp4", &device.ID)
	seedLocation(t, s, "item-2", "loc-3", models.StorageKindRemote, "sftp://nas/b.mp4", &device.ID)

	fs.files["/media/a.mp4"] = fakeFile{size: 1}

	changed, err := engine.RefreshAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	loc, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.True(t, loc.Available)
	loc, err = s.GetLocation(ctx, "loc-2")
	require.NoError(t, err)
	require.False(t, loc.Available)

	// Steady state: nothing changes on the second sweep.
	changed, err = engine.RefreshAll(ctx)
	require.NoError(t, err)
	require.Zero(t, changed)
}
