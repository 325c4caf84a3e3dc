package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediasync/pkg/db/models"
)

func TestTrashItemIsIdempotent(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, engine.TrashItem(ctx, "item-1"))
	item, err := s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.NotNil(t, item.Deleted)
	first := *item.Deleted

	require.NoError(t, engine.TrashItem(ctx, "item-1"))
	item, err = s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.NotNil(t, item.Deleted)
	require.Equal(t, first, *item.Deleted)
}

func TestTrashRestoreTrashCycle(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, engine.TrashItem(ctx, "item-1"))
	item, err := s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	first := *item.Deleted

	require.NoError(t, engine.RestoreItem(ctx, "item-1"))
	item, err = s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.Nil(t, item.Deleted)

	require.NoError(t, engine.TrashItem(ctx, "item-1"))
	item, err = s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.NotNil(t, item.Deleted)
	require.True(t, item.Deleted.After(first))
}

func TestRestoreActiveItemIsNoOp(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seedItem(t, s, accountID, "item-1", "Clip", t0)

	require.NoError(t, engine.RestoreItem(ctx, "item-1"))
	item, err := s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.Nil(t, item.Deleted)
	require.Equal(t, t0, item.Updated.UTC())
}

func TestPurgeRequiresTrashUnlessForced(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "item-1", "loc-1", models.StorageKindLocal, "/media/clip.mp4", &device.ID)

	err := engine.PurgeItem(ctx, "item-1", false)
	require.ErrorIs(t, err, ErrNotTrashed)

	require.NoError(t, engine.PurgeItem(ctx, "item-1", true))

	_, err = s.GetItem(ctx, accountID, "item-1")
	require.Error(t, err)
	_, err = s.GetLocation(ctx, "loc-1")
	require.Error(t, err)
}

func TestEmptyTrashPurgesOnlyTrashed(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "keep", "Keeper", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedItem(t, s, accountID, "gone-1", "Doomed A", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	seedItem(t, s, accountID, "gone-2", "Doomed B", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "gone-1", "loc-1", models.StorageKindLocal, "/media/a.mp4", &device.ID)

	tag, err := engine.EnsureTag(ctx, "vacation")
	require.NoError(t, err)
	require.NoError(t, engine.TagItem(ctx, "gone-1", tag.ID))

	require.NoError(t, engine.TrashItem(ctx, "gone-1"))
	require.NoError(t, engine.TrashItem(ctx, "gone-2"))

	purged, err := engine.EmptyTrash(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, purged)

	_, err = s.GetItem(ctx, accountID, "keep")
	require.NoError(t, err)
	_, err = s.GetItem(ctx, accountID, "gone-1")
	require.Error(t, err)
	_, err = s.GetLocation(ctx, "loc-1")
	require.Error(t, err)

	// The tag itself survives, only the link goes.
	links, err := s.CountLinksByTag(ctx, tag.ID)
	require.NoError(t, err)
	require.Zero(t, links)

	purged, err = engine.EmptyTrash(ctx)
	require.NoError(t, err)
	require.Zero(t, purged)
}

func TestPushTombstonesListedItems(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Clip", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	result, err := engine.Push(ctx, PushRequest{
		Device:         DeviceDescription{Key: strptr("desk-key")},
		DeletedItemIDs: []string{"item-1", "never-seen"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Tombstoned)

	item, err := s.GetItem(ctx, accountID, "item-1")
	require.NoError(t, err)
	require.NotNil(t, item.Deleted)

	// Replaying the same tombstone list marks nothing new.
	result, err = engine.Push(ctx, PushRequest{
		Device:         DeviceDescription{Key: strptr("desk-key")},
		DeletedItemIDs: []string{"item-1"},
	})
	require.NoError(t, err)
	require.Zero(t, result.Tombstoned)
}

func TestListTrashOrdersNewestFirst(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "First Out", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedItem(t, s, accountID, "item-2", "Second Out", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, engine.TrashItem(ctx, "item-1"))
	require.NoError(t, engine.TrashItem(ctx, "item-2"))

	trashed, err := engine.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 2)
	require.Equal(t, "item-2", trashed[0].ID)
	require.Equal(t, "item-1", trashed[1].ID)
}
