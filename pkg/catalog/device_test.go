package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediasync/pkg/db/models"
)

func TestRegisterDeviceByKeyReusesExistingRow(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: "freshly-rolled-id",
		Key:        strptr("desk-key"),
		Name:       "Desk Renamed",
		Class:      models.DeviceClassDesktop,
	})
	require.NoError(t, err)
	require.Equal(t, device.ID, got.ID)
	require.Equal(t, "Desk Renamed", got.Name)

	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestRegisterDeviceWithoutKeyUpsertsByID(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	created, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: "plain-id",
		Name:       "Tablet",
		Class:      models.DeviceClassUnknown,
	})
	require.NoError(t, err)
	require.Equal(t, "plain-id", created.ID)

	updated, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: "plain-id",
		Name:       "Tablet Pro",
	})
	require.NoError(t, err)
	require.Equal(t, "plain-id", updated.ID)
	require.Equal(t, "Tablet Pro", updated.Name)

	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 2)
}

func TestRegisterDeviceAdoptsSingleLegacyRow(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	legacy := &models.Device{
		ID:        "legacy-phone",
		AccountID: accountID,
		Name:      "Phone",
		Class:     models.DeviceClassPhone,
		Created:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Updated:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateDevice(ctx, legacy))

	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: "reinstalled-id",
		Key:        strptr("phone-key"),
		Name:       "Phone",
		Class:      models.DeviceClassPhone,
	})
	require.NoError(t, err)
	require.Equal(t, "legacy-phone", got.ID)
	require.NotNil(t, got.Key)
	require.Equal(t, "phone-key", *got.Key)

	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 2) // bootstrap desktop + adopted phone
}

func TestRegisterDeviceAmbiguousLegacySkipsAdoption(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	for _, id := range []string{"phone-a", "phone-b"} {
		require.NoError(t, s.CreateDevice(ctx, &models.Device{
			ID:        id,
			AccountID: accountID,
			Name:      "Phone",
			Class:     models.DeviceClassPhone,
			Created:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Updated:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		}))
	}

	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		Key:   strptr("phone-key"),
		Name:  "Phone",
		Class: models.DeviceClassPhone,
	})
	require.NoError(t, err)
	require.NotEqual(t, "phone-a", got.ID)
	require.NotEqual(t, "phone-b", got.ID)

	// Both ambiguous candidates survive untouched.
	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 4)
}

func TestRegisterDeviceMergesDuplicatesAndRepointsLocations(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	duplicate := &models.Device{
		ID:        "dup-id",
		AccountID: accountID,
		Name:      "Desk",
		Class:     models.DeviceClassDesktop,
		Created:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Updated:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateDevice(ctx, duplicate))

	seedItem(t, s, accountID, "item-1", "Movie", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "item-1", "loc-1", models.StorageKindLocal, "/media/movie.mkv", strptr("dup-id"))

	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: "dup-id",
		Key:        strptr("desk-key"),
		Name:       "Desk",
		Class:      models.DeviceClassDesktop,
	})
	require.NoError(t, err)
	require.Equal(t, device.ID, got.ID)

	// The duplicate row is gone and its location points at the canonical id.
	_, err = s.GetDevice(ctx, "dup-id")
	require.Error(t, err)

	location, err := s.GetLocation(ctx, "loc-1")
	require.NoError(t, err)
	require.NotNil(t, location.DeviceID)
	require.Equal(t, device.ID, *location.DeviceID)
}

func TestRegisterDeviceStampsChangedKeyOnAssignedRow(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	// The known row re-reports under a replaced key, e.g. after an OS
	// reset rotated the install identifier. The new key must end up
	// persisted or every later sync repeats the same lossy path.
	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		AssignedID: device.ID,
		Key:        strptr("new-key"),
		Name:       "Desk",
		Class:      models.DeviceClassDesktop,
	})
	require.NoError(t, err)
	require.Equal(t, device.ID, got.ID)

	holder, err := s.GetDeviceByKey(ctx, accountID, "new-key")
	require.NoError(t, err)
	require.Equal(t, device.ID, holder.ID)

	// The old key is gone and no duplicate row appeared.
	_, err = s.GetDeviceByKey(ctx, accountID, "desk-key")
	require.Error(t, err)
	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestRegisterDeviceIsIdempotent(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	desc := DeviceDescription{
		AssignedID: "phone-id",
		Key:        strptr("phone-key"),
		Name:       "Phone",
		Class:      models.DeviceClassPhone,
		LanURL:     strptr("http://192.168.1.20:8080"),
	}

	first, err := engine.RegisterDevice(ctx, desc)
	require.NoError(t, err)

	second, err := engine.RegisterDevice(ctx, desc)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	devices, err := s.ListDevices(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, devices, 2)
}

func TestRegisterDeviceKeepsOptionalFields(t *testing.T) {
	engine, _, _, _, _ := bootstrapped(t)
	ctx := context.Background()

	_, err := engine.RegisterDevice(ctx, DeviceDescription{
		Key:    strptr("desk-key"),
		Name:   "Desk",
		LanURL: strptr("http://10.0.0.5:8080"),
		Token:  strptr("secret"),
	})
	require.NoError(t, err)

	// A later description without the optional fields keeps them.
	got, err := engine.RegisterDevice(ctx, DeviceDescription{
		Key:  strptr("desk-key"),
		Name: "Desk",
	})
	require.NoError(t, err)
	require.NotNil(t, got.LanURL)
	require.Equal(t, "http://10.0.0.5:8080", *got.LanURL)
	require.NotNil(t, got.Token)
	require.Equal(t, "secret", *got.Token)
}

func TestRemoveDeviceInUse(t *testing.T) {
	engine, s, _, accountID, device := bootstrapped(t)
	ctx := context.Background()

	seedItem(t, s, accountID, "item-1", "Movie", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedLocation(t, s, "item-1", "loc-1", models.StorageKindLocal, "/media/movie.mkv", &device.ID)

	err := engine.RemoveDevice(ctx, device.ID)
	require.ErrorIs(t, err, ErrDeviceInUse)

	require.NoError(t, s.DeleteLocation(ctx, "loc-1"))
	require.NoError(t, engine.RemoveDevice(ctx, device.ID))
}
