package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediasync/pkg/db/models"
)

func TestRankOwner(t *testing.T) {
	cases := []struct {
		name       string
		candidates []ownerCandidate
		want       string
		ok         bool
	}{
		{
			name: "empty",
			ok:   false,
		},
		{
			name: "single",
			candidates: []ownerCandidate{
				{AccountID: "a"},
			},
			want: "a", ok: true,
		},
		{
			name: "most items wins",
			candidates: []ownerCandidate{
				{AccountID: "a", Items: 1, Devices: 9},
				{AccountID: "b", Items: 5, Devices: 0},
			},
			want: "b", ok: true,
		},
		{
			name: "device count breaks item tie",
			candidates: []ownerCandidate{
				{AccountID: "a", Items: 3, Devices: 1},
				{AccountID: "b", Items: 3, Devices: 2},
			},
			want: "b", ok: true,
		},
		{
			name: "earliest creation breaks full tie",
			candidates: []ownerCandidate{
				{AccountID: "a", Items: 3, Devices: 2, CreatedMs: 2000},
				{AccountID: "b", Items: 3, Devices: 2, CreatedMs: 1000},
			},
			want: "b", ok: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rankOwner(tc.candidates)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestResolveOwnerPicksAccountWithItems(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	// A stray account left behind by a faulty import, created earlier
	// than the real one but owning nothing.
	stray := &models.Account{
		ID:      "stray",
		Name:    "Stray",
		Created: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateAccount(ctx, stray))

	seedItem(t, s, accountID, "item-1", "Movie", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	got, err := engine.ResolveOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, accountID, got)
}

func TestResolveOwnerIgnoresTombstonedItems(t *testing.T) {
	engine, s, _, accountID, _ := bootstrapped(t)
	ctx := context.Background()

	// The stray account holds one active item, the real account only a
	// tombstoned one plus its bootstrap device; the stray should win on
	// the item count despite being younger.
	stray := &models.Account{
		ID:      "stray",
		Name:    "Stray",
		Created: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateAccount(ctx, stray))
	seedItem(t, s, stray.ID, "stray-item", "Active", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	trashed := seedItem(t, s, accountID, "item-1", "Gone", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	deleted := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	trashed.Deleted = &deleted
	require.NoError(t, s.UpdateItem(ctx, trashed))

	got, err := engine.ResolveOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, stray.ID, got)
}
