// Package catalog implements the device-identity reconciliation and
// conflict-resolving synchronization core of the media catalog: owner
// resolution, device canonicalization, last-writer-wins item merging,
// tombstone management, snapshot import/export and availability refresh.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mediasync/pkg/db/models"
	"mediasync/pkg/db/store"
	"mediasync/pkg/log"
)

var (
	// ErrNoAccount is returned when the store holds no account at all.
	ErrNoAccount = errors.New("no account exists")
	// ErrDeviceInUse rejects deleting a device still referenced by locations.
	ErrDeviceInUse = errors.New("device is still referenced by storage locations")
	// ErrTagInUse rejects deleting a tag still linked to items.
	ErrTagInUse = errors.New("tag is still linked to media items")
	// ErrFolderNotEmpty rejects deleting a folder with children or items.
	ErrFolderNotEmpty = errors.New("folder still contains folders or items")
	// ErrNotTrashed rejects a non-forced purge of an item that is not trashed.
	ErrNotTrashed = errors.New("item is not in the trash")
)

// Engine is the synchronization core. All multi-row merges run as one
// store transaction; interleaved callers only ever observe fully merged
// state.
type Engine struct {
	store store.MetadataStore
	fs    FileChecker
	log   log.LoggerService
	now   func() time.Time
}

// NewEngine creates an engine on top of the given metadata store. The
// file checker may be nil when availability refresh is not needed.
func NewEngine(s store.MetadataStore, fs FileChecker, logger log.LoggerService) *Engine {
	if fs == nil {
		fs = OSFileChecker{}
	}
	return &Engine{
		store: s,
		fs:    fs,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BootstrapConfig seeds the very first run.
type BootstrapConfig struct {
	AccountName string
	DeviceName  string
	DeviceClass string
	DeviceKey   string
	RootFolder  string
}

// Bootstrap creates the account, the local device and the root folder on
// first run. It is a no-op when an account already exists.
func (e *Engine) Bootstrap(ctx context.Context, cfg BootstrapConfig) error {
	return e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		if len(accounts) > 0 {
			return nil
		}

		now := e.now()
		account := &models.Account{
			ID:      uuid.NewString(),
			Name:    cfg.AccountName,
			Created: now,
		}
		if account.Name == "" {
			account.Name = "Personal Catalog"
		}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		device := &models.Device{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Name:      cfg.DeviceName,
			Class:     cfg.DeviceClass,
			Created:   now,
			Updated:   now,
		}
		if device.Name == "" {
			device.Name = "This Device"
		}
		if device.Class == "" {
			device.Class = models.DeviceClassDesktop
		}
		if cfg.DeviceKey != "" {
			key := cfg.DeviceKey
			device.Key = &key
		}
		if err := tx.CreateDevice(ctx, device); err != nil {
			return fmt.Errorf("failed to create device: %w", err)
		}

		folder := &models.Folder{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Name:      cfg.RootFolder,
			Created:   now,
			Updated:   now,
		}
		if folder.Name == "" {
			folder.Name = "Library"
		}
		if err := tx.CreateFolder(ctx, folder); err != nil {
			return fmt.Errorf("failed to create root folder: %w", err)
		}

		e.info("bootstrapped account %s with device %s", account.ID, device.ID)
		return nil
	})
}

// Push applies an incremental upload from one device: canonicalize the
// sender, merge its items and locations, apply its tombstones and touch
// its last-sync timestamp. The whole exchange is one atomic unit.
func (e *Engine) Push(ctx context.Context, req PushRequest) (PushResult, error) {
	var result PushResult

	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}

		device, err := e.canonicalizeDevice(ctx, tx, accountID, req.Device)
		if err != nil {
			return fmt.Errorf("failed to canonicalize device: %w", err)
		}
		result.DeviceID = device.ID

		for _, in := range req.Items {
			applied, err := e.mergeItem(ctx, tx, accountID, device.ID, in)
			if err != nil {
				return fmt.Errorf("failed to merge item %s: %w", in.ID, err)
			}
			if applied {
				result.Applied++
			} else {
				result.Stale++
			}
		}

		tombstoned, err := e.applyTombstones(ctx, tx, accountID, req.DeletedItemIDs)
		if err != nil {
			return err
		}
		result.Tombstoned = tombstoned

		device.LastSync = e.now()
		if err := tx.UpdateDevice(ctx, device); err != nil {
			return fmt.Errorf("failed to touch device last sync: %w", err)
		}
		return nil
	})
	if err != nil {
		return PushResult{}, err
	}

	e.info("push from device %s: %d applied, %d stale, %d tombstoned",
		result.DeviceID, result.Applied, result.Stale, result.Tombstoned)
	return result, nil
}

// Pull returns every item (with locations) updated since the given
// cursor, plus the current device list and the server time to use as the
// next cursor. The requesting device is canonicalized as a side effect so
// that a pull-only client still gets deduplicated.
func (e *Engine) Pull(ctx context.Context, req PullRequest) (PullResponse, error) {
	var resp PullResponse

	err := e.store.Transaction(ctx, func(tx store.MetadataStore) error {
		accountID, err := resolveOwner(ctx, tx)
		if err != nil {
			return err
		}
		resp.AccountID = accountID

		device, err := e.canonicalizeDevice(ctx, tx, accountID, req.Device)
		if err != nil {
			return fmt.Errorf("failed to canonicalize device: %w", err)
		}

		var since *time.Time
		if t, ok := parseWireTime(req.UpdatedSince); ok {
			since = &t
		}

		items, err := tx.ListItems(ctx, accountID, since)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		for _, item := range items {
			locations, err := tx.ListLocationsByItem(ctx, item.ID)
			if err != nil {
				return fmt.Errorf("failed to list locations for item %s: %w", item.ID, err)
			}
			resp.Items = append(resp.Items, itemToWire(item, locations))
		}

		devices, err := tx.ListDevices(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		for _, d := range devices {
			resp.Devices = append(resp.Devices, deviceToWire(d))
		}

		device.LastSync = e.now()
		if err := tx.UpdateDevice(ctx, device); err != nil {
			return fmt.Errorf("failed to touch device last sync: %w", err)
		}

		resp.ServerTime = formatWireTime(e.now())
		return nil
	})
	if err != nil {
		return PullResponse{}, err
	}
	return resp, nil
}

// notFound reports whether err is the store's record-not-found.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (e *Engine) info(msg string, args ...any) {
	if e.log != nil {
		e.log.Info(msg, args...)
	}
}

func (e *Engine) warn(msg string, args ...any) {
	if e.log != nil {
		e.log.Warn(msg, args...)
	}
}
