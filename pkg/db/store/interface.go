package store

import (
	"context"
	"time"

	"mediasync/pkg/db/models"
)

// MetadataStore defines the interface for database operations.
// Merge routines that must be atomic run inside Transaction; the store
// passed to the callback shares the transaction.
type MetadataStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Transactions
	Transaction(ctx context.Context, fn func(tx MetadataStore) error) error

	// Account operations
	CreateAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CountActiveItems(ctx context.Context, accountID string) (int64, error)
	CountDevices(ctx context.Context, accountID string) (int64, error)

	// Device operations
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	GetDeviceByKey(ctx context.Context, accountID, key string) (*models.Device, error)
	ListDevices(ctx context.Context, accountID string) ([]models.Device, error)
	ListDevicesByKey(ctx context.Context, accountID, key string) ([]models.Device, error)
	ListKeylessDevices(ctx context.Context, accountID, class, name string) ([]models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, id string) error
	ReassignLocations(ctx context.Context, fromDeviceID, toDeviceID string) error
	CountLocationsByDevice(ctx context.Context, deviceID string) (int64, error)

	// Folder operations
	CreateFolder(ctx context.Context, folder *models.Folder) error
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	ListFolders(ctx context.Context, accountID string) ([]models.Folder, error)
	UpdateFolder(ctx context.Context, folder *models.Folder) error
	DeleteFolder(ctx context.Context, id string) error
	CountChildFolders(ctx context.Context, folderID string) (int64, error)
	CountFolderItems(ctx context.Context, folderID string) (int64, error)

	// Item operations
	CreateItem(ctx context.Context, item *models.MediaItem) error
	GetItem(ctx context.Context, accountID, id string) (*models.MediaItem, error)
	ListItems(ctx context.Context, accountID string, updatedSince *time.Time) ([]models.MediaItem, error)
	ListTrashedItems(ctx context.Context, accountID string) ([]models.MediaItem, error)
	UpdateItem(ctx context.Context, item *models.MediaItem) error
	DeleteItem(ctx context.Context, id string) error

	// Location operations
	CreateLocation(ctx context.Context, location *models.StorageLocation) error
	GetLocation(ctx context.Context, id string) (*models.StorageLocation, error)
	ListLocationsByItem(ctx context.Context, itemID string) ([]models.StorageLocation, error)
	ListLocalLocations(ctx context.Context, accountID string) ([]models.StorageLocation, error)
	UpdateLocation(ctx context.Context, location *models.StorageLocation) error
	DeleteLocation(ctx context.Context, id string) error

	// Tag operations
	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	GetTagByName(ctx context.Context, accountID, name string) (*models.Tag, error)
	ListTags(ctx context.Context, accountID string) ([]models.Tag, error)
	UpdateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, id string) error
	CountLinksByTag(ctx context.Context, tagID string) (int64, error)

	// Tag link operations
	CreateTagLink(ctx context.Context, link *models.MediaTag) error
	ListTagLinks(ctx context.Context, accountID string) ([]models.MediaTag, error)
	DeleteTagLinksByItem(ctx context.Context, itemID string) error
}
