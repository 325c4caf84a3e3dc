package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mediasync/pkg/db/models"
)

// SQLiteStore implements MetadataStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed metadata store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Account{},
		&models.Device{},
		&models.Folder{},
		&models.MediaItem{},
		&models.StorageLocation{},
		&models.Tag{},
		&models.MediaTag{},
	)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn atomically; the store handed to fn shares the
// transaction, so every merge routine sees all-or-nothing semantics.
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx MetadataStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteStore{db: tx, path: s.path})
	})
}

// Account operations

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	return s.db.WithContext(ctx).Create(account).Error
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Order("created ASC").Find(&accounts).Error
	return accounts, err
}

func (s *SQLiteStore) CountActiveItems(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MediaItem{}).
		Where("account_id = ? AND deleted IS NULL", accountID).
		Count(&count).Error
	return count, err
}

func (s *SQLiteStore) CountDevices(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// Device operations

func (s *SQLiteStore) CreateDevice(ctx context.Context, device *models.Device) error {
	return s.db.WithContext(ctx).Create(device).Error
}

func (s *SQLiteStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *SQLiteStore) GetDeviceByKey(ctx context.Context, accountID, key string) (*models.Device, error) {
	var device models.Device
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND key = ?", accountID, key).
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *SQLiteStore) ListDevices(ctx context.Context, accountID string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&devices).Error
	return devices, err
}

func (s *SQLiteStore) ListDevicesByKey(ctx context.Context, accountID, key string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND key = ?", accountID, key).
		Find(&devices).Error
	return devices, err
}

func (s *SQLiteStore) ListKeylessDevices(ctx context.Context, accountID, class, name string) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND class = ? AND name = ? AND key IS NULL", accountID, class, name).
		Find(&devices).Error
	return devices, err
}

func (s *SQLiteStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	return s.db.WithContext(ctx).Save(device).Error
}

func (s *SQLiteStore) DeleteDevice(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Device{}, "id = ?", id).Error
}

func (s *SQLiteStore) ReassignLocations(ctx context.Context, fromDeviceID, toDeviceID string) error {
	return s.db.WithContext(ctx).Model(&models.StorageLocation{}).
		Where("device_id = ?", fromDeviceID).
		Update("device_id", toDeviceID).Error
}

func (s *SQLiteStore) CountLocationsByDevice(ctx context.Context, deviceID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.StorageLocation{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count, err
}

// Folder operations

func (s *SQLiteStore) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Create(folder).Error
}

func (s *SQLiteStore) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&folder).Error
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *SQLiteStore) ListFolders(ctx context.Context, accountID string) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sort_index ASC, name ASC").
		Find(&folders).Error
	return folders, err
}

func (s *SQLiteStore) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Save(folder).Error
}

func (s *SQLiteStore) DeleteFolder(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error
}

func (s *SQLiteStore) CountChildFolders(ctx context.Context, folderID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("parent_id = ?", folderID).
		Count(&count).Error
	return count, err
}

func (s *SQLiteStore) CountFolderItems(ctx context.Context, folderID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MediaItem{}).
		Where("folder_id = ?", folderID).
		Count(&count).Error
	return count, err
}

// Item operations

func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.MediaItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *SQLiteStore) GetItem(ctx context.Context, accountID, id string) (*models.MediaItem, error) {
	var item models.MediaItem
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, accountID string, updatedSince *time.Time) ([]models.MediaItem, error) {
	var items []models.MediaItem
	query := s.db.WithContext(ctx).Where("account_id = ?", accountID)

	if updatedSince != nil {
		query = query.Where("updated > ?", *updatedSince)
	}

	err := query.Order("updated ASC").Find(&items).Error
	return items, err
}

func (s *SQLiteStore) ListTrashedItems(ctx context.Context, accountID string) ([]models.MediaItem, error) {
	var items []models.MediaItem
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND deleted IS NOT NULL", accountID).
		Order("deleted DESC").
		Find(&items).Error
	return items, err
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, item *models.MediaItem) error {
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.MediaItem{}, "id = ?", id).Error
}

// Location operations

func (s *SQLiteStore) CreateLocation(ctx context.Context, location *models.StorageLocation) error {
	return s.db.WithContext(ctx).Create(location).Error
}

func (s *SQLiteStore) GetLocation(ctx context.Context, id string) (*models.StorageLocation, error) {
	var location models.StorageLocation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (s *SQLiteStore) ListLocationsByItem(ctx context.Context, itemID string) ([]models.StorageLocation, error) {
	var locations []models.StorageLocation
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&locations).Error
	return locations, err
}

func (s *SQLiteStore) ListLocalLocations(ctx context.Context, accountID string) ([]models.StorageLocation, error) {
	var locations []models.StorageLocation
	err := s.db.WithContext(ctx).
		Joins("JOIN media_items ON media_items.id = storage_locations.item_id").
		Where("media_items.account_id = ? AND storage_locations.storage_kind = ?", accountID, models.StorageKindLocal).
		Find(&locations).Error
	return locations, err
}

func (s *SQLiteStore) UpdateLocation(ctx context.Context, location *models.StorageLocation) error {
	return s.db.WithContext(ctx).Save(location).Error
}

func (s *SQLiteStore) DeleteLocation(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.StorageLocation{}, "id = ?", id).Error
}

// Tag operations

func (s *SQLiteStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	return s.db.WithContext(ctx).Create(tag).Error
}

func (s *SQLiteStore) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *SQLiteStore) GetTagByName(ctx context.Context, accountID, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND name = ?", accountID, name).
		First(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context, accountID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (s *SQLiteStore) UpdateTag(ctx context.Context, tag *models.Tag) error {
	return s.db.WithContext(ctx).Save(tag).Error
}

func (s *SQLiteStore) DeleteTag(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Tag{}, "id = ?", id).Error
}

func (s *SQLiteStore) CountLinksByTag(ctx context.Context, tagID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MediaTag{}).
		Where("tag_id = ?", tagID).
		Count(&count).Error
	return count, err
}

// Tag link operations

func (s *SQLiteStore) CreateTagLink(ctx context.Context, link *models.MediaTag) error {
	// Duplicate pairs are a no-op
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error
}

func (s *SQLiteStore) ListTagLinks(ctx context.Context, accountID string) ([]models.MediaTag, error) {
	var links []models.MediaTag
	err := s.db.WithContext(ctx).
		Joins("JOIN media_items ON media_items.id = media_tags.media_item_id").
		Where("media_items.account_id = ?", accountID).
		Find(&links).Error
	return links, err
}

func (s *SQLiteStore) DeleteTagLinksByItem(ctx context.Context, itemID string) error {
	return s.db.WithContext(ctx).Where("media_item_id = ?", itemID).Delete(&models.MediaTag{}).Error
}

var _ MetadataStore = (*SQLiteStore)(nil)
