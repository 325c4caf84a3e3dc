package models

import (
	"time"
)

// Storage kinds for a StorageLocation.
const (
	StorageKindLocal  = "local"
	StorageKindRemote = "remote"
	StorageKindWeb    = "web"
)

// StorageLocation represents one place a media item's bytes can be found.
// DeviceID, when set, must reference an existing device of the same
// account; merge paths sanitize rather than ever letting it dangle.
type StorageLocation struct {
	ID         string  `gorm:"primaryKey;type:text"`
	ItemID     string  `gorm:"type:text;not null;index"`
	DeviceID   *string `gorm:"type:text;index"`
	Kind       string  `gorm:"column:storage_kind;type:text;not null"`
	Path       string  `gorm:"type:text;not null"`
	AccessHint *string `gorm:"type:text"`
	Available  bool    `gorm:"default:false"`

	Created time.Time `gorm:"column:created;not null"`
	Updated time.Time `gorm:"column:updated;not null"`
}

// Local reports whether this location points at a device filesystem path.
func (l StorageLocation) Local() bool {
	return l.Kind == StorageKindLocal
}
