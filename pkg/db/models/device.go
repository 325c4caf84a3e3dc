package models

import (
	"time"
)

// Device classes. Phone-class devices are known to reinstall with fresh
// random ids, which is what the key-based canonicalization compensates for.
const (
	DeviceClassDesktop = "desktop"
	DeviceClassPhone   = "phone"
	DeviceClassUnknown = "unknown"
)

// Device represents one physical device participating in sync.
// Key is a stable hardware/install identifier independent of the assigned
// id; within an account it is unique where set and is the basis for
// deduplicating reinstalls.
type Device struct {
	ID        string  `gorm:"primaryKey;type:text"`
	AccountID string  `gorm:"type:text;not null;index:idx_device_account_key,unique"`
	Name      string  `gorm:"type:text;not null"`
	Class     string  `gorm:"type:text;not null;default:unknown"`
	Key       *string `gorm:"type:text;index:idx_device_account_key,unique"`

	// Optional transport hints for the excluded transfer collaborators
	LanURL *string `gorm:"type:text"`
	Token  *string `gorm:"type:text"`

	LastSync time.Time `gorm:"column:last_sync"`
	Created  time.Time `gorm:"column:created;not null"`
	Updated  time.Time `gorm:"column:updated;not null"`

	// Relationships
	Locations []StorageLocation `gorm:"foreignKey:DeviceID"`
}

// ClassReinstalls reports whether the given device class loses its assigned
// id across reinstalls. Only phones are known to do this.
func ClassReinstalls(class string) bool {
	return class == DeviceClassPhone
}
