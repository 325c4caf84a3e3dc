package models

import (
	"time"
)

// Account represents the single owning account of the local catalog.
// More than one row may transiently exist after a faulty import; the
// owner resolver picks the canonical one, nothing else trusts a count.
type Account struct {
	ID   string `gorm:"primaryKey;type:text"`
	Name string `gorm:"type:text;not null"`

	Created time.Time `gorm:"column:created;not null"`

	// Relationships
	Devices []Device    `gorm:"foreignKey:AccountID"`
	Folders []Folder    `gorm:"foreignKey:AccountID"`
	Items   []MediaItem `gorm:"foreignKey:AccountID"`
	Tags    []Tag       `gorm:"foreignKey:AccountID"`
}
