package models

import (
	"time"
)

// MediaItem represents one catalog entry. The bytes themselves live on
// devices; the item only carries metadata plus its storage locations.
//
// Updated is monotonically non-decreasing under any merge. Deleted is the
// tombstone: once set it is only ever cleared by an explicit restore, never
// by a sync merge.
type MediaItem struct {
	ID          string  `gorm:"primaryKey;type:text"`
	AccountID   string  `gorm:"type:text;not null;index"`
	FolderID    *string `gorm:"type:text;index"`
	Title       string  `gorm:"type:text;not null"`
	MediaType   string  `gorm:"type:text"`
	Description string  `gorm:"type:text"`

	Created time.Time  `gorm:"column:created;not null"`
	Updated time.Time  `gorm:"column:updated;not null;index"`
	Deleted *time.Time `gorm:"column:deleted;index"`

	// Relationships
	Locations []StorageLocation `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Tags      []Tag             `gorm:"many2many:media_tags;"`
}

// Trashed reports whether the item currently carries a tombstone.
func (m MediaItem) Trashed() bool {
	return m.Deleted != nil
}
