package models

import (
	"time"
)

// Tag represents a named label, unique per account.
type Tag struct {
	ID        string `gorm:"primaryKey;type:text"`
	AccountID string `gorm:"type:text;not null;index:idx_tag_account_name,unique"`
	Name      string `gorm:"type:text;not null;index:idx_tag_account_name,unique"`

	Created time.Time `gorm:"column:created;not null"`
	Updated time.Time `gorm:"column:updated;not null"`
}

// MediaTag is the many-to-many join between items and tags.
type MediaTag struct {
	ItemID string `gorm:"column:media_item_id;primaryKey;type:text"`
	TagID  string `gorm:"primaryKey;type:text"`
}

// TableName keeps the join table name aligned with the many2many mapping
// on MediaItem.Tags.
func (MediaTag) TableName() string {
	return "media_tags"
}
