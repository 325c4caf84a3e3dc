package models

import (
	"time"
)

// Folder represents a node in the self-referential folder tree.
// ParentID is nil for root folders. Cycle safety is enforced at the entry
// points (tree is built top-down, imports wire parents in a second phase).
type Folder struct {
	ID        string  `gorm:"primaryKey;type:text"`
	AccountID string  `gorm:"type:text;not null;index"`
	ParentID  *string `gorm:"type:text;index"`
	Name      string  `gorm:"type:text;not null"`
	SortIndex int     `gorm:"default:0"`

	Created time.Time `gorm:"column:created;not null"`
	Updated time.Time `gorm:"column:updated;not null"`

	// Relationships
	Items []MediaItem `gorm:"foreignKey:FolderID"`
}
