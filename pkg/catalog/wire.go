package catalog

import (
	"time"

	"mediasync/pkg/db/models"
)

// Wire format for sync exchanges. All timestamps travel as RFC 3339
// strings; nullable columns become pointer fields so that absent and
// empty stay distinguishable across JSON.

// DeviceDescription is what a syncing client says about itself.
type DeviceDescription struct {
	AssignedID string  `json:"assigned_id,omitempty"`
	Key        *string `json:"key,omitempty"`
	Name       string  `json:"name,omitempty"`
	Class      string  `json:"class,omitempty"`
	LanURL     *string `json:"lan_url,omitempty"`
	Token      *string `json:"transfer_token,omitempty"`
}

// WireDevice is the device row as it appears in pull responses and exports.
type WireDevice struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Class    string  `json:"class,omitempty"`
	Key      *string `json:"key,omitempty"`
	LanURL   *string `json:"lan_url,omitempty"`
	Token    *string `json:"transfer_token,omitempty"`
	LastSync string  `json:"last_sync,omitempty"`
	Created  string  `json:"created,omitempty"`
	Updated  string  `json:"updated,omitempty"`
}

// WireFolder is the folder row in an export payload.
type WireFolder struct {
	ID        string  `json:"id"`
	ParentID  *string `json:"parent_id,omitempty"`
	Name      string  `json:"name"`
	SortIndex int     `json:"sort_index,omitempty"`
	Created   string  `json:"created,omitempty"`
	Updated   string  `json:"updated,omitempty"`
}

// WireTag is the tag row in an export payload.
type WireTag struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// WireTagLink is one item/tag pair in an export payload.
type WireTagLink struct {
	ItemID string `json:"item_id"`
	TagID  string `json:"tag_id"`
}

// WireLocation is one storage location. ItemID is only populated in the
// flat storage_locations list of an export; nested under an item it is
// implied by the parent.
type WireLocation struct {
	ID         string  `json:"id"`
	ItemID     string  `json:"item_id,omitempty"`
	DeviceID   *string `json:"device_id,omitempty"`
	Kind       string  `json:"storage_kind"`
	Path       string  `json:"path"`
	AccessHint *string `json:"access_hint,omitempty"`
	Available  *bool   `json:"available,omitempty"`
	Created    string  `json:"created,omitempty"`
	Updated    string  `json:"updated,omitempty"`
}

// WireItem is one media item plus its locations.
type WireItem struct {
	ID          string         `json:"id"`
	FolderID    *string        `json:"folder_id,omitempty"`
	Title       string         `json:"title"`
	MediaType   string         `json:"media_type,omitempty"`
	Description string         `json:"description,omitempty"`
	Created     string         `json:"created,omitempty"`
	Updated     string         `json:"updated,omitempty"`
	Deleted     string         `json:"deleted,omitempty"`
	Locations   []WireLocation `json:"locations,omitempty"`
}

// PushRequest is an incremental device-to-hub upload. Deletions are
// signaled only through DeletedItemIDs; an item missing from Items is
// never treated as deleted.
type PushRequest struct {
	Device         DeviceDescription `json:"device"`
	Items          []WireItem        `json:"items"`
	DeletedItemIDs []string          `json:"deleted_item_ids,omitempty"`
}

// PushResult reports what a push changed.
type PushResult struct {
	DeviceID   string `json:"device_id"`
	Applied    int    `json:"applied"`
	Stale      int    `json:"stale"`
	Tombstoned int    `json:"tombstoned"`
}

// PullRequest asks for everything updated since a cursor.
type PullRequest struct {
	Device       DeviceDescription `json:"device"`
	UpdatedSince string            `json:"updated_since,omitempty"`
}

// PullResponse carries the incremental state for a peer.
type PullResponse struct {
	ServerTime string       `json:"server_time"`
	AccountID  string       `json:"account_id"`
	Devices    []WireDevice `json:"devices"`
	Items      []WireItem   `json:"items"`
}

// Snapshot is a whole-catalog export payload, keyed by entity name.
type Snapshot struct {
	Devices          []WireDevice   `json:"devices"`
	Folders          []WireFolder   `json:"folders"`
	Tags             []WireTag      `json:"tags"`
	MediaItems       []WireItem     `json:"media_items"`
	StorageLocations []WireLocation `json:"storage_locations"`
	MediaTags        []WireTagLink  `json:"media_tags"`
}

// ImportResult reports per-entity counts of an applied snapshot.
type ImportResult struct {
	Devices          int `json:"devices"`
	Folders          int `json:"folders"`
	Tags             int `json:"tags"`
	Items            int `json:"items"`
	Locations        int `json:"locations"`
	SkippedLocations int `json:"skipped_locations"`
	Links            int `json:"links"`
	SkippedLinks     int `json:"skipped_links"`
}

// parseWireTime parses an RFC 3339 timestamp off the wire.
func parseWireTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// wireMillis coerces a wire timestamp to milliseconds since epoch for
// last-writer-wins comparison. Missing or unparseable values become zero,
// so they lose against any real timestamp.
func wireMillis(s string) int64 {
	t, ok := parseWireTime(s)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func formatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// deviceToWire converts a device row for pulls and exports.
func deviceToWire(d models.Device) WireDevice {
	return WireDevice{
		ID:       d.ID,
		Name:     d.Name,
		Class:    d.Class,
		Key:      d.Key,
		LanURL:   d.LanURL,
		Token:    d.Token,
		LastSync: formatWireTime(d.LastSync),
		Created:  formatWireTime(d.Created),
		Updated:  formatWireTime(d.Updated),
	}
}

func folderToWire(f models.Folder) WireFolder {
	return WireFolder{
		ID:        f.ID,
		ParentID:  f.ParentID,
		Name:      f.Name,
		SortIndex: f.SortIndex,
		Created:   formatWireTime(f.Created),
		Updated:   formatWireTime(f.Updated),
	}
}

func tagToWire(t models.Tag) WireTag {
	return WireTag{
		ID:      t.ID,
		Name:    t.Name,
		Created: formatWireTime(t.Created),
		Updated: formatWireTime(t.Updated),
	}
}

func locationToWire(l models.StorageLocation, withItem bool) WireLocation {
	w := WireLocation{
		ID:         l.ID,
		DeviceID:   l.DeviceID,
		Kind:       l.Kind,
		Path:       l.Path,
		AccessHint: l.AccessHint,
		Available:  &l.Available,
		Created:    formatWireTime(l.Created),
		Updated:    formatWireTime(l.Updated),
	}
	if withItem {
		w.ItemID = l.ItemID
	}
	return w
}

func itemToWire(item models.MediaItem, locations []models.StorageLocation) WireItem {
	w := WireItem{
		ID:          item.ID,
		FolderID:    item.FolderID,
		Title:       item.Title,
		MediaType:   item.MediaType,
		Description: item.Description,
		Created:     formatWireTime(item.Created),
		Updated:     formatWireTime(item.Updated),
	}
	if item.Deleted != nil {
		w.Deleted = formatWireTime(*item.Deleted)
	}
	for _, l := range locations {
		w.Locations = append(w.Locations, locationToWire(l, false))
	}
	return w
}
