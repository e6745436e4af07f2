package models

import "time"

// Status is the synchronization state of a chest.
type Status string

const (
	StatusSynced   Status = "synced"
	StatusNeedSync Status = "needSync"
	StatusSyncing  Status = "syncing"
)

// ChestMimeType is the content type recorded for chest files in the remote store.
const ChestMimeType = "application/json"

// Metadata describes a chest file held by the remote store.
type Metadata struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title"`
	MimeType     string    `json:"mimeType"`
	DownloadURL  string    `json:"downloadUrl,omitempty"`
	ModifiedTime time.Time `json:"modifiedDate,omitempty"`
}

// LastOpened points at the most recently unlocked chest.
type LastOpened struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
