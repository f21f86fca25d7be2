package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// File type values, computed once at upload time and never recomputed.
type FileType string

const (
	TypeImage FileType = "Image"
	TypeAudio FileType = "Audio"
	TypeVideo FileType = "Video"
	TypeGIF   FileType = "GIF"
	TypeM3U8  FileType = "M3U8 Playlist"
	TypeOther FileType = "Other"
)

// MediaRef points at a blob held by the storage collaborator.
type MediaRef struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url"`
}

// FileRecord is the metadata entry for one uploaded file. All fields except
// PlaybackMode and Notes are immutable after creation; a record is only ever
// replaced by deleting and re-creating it.
type FileRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	OriginalName   string    `json:"original_name"`
	EpochName      string    `json:"epoch_name"`
	FileType       FileType  `json:"file_type"`
	SizeBytes      int64     `json:"file_size_bytes"`
	UploadProgress int       `json:"upload_progress"`
	UploadedAt     int64     `json:"uploaded_at"` // epoch milliseconds
	Media          *MediaRef `json:"file,omitempty"`
	Thumbnail      *MediaRef `json:"thumbnail,omitempty"` // set only for images, same blob as Media
	CloudEnabled   bool      `json:"cloud_enabled"`
	PlaybackMode   string    `json:"playback_mode"`
	Notes          string    `json:"notes"`
}

// StorageSettings holds the vault-wide configuration. The service reads it to
// pick defaults and advertise caps; it never enforces the caps server-side.
type StorageSettings struct {
	AppName              string `json:"app_name"`
	MaxStorageBytes      int64  `json:"max_storage_bytes"`
	UsedStorageBytes     int64  `json:"used_storage_bytes"`
	MaxUploadSizeBytes   int64  `json:"max_upload_size_bytes"`
	CloudEnabled         bool   `json:"cloud_enabled"`
	CloudMaxStorageBytes int64  `json:"cloud_max_storage_bytes"`
	DefaultSortOrder     string `json:"default_sort_order"`
	DefaultPlaybackMode  string `json:"default_playback_mode"`
}

// Store defines the interface for metadata persistence.
type Store interface {
	// InsertFileRecord persists a new record and returns the assigned ID.
	InsertFileRecord(ctx context.Context, rec *FileRecord) (string, error)
	GetFileRecord(ctx context.Context, id string) (*FileRecord, error)
	ListFiles(ctx context.Context) ([]*FileRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	// FindSettings returns ErrNotFound when no settings are configured.
	// Absence is not an error condition for callers.
	FindSettings(ctx context.Context) (*StorageSettings, error)
	SaveSettings(ctx context.Context, s *StorageSettings) error
	UpdateStorageUsed(ctx context.Context, usedBytes int64) error
	Close() error
}
