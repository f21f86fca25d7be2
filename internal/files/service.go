package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"filesrus/internal/logging"
	"filesrus/internal/store"
)

// Error classes for the upload pipeline. Callers classify failures with
// errors.Is; the wrapped message carries the cause.
var (
	// ErrValidation marks bad input caught before any collaborator call.
	ErrValidation = errors.New("validation failed")
	// ErrUpload marks a blob store rejection or an empty storage reference.
	ErrUpload = errors.New("blob upload failed")
	// ErrPersistence marks a metadata record insert or delete failure.
	ErrPersistence = errors.New("metadata persistence failed")
)

// DefaultPlaybackMode is recorded on every new file.
const DefaultPlaybackMode = "Repeat"

// Service implements the upload pipeline and listing operations on top of
// the blob storage and metadata store collaborators.
type Service struct {
	storage Storage
	store   store.Store
	listing *Listing
	now     func() time.Time
}

// NewService creates a new file service.
func NewService(storage Storage, st store.Store) *Service {
	return &Service{
		storage: storage,
		store:   st,
		listing: NewListing(),
		now:     time.Now,
	}
}

// Upload runs the full pipeline: derive the epoch name, classify the media
// type, push the bytes to blob storage, then insert the metadata record.
func (s *Service) Upload(ctx context.Context, data io.Reader, originalName, mimeType string) (*store.FileRecord, error) {
	return s.UploadWithProgress(ctx, data, originalName, mimeType, -1, nil)
}

// UploadWithProgress is Upload with transfer progress reporting. The size
// parameter should be the known payload size, or -1 if unknown. The
// onProgress callback is called with (bytesWritten, totalBytes) as the blob
// store consumes the payload.
func (s *Service) UploadWithProgress(ctx context.Context, data io.Reader, originalName, mimeType string, size int64, onProgress ProgressFunc) (*store.FileRecord, error) {
	if originalName == "" {
		return nil, fmt.Errorf("%w: missing file name", ErrValidation)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrValidation)
	}

	epochMs := s.now().UnixMilli()
	epochName := DeriveEpochName(epochMs, extOf(originalName))
	fileType := Classify(mimeType, originalName)

	ref, written, err := s.storage.SaveWithProgress(ctx, epochName, data, size, onProgress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if ref == nil || ref.Name == "" {
		return nil, fmt.Errorf("%w: storage returned no reference", ErrUpload)
	}

	rec := &store.FileRecord{
		Title:          epochName,
		Slug:           epochName,
		OriginalName:   originalName,
		EpochName:      epochName,
		FileType:       fileType,
		SizeBytes:      written,
		UploadProgress: 100,
		UploadedAt:     epochMs,
		Media:          ref,
		CloudEnabled:   true,
		PlaybackMode:   DefaultPlaybackMode,
	}
	if fileType == store.TypeImage {
		thumb := *ref
		rec.Thumbnail = &thumb
	}

	id, err := s.store.InsertFileRecord(ctx, rec)
	if err != nil {
		// The blob stays behind; record insert failures are not rolled back
		// or reconciled.
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	rec.ID = id
	return rec, nil
}

// Refresh re-fetches the full listing from the store and replaces the cache.
func (s *Service) Refresh(ctx context.Context) ([]*store.FileRecord, error) {
	records, err := s.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	s.listing.ReplaceAll(records)
	return s.listing.Files(), nil
}

// Files returns the cached listing snapshot.
func (s *Service) Files() []*store.FileRecord {
	return s.listing.Files()
}

// Record looks up one file record by id.
func (s *Service) Record(ctx context.Context, id string) (*store.FileRecord, error) {
	return s.store.GetFileRecord(ctx, id)
}

// Delete removes the metadata record for id and drops it from the cached
// listing. The cached listing is only mutated after the store confirms; a
// failed or not-found delete leaves it unchanged. Blob retention after a
// delete is the storage collaborator's policy, not handled here.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing file id", ErrValidation)
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.listing.Remove(id)
	return nil
}

// Download opens the stored blob for a record.
func (s *Service) Download(ctx context.Context, id string) (*store.FileRecord, io.ReadCloser, error) {
	rec, err := s.store.GetFileRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	name := rec.EpochName
	if rec.Media != nil && rec.Media.Name != "" {
		name = rec.Media.Name
	}

	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return rec, reader, nil
}

// OpenBlob opens a stored blob directly by its storage name.
func (s *Service) OpenBlob(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.storage.Load(ctx, name)
}

// Settings returns the configured storage settings, or store.ErrNotFound
// when none exist. Absence is not fatal.
func (s *Service) Settings(ctx context.Context) (*store.StorageSettings, error) {
	return s.store.FindSettings(ctx)
}

// SyncStorageUsed writes the summed listing size back to the settings
// record. Best effort: failures are logged, never surfaced, matching the
// advisory nature of the storage accounting.
func (s *Service) SyncStorageUsed(ctx context.Context) {
	used := s.listing.TotalBytes()
	if err := s.store.UpdateStorageUsed(ctx, used); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.Internal.Printf("failed to update used storage: %v", err)
		}
	}
}
