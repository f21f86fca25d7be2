package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"filesrus/internal/store"
)

// mockStorage implements Storage for testing.
type mockStorage struct {
	blobs    map[string][]byte
	saveErr  error
	emptyRef bool
	saves    int
}

func newMockStorage() *mockStorage {
	return &mockStorage{blobs: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, name string, data io.Reader) (*store.MediaRef, int64, error) {
	return m.SaveWithProgress(ctx, name, data, -1, nil)
}

func (m *mockStorage) SaveWithProgress(ctx context.Context, name string, data io.Reader, size int64, onProgress ProgressFunc) (*store.MediaRef, int64, error) {
	m.saves++
	if m.saveErr != nil {
		return nil, 0, m.saveErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, 0, err
	}
	m.blobs[name] = buf
	if onProgress != nil {
		onProgress(int64(len(buf)), int64(len(buf)))
	}
	if m.emptyRef {
		return &store.MediaRef{}, int64(len(buf)), nil
	}
	url := "https://cdn.example.com/" + name
	return &store.MediaRef{Name: name, URL: url, ImgixURL: url}, int64(len(buf)), nil
}

func (m *mockStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) Delete(ctx context.Context, name string) error {
	if _, ok := m.blobs[name]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, name)
	return nil
}

// mockStore implements store.Store for testing.
type mockStore struct {
	records   map[string]*store.FileRecord
	settings  *store.StorageSettings
	usedBytes int64
	insertErr error
	nextID    int
	inserts   int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]*store.FileRecord)}
}

func (m *mockStore) InsertFileRecord(ctx context.Context, rec *store.FileRecord) (string, error) {
	m.inserts++
	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *mockStore) GetFileRecord(ctx context.Context, id string) (*store.FileRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (m *mockStore) ListFiles(ctx context.Context) ([]*store.FileRecord, error) {
	var out []*store.FileRecord
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockStore) DeleteRecord(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockStore) FindSettings(ctx context.Context) (*store.StorageSettings, error) {
	if m.settings == nil {
		return nil, store.ErrNotFound
	}
	return m.settings, nil
}

func (m *mockStore) SaveSettings(ctx context.Context, s *store.StorageSettings) error {
	m.settings = s
	return nil
}

func (m *mockStore) UpdateStorageUsed(ctx context.Context, usedBytes int64) error {
	if m.settings == nil {
		return store.ErrNotFound
	}
	m.usedBytes = usedBytes
	m.settings.UsedStorageBytes = usedBytes
	return nil
}

func (m *mockStore) Close() error { return nil }

func TestService_Upload(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	svc := NewService(storage, st)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	ctx := context.Background()
	rec, err := svc.Upload(ctx, bytes.NewReader([]byte("0123456789")), "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("expected assigned record ID")
	}
	if rec.FileType != store.TypeVideo {
		t.Errorf("expected Video, got %q", rec.FileType)
	}
	if rec.SizeBytes != 10 {
		t.Errorf("expected 10 bytes, got %d", rec.SizeBytes)
	}
	if rec.EpochName != "1700000000000.mp4" {
		t.Errorf("expected epoch name 1700000000000.mp4, got %q", rec.EpochName)
	}
	if rec.Title != rec.EpochName || rec.Slug != rec.EpochName {
		t.Errorf("title and slug must both be the epoch name, got title=%q slug=%q", rec.Title, rec.Slug)
	}
	if rec.UploadProgress != 100 {
		t.Errorf("expected upload progress 100, got %d", rec.UploadProgress)
	}
	if rec.UploadedAt != 1700000000000 {
		t.Errorf("expected uploaded_at 1700000000000, got %d", rec.UploadedAt)
	}
	if rec.PlaybackMode != "Repeat" {
		t.Errorf("expected default playback mode Repeat, got %q", rec.PlaybackMode)
	}
	if rec.Thumbnail != nil {
		t.Error("video must not carry a thumbnail ref")
	}
	if rec.Media == nil || rec.Media.Name != "1700000000000.mp4" {
		t.Errorf("unexpected media ref: %+v", rec.Media)
	}
	if _, ok := storage.blobs["1700000000000.mp4"]; !ok {
		t.Error("blob not stored under epoch name")
	}
}

func TestService_Upload_ImageGetsThumbnail(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	svc := NewService(storage, st)

	rec, err := svc.Upload(context.Background(), bytes.NewReader([]byte("png")), "photo.png", "image/png")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if rec.FileType != store.TypeImage {
		t.Fatalf("expected Image, got %q", rec.FileType)
	}
	if rec.Thumbnail == nil {
		t.Fatal("image must carry a thumbnail ref")
	}
	if rec.Thumbnail.Name != rec.Media.Name {
		t.Errorf("thumbnail must reference the same blob: %q vs %q", rec.Thumbnail.Name, rec.Media.Name)
	}
}

func TestService_Upload_GIFNotThumbnailed(t *testing.T) {
	svc := NewService(newMockStorage(), newMockStore())

	rec, err := svc.Upload(context.Background(), bytes.NewReader([]byte("gif")), "anim.gif", "image/gif")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if rec.FileType != store.TypeGIF {
		t.Fatalf("expected GIF, got %q", rec.FileType)
	}
	if rec.Thumbnail != nil {
		t.Error("GIF must not carry a thumbnail ref")
	}
}

// Missing input is rejected before any collaborator call.
func TestService_Upload_ValidationBeforeNetwork(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	svc := NewService(storage, st)
	ctx := context.Background()

	_, err := svc.Upload(ctx, bytes.NewReader(nil), "", "video/mp4")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	_, err = svc.Upload(ctx, nil, "clip.mp4", "video/mp4")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if storage.saves != 0 {
		t.Errorf("storage invoked %d times, want 0", storage.saves)
	}
	if st.inserts != 0 {
		t.Errorf("store invoked %d times, want 0", st.inserts)
	}
}

func TestService_Upload_StorageFailure(t *testing.T) {
	storage := newMockStorage()
	storage.saveErr = errors.New("bucket unavailable")
	svc := NewService(storage, newMockStore())

	_, err := svc.Upload(context.Background(), bytes.NewReader([]byte("x")), "clip.mp4", "video/mp4")
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestService_Upload_EmptyReference(t *testing.T) {
	storage := newMockStorage()
	storage.emptyRef = true
	svc := NewService(storage, newMockStore())

	_, err := svc.Upload(context.Background(), bytes.NewReader([]byte("x")), "clip.mp4", "video/mp4")
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

// A record insert failure surfaces as ErrPersistence and leaves the stored
// blob in place: there is no rollback.
func TestService_Upload_PersistenceFailureLeavesBlob(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	st.insertErr = errors.New("insert rejected")
	svc := NewService(storage, st)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	_, err := svc.Upload(context.Background(), bytes.NewReader([]byte("x")), "clip.mp4", "video/mp4")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, ok := storage.blobs["1700000000000.mp4"]; !ok {
		t.Error("blob must remain in storage after a failed record insert")
	}
}

func TestService_UploadWithProgress(t *testing.T) {
	svc := NewService(newMockStorage(), newMockStore())

	var calls int
	var lastWritten, lastTotal int64
	_, err := svc.UploadWithProgress(context.Background(), bytes.NewReader([]byte("0123456789")), "clip.mp4", "video/mp4", 10,
		func(written, total int64) {
			calls++
			lastWritten, lastTotal = written, total
		})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected progress callbacks")
	}
	if lastWritten != 10 || lastTotal != 10 {
		t.Errorf("expected final progress 10/10, got %d/%d", lastWritten, lastTotal)
	}
}

func TestService_RefreshAndDelete(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	svc := NewService(storage, st)
	ctx := context.Background()

	recA, err := svc.Upload(ctx, bytes.NewReader([]byte("a")), "a.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	recB, err := svc.Upload(ctx, bytes.NewReader([]byte("bb")), "b.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	records, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Deleting a valid id removes exactly that record
	if err := svc.Delete(ctx, recA.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	remaining := svc.Files()
	if len(remaining) != 1 || remaining[0].ID != recB.ID {
		t.Errorf("expected only %s to remain, got %v", recB.ID, remaining)
	}

	// Deleting an unknown id surfaces not-found without mutating the listing
	err = svc.Delete(ctx, "nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(svc.Files()) != 1 {
		t.Errorf("failed delete mutated the listing: %d records", len(svc.Files()))
	}

	// Empty id is a validation error
	if err := svc.Delete(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for empty id, got %v", err)
	}
}

func TestService_Download(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	svc := NewService(storage, st)
	ctx := context.Background()

	rec, err := svc.Upload(ctx, bytes.NewReader([]byte("payload")), "doc.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	got, reader, err := svc.Download(ctx, rec.ID)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer reader.Close()

	if got.ID != rec.ID {
		t.Errorf("expected record %s, got %s", rec.ID, got.ID)
	}
	data, _ := io.ReadAll(reader)
	if string(data) != "payload" {
		t.Errorf("expected payload, got %q", data)
	}

	_, _, err = svc.Download(ctx, "nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_SyncStorageUsed(t *testing.T) {
	storage := newMockStorage()
	st := newMockStore()
	st.settings = &store.StorageSettings{AppName: "Files R Us"}
	svc := NewService(storage, st)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, bytes.NewReader([]byte("0123456789")), "clip.mp4", "video/mp4"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	svc.SyncStorageUsed(ctx)
	if st.usedBytes != 10 {
		t.Errorf("expected 10 used bytes, got %d", st.usedBytes)
	}

	// Without settings the sync is a silent no-op
	st.settings = nil
	svc.SyncStorageUsed(ctx)
}
