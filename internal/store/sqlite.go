package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"filesrus/internal/logging"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	logging.Store.Printf("database ready at %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			original_name TEXT NOT NULL,
			epoch_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			upload_progress INTEGER NOT NULL DEFAULT 0,
			uploaded_at INTEGER NOT NULL,
			media_name TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			media_imgix_url TEXT NOT NULL DEFAULT '',
			has_thumbnail INTEGER NOT NULL DEFAULT 0,
			cloud_enabled INTEGER NOT NULL DEFAULT 1,
			playback_mode TEXT NOT NULL DEFAULT 'Repeat',
			notes TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			app_name TEXT NOT NULL,
			max_storage_bytes INTEGER NOT NULL,
			used_storage_bytes INTEGER NOT NULL DEFAULT 0,
			max_upload_size_bytes INTEGER NOT NULL,
			cloud_enabled INTEGER NOT NULL DEFAULT 1,
			cloud_max_storage_bytes INTEGER NOT NULL,
			default_sort_order TEXT NOT NULL DEFAULT 'A-Z',
			default_playback_mode TEXT NOT NULL DEFAULT 'Repeat'
		)
	`)
	return err
}

const fileColumns = `id, title, slug, original_name, epoch_name, file_type, size_bytes,
	upload_progress, uploaded_at, media_name, media_url, media_imgix_url,
	has_thumbnail, cloud_enabled, playback_mode, notes`

func (s *SQLiteStore) InsertFileRecord(ctx context.Context, rec *FileRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	var mediaName, mediaURL, mediaImgix string
	if rec.Media != nil {
		mediaName = rec.Media.Name
		mediaURL = rec.Media.URL
		mediaImgix = rec.Media.ImgixURL
	}
	hasThumbnail := 0
	if rec.Thumbnail != nil {
		hasThumbnail = 1
	}
	cloudEnabled := 0
	if rec.CloudEnabled {
		cloudEnabled = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Slug, rec.OriginalName, rec.EpochName, string(rec.FileType),
		rec.SizeBytes, rec.UploadProgress, rec.UploadedAt, mediaName, mediaURL, mediaImgix,
		hasThumbnail, cloudEnabled, rec.PlaybackMode, rec.Notes)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func scanFileRecord(scan func(dest ...any) error) (*FileRecord, error) {
	var rec FileRecord
	var fileType, mediaName, mediaURL, mediaImgix string
	var hasThumbnail, cloudEnabled int
	err := scan(&rec.ID, &rec.Title, &rec.Slug, &rec.OriginalName, &rec.EpochName,
		&fileType, &rec.SizeBytes, &rec.UploadProgress, &rec.UploadedAt,
		&mediaName, &mediaURL, &mediaImgix, &hasThumbnail, &cloudEnabled,
		&rec.PlaybackMode, &rec.Notes)
	if err != nil {
		return nil, err
	}
	rec.FileType = FileType(fileType)
	if mediaName != "" || mediaURL != "" {
		rec.Media = &MediaRef{Name: mediaName, URL: mediaURL, ImgixURL: mediaImgix}
	}
	if hasThumbnail == 1 && rec.Media != nil {
		// Thumbnail always references the same blob as the media itself.
		ref := *rec.Media
		rec.Thumbnail = &ref
	}
	rec.CloudEnabled = cloudEnabled == 1
	return &rec, nil
}

func (s *SQLiteStore) GetFileRecord(ctx context.Context, id string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM files WHERE id = ?
	`, id)

	rec, err := scanFileRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileColumns+` FROM files ORDER BY uploaded_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) FindSettings(ctx context.Context) (*StorageSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT app_name, max_storage_bytes, used_storage_bytes, max_upload_size_bytes,
			cloud_enabled, cloud_max_storage_bytes, default_sort_order, default_playback_mode
		FROM settings WHERE id = 1
	`)

	var settings StorageSettings
	var cloudEnabled int
	err := row.Scan(&settings.AppName, &settings.MaxStorageBytes, &settings.UsedStorageBytes,
		&settings.MaxUploadSizeBytes, &cloudEnabled, &settings.CloudMaxStorageBytes,
		&settings.DefaultSortOrder, &settings.DefaultPlaybackMode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	settings.CloudEnabled = cloudEnabled == 1
	return &settings, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings *StorageSettings) error {
	cloudEnabled := 0
	if settings.CloudEnabled {
		cloudEnabled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, app_name, max_storage_bytes, used_storage_bytes,
			max_upload_size_bytes, cloud_enabled, cloud_max_storage_bytes,
			default_sort_order, default_playback_mode)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			app_name = excluded.app_name,
			max_storage_bytes = excluded.max_storage_bytes,
			used_storage_bytes = excluded.used_storage_bytes,
			max_upload_size_bytes = excluded.max_upload_size_bytes,
			cloud_enabled = excluded.cloud_enabled,
			cloud_max_storage_bytes = excluded.cloud_max_storage_bytes,
			default_sort_order = excluded.default_sort_order,
			default_playback_mode = excluded.default_playback_mode
	`, settings.AppName, settings.MaxStorageBytes, settings.UsedStorageBytes,
		settings.MaxUploadSizeBytes, cloudEnabled, settings.CloudMaxStorageBytes,
		settings.DefaultSortOrder, settings.DefaultPlaybackMode)
	return err
}

func (s *SQLiteStore) UpdateStorageUsed(ctx context.Context, usedBytes int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE settings SET used_storage_bytes = ? WHERE id = 1
	`, usedBytes)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// VaultStats contains aggregate statistics about stored files.
type VaultStats struct {
	TotalFiles int
	TotalBytes int64
	ByType     map[FileType]int
	OldestMs   int64
	NewestMs   int64
}

// GetStats computes aggregate statistics for the -stats report.
func (s *SQLiteStore) GetStats(ctx context.Context) (*VaultStats, error) {
	stats := &VaultStats{ByType: make(map[FileType]int)}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0),
			COALESCE(MIN(uploaded_at), 0), COALESCE(MAX(uploaded_at), 0)
		FROM files
	`)
	if err := row.Scan(&stats.TotalFiles, &stats.TotalBytes, &stats.OldestMs, &stats.NewestMs); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT file_type, COUNT(*) FROM files GROUP BY file_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ft string
		var count int
		if err := rows.Scan(&ft, &count); err != nil {
			return nil, err
		}
		stats.ByType[FileType(ft)] = count
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
