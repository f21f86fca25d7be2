package files

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"filesrus/internal/logging"
	"filesrus/internal/store"
)

// S3Object is the subset of *minio.Object the storage layer needs.
type S3Object interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// S3Client is the subset of *minio.Client the storage layer needs. It exists
// so tests can substitute a fake client.
type S3Client interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (S3Object, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// minioClient adapts *minio.Client to the S3Client interface.
type minioClient struct {
	client *minio.Client
}

func (c *minioClient) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return c.client.PutObject(ctx, bucket, key, reader, size, opts)
}

func (c *minioClient) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (S3Object, error) {
	return c.client.GetObject(ctx, bucket, key, opts)
}

func (c *minioClient) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	return c.client.RemoveObject(ctx, bucket, key, opts)
}

// S3Storage implements Storage against any S3-compatible object store.
type S3Storage struct {
	client    S3Client
	bucket    string
	prefix    string
	publicURL string // base URL for public access, e.g. "https://f005.backblazeb2.com/file/mybucket"
	imgixURL  string // optional imgix rendering base; falls back to publicURL
}

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	Endpoint  string // S3_ENDPOINT
	KeyID     string // S3_KEY_ID
	AppKey    string // S3_APP_KEY
	Bucket    string // S3_BUCKET
	Prefix    string // S3_PREFIX - optional folder prefix for all objects
	PublicURL string // S3_PUBLIC_URL - base URL for public access
	ImgixURL  string // S3_IMGIX_URL - optional imgix base for image rendering
}

// NewS3Storage creates a new S3-backed storage.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	logging.S3.Printf("initializing storage (bucket=%s, prefix=%s, endpoint=%s)", cfg.Bucket, cfg.Prefix, cfg.Endpoint)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.KeyID, cfg.AppKey, ""),
		Secure: true,
	})
	if err != nil {
		logging.S3.Printf("failed to create client: %v", err)
		return nil, err
	}

	if cfg.PublicURL != "" {
		logging.S3.Printf("public URL configured: %s", cfg.PublicURL)
	}

	logging.S3.Printf("storage initialized successfully")
	return NewS3StorageWithClient(&minioClient{client: client}, cfg.Bucket, cfg.Prefix, cfg.PublicURL, cfg.ImgixURL), nil
}

// NewS3StorageWithClient creates an S3Storage with an explicit client.
// Used by tests.
func NewS3StorageWithClient(client S3Client, bucket, prefix, publicURL, imgixURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: publicURL,
		imgixURL:  imgixURL,
	}
}

func (s *S3Storage) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func joinURL(base, key string) string {
	if base == "" {
		return ""
	}
	if base[len(base)-1] == '/' {
		return base + key
	}
	return base + "/" + key
}

func (s *S3Storage) ref(name string) *store.MediaRef {
	url := joinURL(s.publicURL, s.key(name))
	imgix := joinURL(s.imgixURL, s.key(name))
	if imgix == "" {
		imgix = url
	}
	return &store.MediaRef{Name: name, URL: url, ImgixURL: imgix}
}

func (s *S3Storage) Save(ctx context.Context, name string, data io.Reader) (*store.MediaRef, int64, error) {
	return s.SaveWithProgress(ctx, name, data, -1, nil)
}

func (s *S3Storage) SaveWithProgress(ctx context.Context, name string, data io.Reader, size int64, onProgress ProgressFunc) (*store.MediaRef, int64, error) {
	key := s.key(name)
	logging.S3.Printf("uploading blob %s to bucket %s", key, s.bucket)

	var reader io.Reader = data
	if onProgress != nil {
		reader = &progressReader{
			reader:     data,
			total:      size,
			onProgress: onProgress,
		}
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{})
	if err != nil {
		logging.S3.Printf("upload failed for %s: %v", key, err)
		return nil, 0, err
	}

	logging.S3.Printf("uploaded %s successfully (%d bytes)", key, info.Size)
	return s.ref(name), info.Size, nil
}

func (s *S3Storage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)
	logging.S3.Printf("loading blob %s from bucket %s", key, s.bucket)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		logging.S3.Printf("failed to get object %s: %v", key, err)
		return nil, err
	}

	// GetObject is lazy; stat to learn whether the object exists.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			logging.S3.Printf("blob %s not found", key)
			return nil, ErrNotFound
		}
		logging.S3.Printf("failed to stat object %s: %v", key, err)
		return nil, err
	}

	logging.S3.Printf("loaded %s successfully (%d bytes)", key, stat.Size)
	return obj, nil
}

func (s *S3Storage) Delete(ctx context.Context, name string) error {
	key := s.key(name)
	logging.S3.Printf("deleting blob %s from bucket %s", key, s.bucket)

	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			logging.S3.Printf("blob %s not found for deletion", key)
			return ErrNotFound
		}
		logging.S3.Printf("failed to delete %s: %v", key, err)
		return err
	}

	logging.S3.Printf("deleted %s successfully", key)
	return nil
}
