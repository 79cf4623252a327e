package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// UploadOptions tunes a single upload. The zero value uploads with an
// inferred content type and overwrite allowed.
type UploadOptions struct {
	// ContentType is the MIME type to store. When empty it is inferred from
	// the key's (or source file's) extension; unresolvable types are sent
	// without a content-type hint.
	ContentType string
	// Metadata is stored as provider-side key-value tags on the object.
	Metadata map[string]string
	// DisallowOverwrite makes the upload fail with ErrAlreadyExists when the
	// resolved key is already present.
	DisallowOverwrite  bool
	CacheControl       string
	ContentDisposition string
}

// PostOptions constrains a presigned POST form.
type PostOptions struct {
	ContentType string
	Metadata    map[string]string
	// MinSize/MaxSize bound the accepted content length when MaxSize > 0.
	MinSize int64
	MaxSize int64
}

// Provider is the provider-agnostic facade over one bucket. All key arguments
// are logical keys; implementations resolve them internally and report the
// resolved key in results.
//
// Existence-style queries (ObjectExists, GetObjectInfo, GetObjectStatus,
// BuildURL, CreatePresignedPost) degrade to a negative or absent result on any
// failure instead of returning an error, so callers can treat a missing object
// as a normal branch. This intentionally conflates true absence with transient
// unavailability; callers may observe false negatives during outages.
type Provider interface {
	// UploadFile stores the payload at the resolved key, using a single
	// request for small payloads and multipart transfer above the configured
	// part size.
	UploadFile(ctx context.Context, key string, payload Payload, opts UploadOptions) (*UploadResult, error)
	// DownloadFile writes the full object body to dst. Returns ErrNotFound
	// when the object is absent.
	DownloadFile(ctx context.Context, key string, dst io.Writer) error
	// OpenStream returns a reader over the object body; the caller owns
	// closing it. Returns ErrNotFound when the object is absent.
	OpenStream(ctx context.Context, key string) (io.ReadCloser, error)
	// DeleteObject removes the object if present. Absence is tolerated unless
	// missingOK is false, in which case ErrNotFound is returned.
	DeleteObject(ctx context.Context, key string, missingOK bool) error
	// CopyObject copies within the bucket and returns the new object's info.
	CopyObject(ctx context.Context, sourceKey, destKey string, overwrite bool) (*StoredObjectInfo, error)
	// ObjectExists never errors; any retrieval failure reads as false.
	ObjectExists(ctx context.Context, key string) bool
	// GetObjectInfo returns nil when the object is missing or unreachable.
	GetObjectInfo(ctx context.Context, key string) *StoredObjectInfo
	// ListObjects streams resolved keys under the prefix. The sequence is
	// lazy, finite, and restarts on every call; provider pagination is
	// transparent to the caller.
	ListObjects(ctx context.Context, prefix string) <-chan string
	// UpdateMetadata merges (new values win) or replaces object metadata via
	// a same-key copy and returns the refreshed info.
	UpdateMetadata(ctx context.Context, key string, metadata map[string]string, merge bool) (*StoredObjectInfo, error)
	// GetObjectStatus reports coarse availability.
	GetObjectStatus(ctx context.Context, key string) ObjectStatus
	// BuildURL returns a time-limited signed URL when expiresIn > 0, a public
	// base URL when one is configured, and "" when no URL is available. "" is
	// not an error.
	BuildURL(ctx context.Context, key string, expiresIn time.Duration) string
	// CreatePresignedPost returns nil on any signing failure.
	CreatePresignedPost(ctx context.Context, key string, expiresIn time.Duration, opts PostOptions) *PresignedPost
	// Bucket returns the configured bucket name.
	Bucket() string
}

// DownloadToFile writes the object at key to a file at path, creating or
// truncating it.
func DownloadToFile(ctx context.Context, p Provider, key, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := p.DownloadFile(ctx, key, f); err != nil {
		return err
	}
	return f.Close()
}
