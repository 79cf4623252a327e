package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// S3Provider implements Provider against an S3-compatible store (R2, MinIO,
// AWS S3) through the wire-level Client.
type S3Provider struct {
	client Client
	cfg    Config
	logger *zap.Logger
}

// NewS3Provider builds a provider and its underlying client from the
// configuration. Fails with ErrConfiguration before any network call when
// credentials or the endpoint are missing.
func NewS3Provider(cfg Config, logger *zap.Logger) (*S3Provider, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewS3ProviderWithClient(cfg, client, logger), nil
}

// NewS3ProviderWithClient builds a provider over an existing client. Used by
// tests to substitute a mock client.
func NewS3ProviderWithClient(cfg Config, client Client, logger *zap.Logger) *S3Provider {
	return &S3Provider{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Bucket returns the configured bucket name.
func (p *S3Provider) Bucket() string { return p.cfg.Bucket }

func (p *S3Provider) resolve(key string) (string, error) {
	return ResolveKey(p.cfg.BasePath, key)
}

// isNotFound reports whether err is the provider's missing-object response.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound ||
		resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

// inferContentType guesses a MIME type from the extension of the hint path.
// Returns "" when the extension is unknown.
func inferContentType(hint string) string {
	ext := path.Ext(hint)
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

func (p *S3Provider) putOptions(opts UploadOptions, hint string) minio.PutObjectOptions {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = inferContentType(hint)
	}
	return minio.PutObjectOptions{
		ContentType:        contentType,
		UserMetadata:       opts.Metadata,
		CacheControl:       opts.CacheControl,
		ContentDisposition: opts.ContentDisposition,
		PartSize:           p.cfg.PartSize(),
		NumThreads:         p.cfg.Concurrency(),
	}
}

// UploadFile stores the payload at the resolved key. Payloads larger than the
// configured part size go up as multipart with bounded concurrency.
func (p *S3Provider) UploadFile(ctx context.Context, key string, payload Payload, opts UploadOptions) (*UploadResult, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	if opts.DisallowOverwrite && p.statExists(ctx, resolved) {
		return nil, fmt.Errorf("upload %s: %w", resolved, ErrAlreadyExists)
	}

	hint := key
	if payload.IsFile() {
		hint = payload.FilePath()
	}
	putOpts := p.putOptions(opts, hint)

	var info minio.UploadInfo
	if payload.IsFile() {
		info, err = p.client.FPutObject(ctx, p.cfg.Bucket, resolved, payload.FilePath(), putOpts)
	} else {
		var body io.ReadCloser
		var size int64
		body, size, err = payload.Open()
		if err != nil {
			return nil, fmt.Errorf("open payload for %s: %w", resolved, err)
		}
		defer body.Close()
		info, err = p.client.PutObject(ctx, p.cfg.Bucket, resolved, body, size, putOpts)
	}
	if err != nil {
		return nil, wrapTransport("upload", resolved, err)
	}

	p.logger.Info("uploaded object",
		zap.String("key", resolved),
		zap.String("etag", info.ETag),
		zap.String("version_id", info.VersionID),
	)
	return &UploadResult{
		Key:       resolved,
		ETag:      info.ETag,
		VersionID: info.VersionID,
		Raw:       info,
	}, nil
}

// DownloadFile writes the full object body to dst.
func (p *S3Provider) DownloadFile(ctx context.Context, key string, dst io.Writer) error {
	body, err := p.OpenStream(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	if _, err := io.Copy(dst, body); err != nil {
		resolved, _ := p.resolve(key)
		return wrapTransport("download", resolved, err)
	}
	return nil
}

// OpenStream returns a reader over the object body; the caller closes it.
func (p *S3Provider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	// Stat first so absence surfaces here instead of on the first read.
	if _, err := p.client.StatObject(ctx, p.cfg.Bucket, resolved, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %s: %w", resolved, ErrNotFound)
		}
		return nil, wrapTransport("open", resolved, err)
	}
	body, err := p.client.GetObject(ctx, p.cfg.Bucket, resolved, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapTransport("open", resolved, err)
	}
	return body, nil
}

// DeleteObject removes the object. Absence is tolerated unless missingOK is
// false.
func (p *S3Provider) DeleteObject(ctx context.Context, key string, missingOK bool) error {
	resolved, err := p.resolve(key)
	if err != nil {
		return err
	}
	if !missingOK && !p.statExists(ctx, resolved) {
		return fmt.Errorf("delete %s: %w", resolved, ErrNotFound)
	}
	if err := p.client.RemoveObject(ctx, p.cfg.Bucket, resolved, minio.RemoveObjectOptions{}); err != nil {
		if missingOK {
			return nil
		}
		return wrapTransport("delete", resolved, err)
	}
	return nil
}

// CopyObject copies within the bucket and returns the new object's info.
func (p *S3Provider) CopyObject(ctx context.Context, sourceKey, destKey string, overwrite bool) (*StoredObjectInfo, error) {
	src, err := p.resolve(sourceKey)
	if err != nil {
		return nil, err
	}
	dst, err := p.resolve(destKey)
	if err != nil {
		return nil, err
	}
	if !overwrite && p.statExists(ctx, dst) {
		return nil, fmt.Errorf("copy to %s: %w", dst, ErrAlreadyExists)
	}

	_, err = p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.cfg.Bucket, Object: dst},
		minio.CopySrcOptions{Bucket: p.cfg.Bucket, Object: src},
	)
	if err != nil {
		return nil, wrapTransport("copy", dst, err)
	}
	if info := p.GetObjectInfo(ctx, destKey); info != nil {
		return info, nil
	}
	return &StoredObjectInfo{Key: dst}, nil
}

// statExists checks a resolved key directly, bypassing logical resolution.
func (p *S3Provider) statExists(ctx context.Context, resolved string) bool {
	_, err := p.client.StatObject(ctx, p.cfg.Bucket, resolved, minio.StatObjectOptions{})
	return err == nil
}

// ObjectExists never errors; any stat failure reads as false.
func (p *S3Provider) ObjectExists(ctx context.Context, key string) bool {
	resolved, err := p.resolve(key)
	if err != nil {
		return false
	}
	return p.statExists(ctx, resolved)
}

// GetObjectInfo returns nil when the object is missing or unreachable.
func (p *S3Provider) GetObjectInfo(ctx context.Context, key string) *StoredObjectInfo {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil
	}
	stat, err := p.client.StatObject(ctx, p.cfg.Bucket, resolved, minio.StatObjectOptions{})
	if err != nil {
		return nil
	}

	size := stat.Size
	modified := stat.LastModified
	info := &StoredObjectInfo{
		Key:         resolved,
		SizeBytes:   &size,
		Checksum:    strings.Trim(stat.ETag, `"`),
		ContentType: stat.ContentType,
		Metadata:    map[string]string(stat.UserMetadata),
		Raw:         stat,
	}
	if !modified.IsZero() {
		info.CreatedAt = &modified
		info.UpdatedAt = &modified
	}
	return info
}

// ListObjects streams resolved keys under the prefix. Listing errors end the
// stream early.
func (p *S3Provider) ListObjects(ctx context.Context, prefix string) <-chan string {
	resolved := p.cfg.BasePath
	if prefix != "" {
		if r, err := p.resolve(prefix); err == nil {
			resolved = r
		}
	}

	keys := make(chan string)
	go func() {
		defer close(keys)
		for obj := range p.client.ListObjects(ctx, p.cfg.Bucket, minio.ListObjectsOptions{
			Prefix:    resolved,
			Recursive: true,
		}) {
			if obj.Err != nil {
				p.logger.Warn("object listing aborted", zap.String("prefix", resolved), zap.Error(obj.Err))
				return
			}
			select {
			case keys <- obj.Key:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}

// UpdateMetadata merges or replaces object metadata. The protocol requires a
// same-key copy with a metadata-replace directive to mutate metadata in place.
func (p *S3Provider) UpdateMetadata(ctx context.Context, key string, metadata map[string]string, merge bool) (*StoredObjectInfo, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}

	current := map[string]string{}
	var contentType string
	if info := p.GetObjectInfo(ctx, key); info != nil {
		contentType = info.ContentType
		for k, v := range info.Metadata {
			current[k] = v
		}
	}
	updated := metadata
	if merge {
		for k, v := range metadata {
			current[k] = v
		}
		updated = current
	}

	dst := minio.CopyDestOptions{
		Bucket:          p.cfg.Bucket,
		Object:          resolved,
		UserMetadata:    withContentType(updated, contentType),
		ReplaceMetadata: true,
	}
	_, err = p.client.CopyObject(ctx, dst, minio.CopySrcOptions{Bucket: p.cfg.Bucket, Object: resolved})
	if err != nil {
		return nil, wrapTransport("update metadata", resolved, err)
	}
	if info := p.GetObjectInfo(ctx, key); info != nil {
		return info, nil
	}
	return &StoredObjectInfo{Key: resolved, Metadata: updated}, nil
}

// withContentType folds the preserved content type into the copy metadata;
// minio passes standard headers through as headers rather than x-amz-meta.
func withContentType(metadata map[string]string, contentType string) map[string]string {
	if contentType == "" {
		return metadata
	}
	out := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["Content-Type"] = contentType
	return out
}

// GetObjectStatus reports coarse availability.
func (p *S3Provider) GetObjectStatus(ctx context.Context, key string) ObjectStatus {
	if p.ObjectExists(ctx, key) {
		return StatusAvailable
	}
	return StatusNotFound
}

// BuildURL returns a signed URL when expiresIn > 0, a public-base URL when one
// is configured, and "" otherwise. Signing failures degrade to "".
func (p *S3Provider) BuildURL(ctx context.Context, key string, expiresIn time.Duration) string {
	resolved, err := p.resolve(key)
	if err != nil {
		return ""
	}
	if expiresIn > 0 {
		signed, err := p.client.PresignedGetObject(ctx, p.cfg.Bucket, resolved, expiresIn, url.Values{})
		if err != nil {
			return ""
		}
		return signed.String()
	}
	if p.cfg.PublicBaseURL != "" {
		return strings.TrimRight(p.cfg.PublicBaseURL, "/") + "/" + resolved
	}
	return ""
}

// CreatePresignedPost returns a form-field bundle for direct client upload, or
// nil on any signing failure.
func (p *S3Provider) CreatePresignedPost(ctx context.Context, key string, expiresIn time.Duration, opts PostOptions) *PresignedPost {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil
	}

	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(p.cfg.Bucket); err != nil {
		return nil
	}
	if err := policy.SetKey(resolved); err != nil {
		return nil
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expiresIn)); err != nil {
		return nil
	}
	if opts.ContentType != "" {
		if err := policy.SetContentType(opts.ContentType); err != nil {
			return nil
		}
	}
	if opts.MaxSize > 0 {
		if err := policy.SetContentLengthRange(opts.MinSize, opts.MaxSize); err != nil {
			return nil
		}
	}
	for k, v := range opts.Metadata {
		if err := policy.SetUserMetadata(k, v); err != nil {
			return nil
		}
	}

	postURL, fields, err := p.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil
	}
	return &PresignedPost{URL: postURL.String(), Fields: fields}
}
