package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FSProvider implements Provider on a local directory. It exists for tests
// and local development; object metadata lives in sidecar JSON files under a
// ".meta" directory and etags are md5 hex digests of the content.
type FSProvider struct {
	root          string
	bucket        string
	basePath      string
	publicBaseURL string
	logger        *zap.Logger
}

type fsMeta struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewFSProvider creates a filesystem-backed provider rooted at dir.
func NewFSProvider(dir, bucket, basePath, publicBaseURL string, logger *zap.Logger) (*FSProvider, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: root directory is required", ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", dir, err)
	}
	return &FSProvider{
		root:          dir,
		bucket:        bucket,
		basePath:      basePath,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}, nil
}

// Bucket returns the configured bucket name.
func (p *FSProvider) Bucket() string { return p.bucket }

func (p *FSProvider) resolve(key string) (string, error) {
	return ResolveKey(p.basePath, key)
}

func (p *FSProvider) objectPath(resolved string) string {
	return filepath.Join(p.root, filepath.FromSlash(resolved))
}

func (p *FSProvider) metaPath(resolved string) string {
	return filepath.Join(p.root, ".meta", filepath.FromSlash(resolved)+".json")
}

func (p *FSProvider) readMeta(resolved string) *fsMeta {
	raw, err := os.ReadFile(p.metaPath(resolved))
	if err != nil {
		return nil
	}
	var m fsMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

func (p *FSProvider) writeMeta(resolved string, m fsMeta) error {
	path := p.metaPath(resolved)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// UploadFile stores the payload at the resolved key under the root directory.
func (p *FSProvider) UploadFile(ctx context.Context, key string, payload Payload, opts UploadOptions) (*UploadResult, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	target := p.objectPath(resolved)
	if opts.DisallowOverwrite {
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("upload %s: %w", resolved, ErrAlreadyExists)
		}
	}

	body, _, err := payload.Open()
	if err != nil {
		return nil, fmt.Errorf("open payload for %s: %w", resolved, err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("upload %s: %w", resolved, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", resolved, err)
	}
	hasher := md5.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), body); err != nil {
		f.Close()
		return nil, fmt.Errorf("upload %s: %w", resolved, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", resolved, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		hint := key
		if payload.IsFile() {
			hint = payload.FilePath()
		}
		contentType = inferContentType(hint)
	}
	etag := hex.EncodeToString(hasher.Sum(nil))
	created := time.Now().UTC()
	if prev := p.readMeta(resolved); prev != nil {
		created = prev.CreatedAt
	}
	if err := p.writeMeta(resolved, fsMeta{
		ContentType: contentType,
		Metadata:    opts.Metadata,
		ETag:        etag,
		CreatedAt:   created,
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", resolved, err)
	}

	p.logger.Info("uploaded object",
		zap.String("key", resolved),
		zap.String("etag", etag),
		zap.String("version_id", ""),
	)
	return &UploadResult{Key: resolved, ETag: etag}, nil
}

// DownloadFile writes the full object body to dst.
func (p *FSProvider) DownloadFile(ctx context.Context, key string, dst io.Writer) error {
	body, err := p.OpenStream(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(dst, body)
	return err
}

// OpenStream returns a reader over the object body; the caller closes it.
func (p *FSProvider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p.objectPath(resolved))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", resolved, ErrNotFound)
		}
		return nil, wrapTransport("open", resolved, err)
	}
	return f, nil
}

// DeleteObject removes the object and its sidecar metadata.
func (p *FSProvider) DeleteObject(ctx context.Context, key string, missingOK bool) error {
	resolved, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p.objectPath(resolved)); err != nil {
		if os.IsNotExist(err) {
			if missingOK {
				return nil
			}
			return fmt.Errorf("delete %s: %w", resolved, ErrNotFound)
		}
		return wrapTransport("delete", resolved, err)
	}
	_ = os.Remove(p.metaPath(resolved))
	return nil
}

// CopyObject copies the object and its metadata to a new key.
func (p *FSProvider) CopyObject(ctx context.Context, sourceKey, destKey string, overwrite bool) (*StoredObjectInfo, error) {
	src, err := p.resolve(sourceKey)
	if err != nil {
		return nil, err
	}
	dst, err := p.resolve(destKey)
	if err != nil {
		return nil, err
	}
	if !overwrite {
		if _, err := os.Stat(p.objectPath(dst)); err == nil {
			return nil, fmt.Errorf("copy to %s: %w", dst, ErrAlreadyExists)
		}
	}

	body, err := os.Open(p.objectPath(src))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("copy %s: %w", src, ErrNotFound)
		}
		return nil, wrapTransport("copy", src, err)
	}
	defer body.Close()

	meta := p.readMeta(src)
	opts := UploadOptions{}
	if meta != nil {
		opts.ContentType = meta.ContentType
		opts.Metadata = meta.Metadata
	}
	if _, err := p.UploadFile(ctx, destKey, FromReader(body, -1), opts); err != nil {
		return nil, err
	}
	if info := p.GetObjectInfo(ctx, destKey); info != nil {
		return info, nil
	}
	return &StoredObjectInfo{Key: dst}, nil
}

// ObjectExists never errors; any stat failure reads as false.
func (p *FSProvider) ObjectExists(ctx context.Context, key string) bool {
	resolved, err := p.resolve(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p.objectPath(resolved))
	return err == nil
}

// GetObjectInfo returns nil when the object is missing.
func (p *FSProvider) GetObjectInfo(ctx context.Context, key string) *StoredObjectInfo {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil
	}
	st, err := os.Stat(p.objectPath(resolved))
	if err != nil {
		return nil
	}

	size := st.Size()
	updated := st.ModTime().UTC()
	info := &StoredObjectInfo{
		Key:       resolved,
		SizeBytes: &size,
		UpdatedAt: &updated,
		Raw:       st,
	}
	if meta := p.readMeta(resolved); meta != nil {
		info.ContentType = meta.ContentType
		info.Metadata = meta.Metadata
		info.Checksum = meta.ETag
		created := meta.CreatedAt
		info.CreatedAt = &created
	}
	return info
}

// ListObjects streams resolved keys under the prefix by walking the root.
func (p *FSProvider) ListObjects(ctx context.Context, prefix string) <-chan string {
	resolved := p.basePath
	if prefix != "" {
		if r, err := p.resolve(prefix); err == nil {
			resolved = r
		}
	}

	keys := make(chan string)
	go func() {
		defer close(keys)
		_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".meta" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(p.root, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if resolved != "" && !strings.HasPrefix(key, resolved) {
				return nil
			}
			select {
			case keys <- key:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return keys
}

// UpdateMetadata merges or replaces the sidecar metadata.
func (p *FSProvider) UpdateMetadata(ctx context.Context, key string, metadata map[string]string, merge bool) (*StoredObjectInfo, error) {
	resolved, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p.objectPath(resolved)); err != nil {
		return nil, fmt.Errorf("update metadata %s: %w", resolved, ErrNotFound)
	}

	meta := p.readMeta(resolved)
	if meta == nil {
		meta = &fsMeta{CreatedAt: time.Now().UTC()}
	}
	if merge {
		if meta.Metadata == nil {
			meta.Metadata = map[string]string{}
		}
		for k, v := range metadata {
			meta.Metadata[k] = v
		}
	} else {
		meta.Metadata = metadata
	}
	if err := p.writeMeta(resolved, *meta); err != nil {
		return nil, wrapTransport("update metadata", resolved, err)
	}
	return p.GetObjectInfo(ctx, key), nil
}

// GetObjectStatus reports coarse availability.
func (p *FSProvider) GetObjectStatus(ctx context.Context, key string) ObjectStatus {
	if p.ObjectExists(ctx, key) {
		return StatusAvailable
	}
	return StatusNotFound
}

// BuildURL returns a public-base URL when configured. The filesystem backend
// has no signing, so expiring URLs are never available.
func (p *FSProvider) BuildURL(ctx context.Context, key string, expiresIn time.Duration) string {
	if expiresIn > 0 {
		return ""
	}
	resolved, err := p.resolve(key)
	if err != nil {
		return ""
	}
	if p.publicBaseURL != "" {
		return strings.TrimRight(p.publicBaseURL, "/") + "/" + resolved
	}
	return ""
}

// CreatePresignedPost always returns nil: no signing on the filesystem.
func (p *FSProvider) CreatePresignedPost(ctx context.Context, key string, expiresIn time.Duration, opts PostOptions) *PresignedPost {
	return nil
}
