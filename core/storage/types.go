package storage

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"time"
)

// ObjectStatus is a coarse availability state for a stored object.
type ObjectStatus string

const (
	StatusAvailable ObjectStatus = "available"
	StatusNotFound  ObjectStatus = "not_found"
	// StatusInProgress and StatusUnknown are reserved for providers with
	// asynchronous materialization; the bundled providers never return them.
	StatusInProgress ObjectStatus = "in_progress"
	StatusUnknown    ObjectStatus = "unknown"
)

// StoredObjectInfo is an immutable snapshot of a stored object. It is
// re-fetched on demand and never cached across calls.
type StoredObjectInfo struct {
	// Key is the fully-resolved object key.
	Key string
	// SizeBytes is nil until the provider has reported a size.
	SizeBytes *int64
	// Checksum is the provider-supplied content hash. It is not guaranteed
	// to be unique across multipart uploads.
	Checksum    string
	ContentType string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	Metadata    map[string]string
	// Raw carries the provider-specific response for diagnostics only; core
	// logic never inspects it.
	Raw any
}

// UploadResult is the outcome of a single upload.
type UploadResult struct {
	// Key is the fully-resolved object key.
	Key string
	// ETag is an opaque integrity token from the provider.
	ETag string
	// VersionID is set when the bucket is versioned.
	VersionID string
	Raw       any
}

// PresignedPost is an opaque form-field bundle enabling a client to upload
// directly to an object without routing bytes through this service.
type PresignedPost struct {
	URL    string
	Fields map[string]string
}

// Payload is the source of bytes for an upload: an in-memory buffer, a file
// on disk, or an arbitrary reader.
type Payload struct {
	data   []byte
	path   string
	reader io.Reader
	size   int64
}

// FromBytes wraps an in-memory buffer as an upload payload.
func FromBytes(b []byte) Payload {
	return Payload{data: b, size: int64(len(b))}
}

// FromFile wraps a file path as an upload payload.
func FromFile(path string) Payload {
	return Payload{path: path, size: -1}
}

// FromReader wraps an open reader as an upload payload. Pass size -1 when the
// length is not known up front.
func FromReader(r io.Reader, size int64) Payload {
	return Payload{reader: r, size: size}
}

// Empty reports whether the payload was never supplied.
func (p Payload) Empty() bool {
	return p.data == nil && p.path == "" && p.reader == nil
}

// IsFile reports whether the payload is backed by a file on disk.
func (p Payload) IsFile() bool { return p.path != "" }

// FilePath returns the backing file path, or "" for non-file payloads.
func (p Payload) FilePath() string { return p.path }

// Open returns a reader over the payload along with its size, or -1 when the
// size is unknown. The caller owns closing the returned reader.
func (p Payload) Open() (io.ReadCloser, int64, error) {
	switch {
	case p.path != "":
		f, err := os.Open(p.path)
		if err != nil {
			return nil, 0, err
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		return f, st.Size(), nil
	case p.reader != nil:
		return io.NopCloser(p.reader), p.size, nil
	default:
		return io.NopCloser(bytes.NewReader(p.data)), int64(len(p.data)), nil
	}
}

// ChecksumMD5 returns the hex MD5 digest of data, matching the etag format
// providers report for single-part uploads.
func ChecksumMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
