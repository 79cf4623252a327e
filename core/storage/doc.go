// Package storage provides a provider-agnostic abstraction over object
// storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for common
// operations like uploading, downloading, copying, and listing objects. The
// abstraction supports any S3-compatible store (Cloudflare R2, AWS S3,
// self-hosted MinIO) plus a local-filesystem backend for tests.
//
// # Provider Interface
//
// Provider is the facade callers depend on. Keys passed in are logical keys;
// the provider prefixes them with the configured base path and reports the
// resolved key in all results. Two implementations ship with the package:
// S3Provider over the wire-level Client, and FSProvider over a directory.
//
// # Client Interface
//
// The Client interface abstracts the MinIO wire client, making it easier to
// mock storage interactions for unit testing (see core/storage/mocks).
//
// # Error semantics
//
// Existence-style queries (ObjectExists, GetObjectInfo, GetObjectStatus,
// BuildURL, CreatePresignedPost) never return errors: any failure degrades to
// false, nil, or "". All other operations return sentinel errors matchable
// with errors.Is (ErrNotFound, ErrAlreadyExists, ErrTransport,
// ErrConfiguration, ErrInvalidKey).
//
// # Usage
//
//	provider, err := storage.NewS3Provider(cfg, logger)
//	result, err := provider.UploadFile(ctx, "songs/s1/audio", storage.FromBytes(data), storage.UploadOptions{})
package storage
