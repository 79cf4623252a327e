package storage

// Config holds configuration for the object storage provider.
type Config struct {
	// AccessKeyID is the access key for authentication. Required.
	AccessKeyID string `mapstructure:"access_key_id" default:""`
	// SecretAccessKey is the secret key for authentication. Required.
	SecretAccessKey string `mapstructure:"secret_access_key" default:""`
	// AccountID identifies the account; the endpoint is derived from it when
	// Endpoint is not set explicitly.
	AccountID string `mapstructure:"account_id" default:""`
	// Endpoint is the storage service host. Overrides the derived endpoint.
	Endpoint string `mapstructure:"endpoint" default:""`
	// Region is the bucket location.
	Region string `mapstructure:"region" default:"auto"`
	// Bucket is the bucket all operations run against.
	Bucket string `mapstructure:"bucket" default:""`
	// BasePath is prefixed onto every logical key.
	BasePath string `mapstructure:"base_path" default:""`
	// PublicBaseURL, when set, is used to build unsigned public links.
	PublicBaseURL string `mapstructure:"public_base_url" default:""`
	// UseSSL indicates whether to use TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// MaxRetries bounds transport-level retry attempts per call.
	MaxRetries int `mapstructure:"max_retries" default:"8"`
	// ChunkSizeMiB is the multipart part size; payloads above it are
	// transferred as multipart.
	ChunkSizeMiB int `mapstructure:"chunk_size_mib" default:"8"`
	// MaxConcurrency bounds concurrent multipart part transfers.
	MaxConcurrency int `mapstructure:"max_concurrency" default:"10"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// EndpointHost returns the explicit endpoint, or the account-derived
// S3-compatible endpoint, or "" when neither is available.
func (c Config) EndpointHost() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return c.AccountID + ".r2.cloudflarestorage.com"
	}
	return ""
}

// PartSize returns the multipart part size in bytes, falling back to the
// 8 MiB default.
func (c Config) PartSize() uint64 {
	chunk := c.ChunkSizeMiB
	if chunk <= 0 {
		chunk = 8
	}
	return uint64(chunk) * 1024 * 1024
}

// Concurrency returns the multipart worker bound, falling back to 10.
func (c Config) Concurrency() uint {
	if c.MaxConcurrency <= 0 {
		return 10
	}
	return uint(c.MaxConcurrency)
}
