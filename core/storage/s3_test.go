package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"media-store/core/storage"
	"media-store/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func notFoundErr() error {
	return minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404, Message: "The specified key does not exist."}
}

func newTestProvider(client *mocks.Client, cfg storage.Config) *storage.S3Provider {
	if cfg.Bucket == "" {
		cfg.Bucket = "test-bucket"
	}
	return storage.NewS3ProviderWithClient(cfg, client, zap.NewNop())
}

func TestS3Provider_UploadFile(t *testing.T) {
	t.Run("Bytes", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		payload := []byte("hello world")
		mockClient.On("PutObject", mock.Anything, "test-bucket", "songs/s1/audio", mock.Anything, int64(len(payload)),
			mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
				return opts.ContentType == "audio/mpeg" &&
					opts.PartSize == 8*1024*1024 &&
					opts.NumThreads == 10 &&
					opts.UserMetadata["song_id"] == "s1"
			}),
		).Return(minio.UploadInfo{Key: "songs/s1/audio", ETag: "etag-1", VersionID: "v1"}, nil)

		result, err := provider.UploadFile(context.Background(), "songs/s1/audio", storage.FromBytes(payload), storage.UploadOptions{
			ContentType: "audio/mpeg",
			Metadata:    map[string]string{"song_id": "s1"},
		})
		assert.NoError(t, err)
		assert.Equal(t, "songs/s1/audio", result.Key)
		assert.Equal(t, "etag-1", result.ETag)
		assert.Equal(t, "v1", result.VersionID)
		mockClient.AssertExpectations(t)
	})

	t.Run("ResolvesBasePath", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{BasePath: "media"})

		mockClient.On("PutObject", mock.Anything, "test-bucket", "media/a/b", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{ETag: "e"}, nil)

		result, err := provider.UploadFile(context.Background(), "/a/b/", storage.FromBytes([]byte("x")), storage.UploadOptions{})
		assert.NoError(t, err)
		assert.Equal(t, "media/a/b", result.Key)
	})

	t.Run("InfersContentTypeFromExtension", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("PutObject", mock.Anything, "test-bucket", "docs/report.json", mock.Anything, mock.Anything,
			mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
				return opts.ContentType == "application/json"
			}),
		).Return(minio.UploadInfo{}, nil)

		_, err := provider.UploadFile(context.Background(), "docs/report.json", storage.FromBytes([]byte("{}")), storage.UploadOptions{})
		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("DisallowOverwriteExisting", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(minio.ObjectInfo{Key: "a"}, nil)

		_, err := provider.UploadFile(context.Background(), "a", storage.FromBytes([]byte("x")), storage.UploadOptions{DisallowOverwrite: true})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
		mockClient.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		_, err := provider.UploadFile(context.Background(), "", storage.FromBytes(nil), storage.UploadOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("TransportError", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		cause := errors.New("connection reset")
		mockClient.On("PutObject", mock.Anything, "test-bucket", "a", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, cause)

		_, err := provider.UploadFile(context.Background(), "a", storage.FromBytes([]byte("x")), storage.UploadOptions{})
		assert.ErrorIs(t, err, storage.ErrTransport)
		assert.ErrorIs(t, err, cause)
	})
}

func TestS3Provider_OpenStream(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(minio.ObjectInfo{Key: "a"}, nil)
		mockClient.On("GetObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(io.NopCloser(bytes.NewReader([]byte("body"))), nil)

		body, err := provider.OpenStream(context.Background(), "a")
		assert.NoError(t, err)
		defer body.Close()

		raw, err := io.ReadAll(body)
		assert.NoError(t, err)
		assert.Equal(t, []byte("body"), raw)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "missing", mock.Anything).
			Return(minio.ObjectInfo{}, notFoundErr())

		_, err := provider.OpenStream(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestS3Provider_Existence(t *testing.T) {
	t.Run("ExistsFalseOnNotFound", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "missing", mock.Anything).
			Return(minio.ObjectInfo{}, notFoundErr())

		assert.False(t, provider.ObjectExists(context.Background(), "missing"))
		assert.Equal(t, storage.StatusNotFound, provider.GetObjectStatus(context.Background(), "missing"))
	})

	t.Run("ExistsFalseOnTransientError", func(t *testing.T) {
		// Any stat failure reads as absence, including network errors.
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(minio.ObjectInfo{}, errors.New("credentials revoked"))

		assert.False(t, provider.ObjectExists(context.Background(), "a"))
		assert.Nil(t, provider.GetObjectInfo(context.Background(), "a"))
	})

	t.Run("InfoSnapshot", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		modified := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(minio.ObjectInfo{
				Key:          "a",
				Size:         42,
				ETag:         `"abc123"`,
				ContentType:  "audio/mpeg",
				LastModified: modified,
				UserMetadata: minio.StringMap{"song_id": "s1"},
			}, nil)

		info := provider.GetObjectInfo(context.Background(), "a")
		assert.NotNil(t, info)
		assert.Equal(t, "a", info.Key)
		assert.Equal(t, int64(42), *info.SizeBytes)
		assert.Equal(t, "abc123", info.Checksum)
		assert.Equal(t, "audio/mpeg", info.ContentType)
		assert.Equal(t, "s1", info.Metadata["song_id"])
		assert.Equal(t, modified, *info.UpdatedAt)
	})
}

func TestS3Provider_DeleteObject(t *testing.T) {
	t.Run("MissingOK", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("RemoveObject", mock.Anything, "test-bucket", "a", mock.Anything).Return(nil)

		assert.NoError(t, provider.DeleteObject(context.Background(), "a", true))
	})

	t.Run("MissingNotOK", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
			Return(minio.ObjectInfo{}, notFoundErr())

		err := provider.DeleteObject(context.Background(), "a", false)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		mockClient.AssertNotCalled(t, "RemoveObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestS3Provider_CopyObject(t *testing.T) {
	t.Run("OverwriteDisallowed", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("StatObject", mock.Anything, "test-bucket", "dst", mock.Anything).
			Return(minio.ObjectInfo{Key: "dst"}, nil)

		_, err := provider.CopyObject(context.Background(), "src", "dst", false)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("Copies", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("CopyObject", mock.Anything,
			mock.MatchedBy(func(dst minio.CopyDestOptions) bool { return dst.Object == "dst" }),
			mock.MatchedBy(func(src minio.CopySrcOptions) bool { return src.Object == "src" }),
		).Return(minio.UploadInfo{Key: "dst"}, nil)
		mockClient.On("StatObject", mock.Anything, "test-bucket", "dst", mock.Anything).
			Return(minio.ObjectInfo{Key: "dst", Size: 7}, nil)

		info, err := provider.CopyObject(context.Background(), "src", "dst", true)
		assert.NoError(t, err)
		assert.Equal(t, "dst", info.Key)
		mockClient.AssertExpectations(t)
	})
}

func TestS3Provider_UpdateMetadata(t *testing.T) {
	mockClient := new(mocks.Client)
	provider := newTestProvider(mockClient, storage.Config{})

	mockClient.On("StatObject", mock.Anything, "test-bucket", "a", mock.Anything).
		Return(minio.ObjectInfo{
			Key:          "a",
			ContentType:  "audio/mpeg",
			UserMetadata: minio.StringMap{"song_id": "s1", "type": "audio"},
		}, nil)
	mockClient.On("CopyObject", mock.Anything,
		mock.MatchedBy(func(dst minio.CopyDestOptions) bool {
			// merge keeps existing tags, new values win, content type is preserved
			return dst.Object == "a" && dst.ReplaceMetadata &&
				dst.UserMetadata["song_id"] == "s1" &&
				dst.UserMetadata["type"] == "remastered" &&
				dst.UserMetadata["Content-Type"] == "audio/mpeg"
		}),
		mock.MatchedBy(func(src minio.CopySrcOptions) bool { return src.Object == "a" }),
	).Return(minio.UploadInfo{Key: "a"}, nil)

	info, err := provider.UpdateMetadata(context.Background(), "a", map[string]string{"type": "remastered"}, true)
	assert.NoError(t, err)
	assert.NotNil(t, info)
	mockClient.AssertExpectations(t)
}

func TestS3Provider_ListObjects(t *testing.T) {
	mockClient := new(mocks.Client)
	provider := newTestProvider(mockClient, storage.Config{})

	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "songs/s1/audio"}
	ch <- minio.ObjectInfo{Key: "songs/s1/manifest.json"}
	close(ch)

	mockClient.On("ListObjects", mock.Anything, "test-bucket",
		mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
			return opts.Prefix == "songs/s1" && opts.Recursive
		}),
	).Return((<-chan minio.ObjectInfo)(ch))

	var keys []string
	for key := range provider.ListObjects(context.Background(), "songs/s1") {
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"songs/s1/audio", "songs/s1/manifest.json"}, keys)
}

func TestS3Provider_BuildURL(t *testing.T) {
	t.Run("Signed", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		signed, _ := url.Parse("https://test-bucket.example.com/a?X-Amz-Signature=sig")
		mockClient.On("PresignedGetObject", mock.Anything, "test-bucket", "a", time.Hour, mock.Anything).
			Return(signed, nil)

		assert.Equal(t, signed.String(), provider.BuildURL(context.Background(), "a", time.Hour))
	})

	t.Run("SigningFailureDegrades", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("PresignedGetObject", mock.Anything, "test-bucket", "a", time.Hour, mock.Anything).
			Return(nil, errors.New("signing failed"))

		assert.Equal(t, "", provider.BuildURL(context.Background(), "a", time.Hour))
	})

	t.Run("PublicBase", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{PublicBaseURL: "https://cdn.example.com/"})

		assert.Equal(t, "https://cdn.example.com/a/b", provider.BuildURL(context.Background(), "a/b", 0))
	})

	t.Run("NoScheme", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		assert.Equal(t, "", provider.BuildURL(context.Background(), "a", 0))
	})
}

func TestS3Provider_CreatePresignedPost(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		postURL, _ := url.Parse("https://test-bucket.example.com")
		fields := map[string]string{"key": "a", "policy": "encoded"}
		mockClient.On("PresignedPostPolicy", mock.Anything, mock.Anything).Return(postURL, fields, nil)

		post := provider.CreatePresignedPost(context.Background(), "a", time.Hour, storage.PostOptions{
			ContentType: "image/jpeg",
			MaxSize:     10 * 1024 * 1024,
		})
		assert.NotNil(t, post)
		assert.Equal(t, postURL.String(), post.URL)
		assert.Equal(t, fields, post.Fields)
	})

	t.Run("SigningFailureDegrades", func(t *testing.T) {
		mockClient := new(mocks.Client)
		provider := newTestProvider(mockClient, storage.Config{})

		mockClient.On("PresignedPostPolicy", mock.Anything, mock.Anything).
			Return(nil, nil, errors.New("signing failed"))

		assert.Nil(t, provider.CreatePresignedPost(context.Background(), "a", time.Hour, storage.PostOptions{}))
	})
}
