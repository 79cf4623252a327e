package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-store/core/logger"
	"media-store/core/storage"

	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a required identifier or payload is
// missing. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid bundle input")

// DefaultURLExpiry is applied when an input leaves URLExpiry unset.
const DefaultURLExpiry = time.Hour

// Service orchestrates media bundle uploads against a storage provider. It is
// the sole writer of bundle manifests; the provider itself holds no state.
type Service struct {
	provider storage.Provider
	logger   *zap.Logger
}

// NewService creates a new bundle service.
func NewService(provider storage.Provider, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// UploadInput describes one bundle upload. Audio is required; Video and Art
// are optional.
type UploadInput struct {
	SongID           string
	Audio            storage.Payload
	AudioContentType string
	Video            storage.Payload
	VideoContentType string
	Art              storage.Payload
	ArtContentType   string
	// Prefix overrides the default "songs/<song id>" key prefix.
	Prefix     string
	Metadata   map[string]string
	UploaderID string
	// URLExpiry bounds signed link lifetime; zero means DefaultURLExpiry.
	URLExpiry time.Duration
}

// ReplaceInput describes the replacement of a single bundle asset.
type ReplaceInput struct {
	SongID      string
	Asset       Asset
	File        storage.Payload
	ContentType string
	Metadata    map[string]string
	UploaderID  string
	Prefix      string
	URLExpiry   time.Duration
}

// Result is the aggregate outcome of a bundle operation. Empty strings mean
// "absent": no such asset, or no URL scheme configured.
type Result struct {
	SongID      string
	AudioKey    string
	VideoKey    string
	ArtKey      string
	AudioURL    string
	VideoURL    string
	ArtURL      string
	ManifestKey string
	ManifestURL string
}

// Upload stores audio plus optional video and artwork under a song-specific
// prefix, persists a manifest describing the bundle, and writes best-effort
// upload logs. Steps run strictly in order (audio, video, art, manifest,
// logs); there is no rollback, so a failure leaves the bundle in its partial
// state, observable through the manifest and object info.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Result, error) {
	if in.SongID == "" {
		return nil, fmt.Errorf("%w: song id is required", ErrInvalidInput)
	}
	if in.Audio.Empty() {
		return nil, fmt.Errorf("%w: audio payload is required", ErrInvalidInput)
	}

	log := logger.WithOperation(s.logger, "upload_media_bundle").With(zap.String("song_id", in.SongID))
	prefix := normalizePrefix(in.Prefix, in.SongID)
	expiry := in.URLExpiry
	if expiry == 0 {
		expiry = DefaultURLExpiry
	}

	audioUp, audioURL, err := s.uploadAsset(ctx, prefix, AssetAudio, in.Audio, in.AudioContentType, in.Metadata, in.SongID, expiry)
	if err != nil {
		return nil, err
	}

	var videoUp, artUp *storage.UploadResult
	var videoURL, artURL string
	if !in.Video.Empty() {
		videoUp, videoURL, err = s.uploadAsset(ctx, prefix, AssetVideo, in.Video, in.VideoContentType, in.Metadata, in.SongID, expiry)
		if err != nil {
			return nil, err
		}
	}
	if !in.Art.Empty() {
		artUp, artURL, err = s.uploadAsset(ctx, prefix, AssetArt, in.Art, in.ArtContentType, in.Metadata, in.SongID, expiry)
		if err != nil {
			return nil, err
		}
	}

	manifest := newManifest(in.SongID, s.provider.Bucket(), prefix)
	manifest.UploadedAt = time.Now().Unix()
	if in.Metadata != nil {
		manifest.Metadata = in.Metadata
	}
	manifest.UploaderID = in.UploaderID
	setSlot(manifest, AssetAudio, audioUp, audioURL)
	setSlot(manifest, AssetVideo, videoUp, videoURL)
	setSlot(manifest, AssetArt, artUp, artURL)

	manifestKey := prefix + "/manifest.json"
	manifestUp, err := s.putJSON(ctx, manifestKey, manifest, map[string]string{"song_id": in.SongID, "type": "manifest"})
	if err != nil {
		return nil, err
	}
	manifestURL := s.resolveURL(ctx, manifestKey, expiry)

	s.writeUploadLog(ctx, log, in.SongID, in.UploaderID, prefix+"/"+string(AssetAudio))
	if videoUp != nil {
		s.writeUploadLog(ctx, log, in.SongID, in.UploaderID, prefix+"/"+string(AssetVideo))
	}
	if artUp != nil {
		s.writeUploadLog(ctx, log, in.SongID, in.UploaderID, prefix+"/"+string(AssetArt))
	}

	result := &Result{
		SongID:      in.SongID,
		AudioKey:    audioUp.Key,
		AudioURL:    audioURL,
		ManifestKey: manifestUp.Key,
		ManifestURL: manifestURL,
	}
	if videoUp != nil {
		result.VideoKey = videoUp.Key
		result.VideoURL = videoURL
	}
	if artUp != nil {
		result.ArtKey = artUp.Key
		result.ArtURL = artURL
	}
	return result, nil
}

// ReplaceAsset overwrites one asset of an existing bundle and merges the
// change into the manifest. A missing or unreadable manifest is synthesized
// from scratch rather than failing the operation. The returned result is
// built from the manifest's slots, so it always reflects the durable state.
func (s *Service) ReplaceAsset(ctx context.Context, in ReplaceInput) (*Result, error) {
	if in.SongID == "" {
		return nil, fmt.Errorf("%w: song id is required", ErrInvalidInput)
	}
	if !in.Asset.Valid() {
		return nil, fmt.Errorf("%w: unknown asset %q", ErrInvalidInput, in.Asset)
	}
	if in.File.Empty() {
		return nil, fmt.Errorf("%w: file payload is required", ErrInvalidInput)
	}

	log := logger.WithOperation(s.logger, "replace_media_asset").With(
		zap.String("song_id", in.SongID),
		zap.String("asset", string(in.Asset)),
	)
	prefix := normalizePrefix(in.Prefix, in.SongID)
	expiry := in.URLExpiry
	if expiry == 0 {
		expiry = DefaultURLExpiry
	}

	key := prefix + "/" + string(in.Asset)
	up, err := s.provider.UploadFile(ctx, key, in.File, storage.UploadOptions{
		ContentType: in.ContentType,
		Metadata:    tagged(in.Metadata, in.SongID, string(in.Asset)),
	})
	if err != nil {
		return nil, err
	}

	manifestKey := prefix + "/manifest.json"
	manifest := s.readManifest(ctx, manifestKey, in.SongID, prefix)
	manifest.Keys[in.Asset] = &up.Key
	manifest.Links[in.Asset] = nilable(s.resolveURL(ctx, key, expiry))
	manifest.UploadedAt = time.Now().Unix()
	for k, v := range in.Metadata {
		manifest.Metadata[k] = v
	}
	if in.UploaderID != "" {
		manifest.UploaderID = in.UploaderID
	}

	manifestUp, err := s.putJSON(ctx, manifestKey, manifest, map[string]string{"song_id": in.SongID, "type": "manifest"})
	if err != nil {
		return nil, err
	}
	s.writeUploadLog(ctx, log, in.SongID, in.UploaderID, key)

	return &Result{
		SongID:      in.SongID,
		AudioKey:    deref(manifest.Keys[AssetAudio]),
		VideoKey:    deref(manifest.Keys[AssetVideo]),
		ArtKey:      deref(manifest.Keys[AssetArt]),
		AudioURL:    deref(manifest.Links[AssetAudio]),
		VideoURL:    deref(manifest.Links[AssetVideo]),
		ArtURL:      deref(manifest.Links[AssetArt]),
		ManifestKey: manifestUp.Key,
		ManifestURL: s.resolveURL(ctx, manifestKey, expiry),
	}, nil
}

// uploadAsset stores one asset at <prefix>/<asset> with the song and asset
// tags, then resolves its access URL.
func (s *Service) uploadAsset(ctx context.Context, prefix string, asset Asset, payload storage.Payload, contentType string, metadata map[string]string, songID string, expiry time.Duration) (*storage.UploadResult, string, error) {
	if contentType == "" {
		contentType = defaultContentTypes[asset]
	}
	key := prefix + "/" + string(asset)
	up, err := s.provider.UploadFile(ctx, key, payload, storage.UploadOptions{
		ContentType: contentType,
		Metadata:    tagged(metadata, songID, string(asset)),
	})
	if err != nil {
		return nil, "", err
	}
	return up, s.resolveURL(ctx, key, expiry), nil
}

// resolveURL prefers a signed URL, falls back to the public-base form, and
// returns "" when neither is available.
func (s *Service) resolveURL(ctx context.Context, key string, expiry time.Duration) string {
	if u := s.provider.BuildURL(ctx, key, expiry); u != "" {
		return u
	}
	return s.provider.BuildURL(ctx, key, 0)
}

func normalizePrefix(prefix, songID string) string {
	if prefix != "" {
		return strings.Trim(prefix, "/")
	}
	return "songs/" + songID
}

// tagged copies metadata and adds the song_id and type tags.
func tagged(metadata map[string]string, songID, assetType string) map[string]string {
	out := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["song_id"] = songID
	out["type"] = assetType
	return out
}

func setSlot(m *Manifest, asset Asset, up *storage.UploadResult, link string) {
	if up == nil {
		return
	}
	m.Keys[asset] = &up.Key
	m.Links[asset] = nilable(link)
	m.Versions[asset] = nilable(up.VersionID)
	m.Etags[asset] = nilable(up.ETag)
}

func nilable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
