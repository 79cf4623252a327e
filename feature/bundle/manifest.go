package bundle

import (
	"context"
	"encoding/json"
	"io"

	"media-store/core/storage"
)

// Asset names the three slots of a media bundle.
type Asset string

const (
	AssetAudio Asset = "audio"
	AssetVideo Asset = "video"
	AssetArt   Asset = "art"
)

// Valid reports whether a is one of the three bundle slots.
func (a Asset) Valid() bool {
	switch a {
	case AssetAudio, AssetVideo, AssetArt:
		return true
	default:
		return false
	}
}

// defaultContentTypes are applied on bundle upload when the caller does not
// specify a type.
var defaultContentTypes = map[Asset]string{
	AssetAudio: "audio/mpeg",
	AssetVideo: "video/mp4",
	AssetArt:   "image/jpeg",
}

// Manifest is the durable JSON record of a bundle, stored at
// <prefix>/manifest.json. The links and keys maps always contain exactly the
// three asset slots, each present or null.
type Manifest struct {
	SongID     string             `json:"song_id"`
	UploadedAt int64              `json:"uploaded_at"`
	Bucket     string             `json:"bucket"`
	Prefix     string             `json:"prefix"`
	Links      map[Asset]*string  `json:"links"`
	Keys       map[Asset]*string  `json:"keys"`
	Metadata   map[string]string  `json:"metadata"`
	UploaderID string             `json:"uploader_id,omitempty"`
	// Versions and Etags hold provider tokens for optimistic integrity
	// checks by future readers.
	Versions map[Asset]*string `json:"versions"`
	Etags    map[Asset]*string `json:"etags"`
}

func emptySlots() map[Asset]*string {
	return map[Asset]*string{AssetAudio: nil, AssetVideo: nil, AssetArt: nil}
}

// newManifest returns a manifest with all slots empty.
func newManifest(songID, bucket, prefix string) *Manifest {
	return &Manifest{
		SongID:   songID,
		Bucket:   bucket,
		Prefix:   prefix,
		Links:    emptySlots(),
		Keys:     emptySlots(),
		Metadata: map[string]string{},
		Versions: emptySlots(),
		Etags:    emptySlots(),
	}
}

// ensureSlots repairs a decoded manifest so that every slot map exists with
// all three asset entries, preserving any values already present.
func (m *Manifest) ensureSlots() {
	for _, slots := range []*map[Asset]*string{&m.Links, &m.Keys, &m.Versions, &m.Etags} {
		if *slots == nil {
			*slots = emptySlots()
			continue
		}
		for _, a := range []Asset{AssetAudio, AssetVideo, AssetArt} {
			if _, ok := (*slots)[a]; !ok {
				(*slots)[a] = nil
			}
		}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
}

// readManifest loads and decodes the manifest at key. Any read or parse
// failure yields a fresh empty-slots manifest instead of an error, so a
// replace never fails on a missing or corrupt manifest.
func (s *Service) readManifest(ctx context.Context, key, songID, prefix string) *Manifest {
	body, err := s.provider.OpenStream(ctx, key)
	if err != nil {
		return newManifest(songID, s.provider.Bucket(), prefix)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return newManifest(songID, s.provider.Bucket(), prefix)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return newManifest(songID, s.provider.Bucket(), prefix)
	}
	m.ensureSlots()
	return &m
}

// putJSON marshals payload and stores it at key as application/json.
func (s *Service) putJSON(ctx context.Context, key string, payload any, metadata map[string]string) (*storage.UploadResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return s.provider.UploadFile(ctx, key, storage.FromBytes(body), storage.UploadOptions{
		ContentType: "application/json",
		Metadata:    metadata,
	})
}
