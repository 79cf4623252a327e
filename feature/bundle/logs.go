package bundle

import (
	"context"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// uploadLogEntry is the write-once audit record stored next to each uploaded
// object. It is never read back by this subsystem.
type uploadLogEntry struct {
	SongID      string `json:"song_id"`
	UserID      string `json:"user_id,omitempty"`
	Key         string `json:"key"`
	Status      string `json:"status"`
	SizeBytes   *int64 `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// writeUploadLog stores one audit record for the object at key, named with a
// millisecond timestamp to avoid collisions. Best-effort: a failure is logged
// and swallowed so it never rolls back the asset upload it records.
func (s *Service) writeUploadLog(ctx context.Context, log *zap.Logger, songID, userID, key string) {
	entry := uploadLogEntry{
		SongID:    songID,
		UserID:    userID,
		Key:       key,
		Status:    string(s.provider.GetObjectStatus(ctx, key)),
		Timestamp: time.Now().Unix(),
	}
	if info := s.provider.GetObjectInfo(ctx, key); info != nil {
		entry.Key = info.Key
		entry.SizeBytes = info.SizeBytes
		entry.ContentType = info.ContentType
		entry.Checksum = info.Checksum
	}

	logKey := path.Dir(key) + "/upload_log_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + ".json"
	if _, err := s.putJSON(ctx, logKey, entry, map[string]string{"song_id": songID, "type": "upload_log"}); err != nil {
		log.Warn("upload log write failed", zap.String("key", key), zap.Error(err))
		return
	}
	log.Info("wrote upload log", zap.String("key", key), zap.String("log_key", logKey))
}
