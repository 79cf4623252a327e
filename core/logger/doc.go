// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production).
//
// # Operation Awareness
//
// Storage operations can span several network calls. The WithOperation helper
// attaches the operation name and a generated operation_id to the logger, so
// all records emitted on behalf of one upload or replace can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("upload started")
//
//	// In a bundle operation:
//	l := logger.WithOperation(log, "upload_media_bundle")
//	l.Error("manifest write failed", zap.Error(err))
package logger
