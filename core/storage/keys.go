package storage

import "strings"

// ResolveKey derives the fully-qualified object key for a logical key. When a
// base path is configured the result is "basePath/key" with surrounding
// slashes trimmed; otherwise the trimmed key itself.
func ResolveKey(basePath, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	key = strings.Trim(key, "/")
	base := strings.Trim(basePath, "/")
	if base != "" {
		return base + "/" + key, nil
	}
	return key, nil
}
