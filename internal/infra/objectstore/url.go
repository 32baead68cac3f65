// Package objectstore writes uploaded files to a bucket or the local disk.
package objectstore

import (
	"net/url"
	"strings"
)

const objectKeyPlaceholder = "{objectKey}"

// BuildAccessURL joins base and objectKey. base may carry an {objectKey}
// placeholder or end in a query string, in which case the whole key is query
// escaped. Otherwise each path segment is escaped on its own.
func BuildAccessURL(base, objectKey string) string {
	base = strings.TrimSpace(base)
	key := escapePath(strings.TrimLeft(objectKey, "/"))
	if base == "" {
		return key
	}
	if strings.Contains(base, objectKeyPlaceholder) {
		escaped := key
		if strings.Contains(base, "?") {
			escaped = url.QueryEscape(objectKey)
		}
		return strings.ReplaceAll(base, objectKeyPlaceholder, escaped)
	}
	if strings.Contains(base, "?") {
		return base + url.QueryEscape(objectKey)
	}
	return strings.TrimRight(base, "/") + "/" + key
}

func escapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
