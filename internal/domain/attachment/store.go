package attachment

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind separates photos from other documents in the object layout.
type Kind string

const (
	KindPhoto    Kind = "photos"
	KindDocument Kind = "documents"
)

var ErrEmptyUpload = fmt.Errorf("upload is empty")

// ObjectStore writes blobs and returns a URL that serves them.
type ObjectStore interface {
	Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

// ObjectPath builds reports/<reportID>/<kind>/<unix millis>-<random><ext>.
// Only the lowercased extension of name is kept, so two uploads of the same
// file in the same millisecond still get distinct paths and nothing in name
// can escape the report prefix.
func ObjectPath(reportID string, kind Kind, name string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	if !plainExt(ext) {
		ext = ""
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("reports/%s/%s/%s-%s%s", reportID, kind, strconv.FormatInt(at.UnixMilli(), 10), suffix, ext)
}

const maxExtLen = 10

func plainExt(ext string) bool {
	if len(ext) < 2 || len(ext) > maxExtLen {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
