package mediastore

import (
	"path"
	"strings"

	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
)

// Prefixes maps each media kind to a key prefix inside the bucket.
type Prefixes struct {
	Image string
	Video string
}

// DefaultPrefixes returns the standard "images/" and "videos/" layout.
func DefaultPrefixes() Prefixes {
	return Prefixes{Image: "images/", Video: "videos/"}
}

// For returns the prefix for kind.
func (p Prefixes) For(kind model.MediaKind) string {
	if kind == model.MediaKindVideo {
		return p.Video
	}
	return p.Image
}

// ObjectKey resolves an external ID to a bucket-relative key.
//
// IDs saved as full s3://bucket/key URLs are used as-is after the bucket is
// stripped. Bare IDs are placed under the kind's prefix, unless they already
// carry it.
func ObjectKey(p Prefixes, externalID string, kind model.MediaKind) string {
	if trimmed, ok := strings.CutPrefix(externalID, "s3://"); ok {
		if _, key, found := strings.Cut(trimmed, "/"); found {
			return key
		}
		return trimmed
	}
	prefix := p.For(kind)
	id := strings.TrimPrefix(externalID, "/")
	if prefix == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return path.Join(prefix, id)
}
