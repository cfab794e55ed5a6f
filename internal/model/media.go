// Package model holds the records the reapers read and delete.
//
// Only the fields the reapers need are modeled; the rest of the social
// schema belongs to the API layer.
package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// MediaKind is the kind of media a story points at. It selects the resource
// kind used when deleting the object from the media store.
type MediaKind int

const (
	// MediaKindImage is the default for anything that is not a video.
	MediaKindImage MediaKind = iota
	// MediaKindVideo marks video stories.
	MediaKindVideo
)

// ParseMediaKind maps a stored media type to a MediaKind. Only "video"
// (case-insensitive) selects MediaKindVideo.
func ParseMediaKind(s string) MediaKind {
	if strings.EqualFold(strings.TrimSpace(s), "video") {
		return MediaKindVideo
	}
	return MediaKindImage
}

func (k MediaKind) String() string {
	if k == MediaKindVideo {
		return "video"
	}
	return "image"
}

// Value stores the kind as text.
func (k MediaKind) Value() (driver.Value, error) {
	return k.String(), nil
}

// Scan reads a text media type column.
func (k *MediaKind) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*k = MediaKindImage
	case string:
		*k = ParseMediaKind(v)
	case []byte:
		*k = ParseMediaKind(string(v))
	default:
		return fmt.Errorf("model: cannot scan %T into MediaKind", src)
	}
	return nil
}
