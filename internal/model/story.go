package model

import "time"

// StoryRetention is how long an unarchived story lives.
const StoryRetention = 24 * time.Hour

// Story column names usable in record store filters.
const (
	StoryFieldID        = "id"
	StoryFieldOwnerID   = "owner_id"
	StoryFieldCreatedAt = "created_at"
	StoryFieldArchived  = "archived"
	StoryFieldMediaKind = "media_type"
)

// Story is an ephemeral media post.
type Story struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	OwnerID         string    `gorm:"index;type:varchar(64);not null"`
	MediaURL        string    `gorm:"type:text;not null"`
	MediaExternalID string    `gorm:"column:media_public_id;type:text;not null"`
	MediaKind       MediaKind `gorm:"column:media_type;type:varchar(16);not null;default:'image'"`
	CreatedAt       time.Time `gorm:"index;not null"`
	Archived        bool      `gorm:"index;not null;default:false"`
}

// TableName pins the table name used by the record store.
func (Story) TableName() string { return "stories" }

// RecordID returns the story's primary key.
func (s Story) RecordID() string { return s.ID }

// Field returns the value of a filterable column.
func (s Story) Field(name string) (any, bool) {
	switch name {
	case StoryFieldID:
		return s.ID, true
	case StoryFieldOwnerID:
		return s.OwnerID, true
	case StoryFieldCreatedAt:
		return s.CreatedAt, true
	case StoryFieldArchived:
		return s.Archived, true
	case StoryFieldMediaKind:
		return s.MediaKind.String(), true
	}
	return nil, false
}

// IsReapable reports whether the story is past retention at now.
// Archived stories are never reapable.
func (s Story) IsReapable(now time.Time, retention time.Duration) bool {
	return !s.Archived && now.Sub(s.CreatedAt) > retention
}
