package model

import "time"

// Account column names usable in record store filters.
const (
	AccountFieldID                  = "id"
	AccountFieldUsername            = "username"
	AccountFieldDeletionScheduled   = "deletion_is_scheduled"
	AccountFieldDeletionScheduledAt = "deletion_scheduled_at"
)

// DeletionSchedule is the owner-requested deletion of an account.
type DeletionSchedule struct {
	IsScheduled bool       `gorm:"column:is_scheduled;not null;default:false"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at"`
}

// Account is the subset of a user the account reaper needs.
type Account struct {
	ID               string           `gorm:"primaryKey;type:varchar(64)"`
	Username         string           `gorm:"uniqueIndex;type:varchar(64);not null"`
	Name             string           `gorm:"type:text"`
	Email            string           `gorm:"type:text;not null"`
	DeletionSchedule DeletionSchedule `gorm:"embedded;embeddedPrefix:deletion_"`
}

// TableName pins the table name used by the record store.
func (Account) TableName() string { return "accounts" }

// RecordID returns the account's primary key.
func (a Account) RecordID() string { return a.ID }

// Field returns the value of a filterable column. A nil scheduled time is
// reported as absent so that comparisons against it never match.
func (a Account) Field(name string) (any, bool) {
	switch name {
	case AccountFieldID:
		return a.ID, true
	case AccountFieldUsername:
		return a.Username, true
	case AccountFieldDeletionScheduled:
		return a.DeletionSchedule.IsScheduled, true
	case AccountFieldDeletionScheduledAt:
		if a.DeletionSchedule.ScheduledAt == nil {
			return nil, false
		}
		return *a.DeletionSchedule.ScheduledAt, true
	}
	return nil, false
}

// IsDue reports whether the account's scheduled deletion has arrived.
func (a Account) IsDue(now time.Time) bool {
	s := a.DeletionSchedule
	return s.IsScheduled && s.ScheduledAt != nil && !s.ScheduledAt.After(now)
}
