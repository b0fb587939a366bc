package models

import (
	"slices"

	"matchchat/backend/internal/preferences"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the slice of a profile the matching and chat core reads. The profile
// subsystem owns the record; the core only appends to Matches.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	DisplayName string `gorm:"type:text" json:"displayName"`
	Bio         string `gorm:"type:text" json:"bio"`
	Email       string `gorm:"type:text;index" json:"-"`

	Interests pq.StringArray `gorm:"type:text[]" json:"interests"`
	Photos    pq.StringArray `gorm:"type:text[]" json:"photos"`

	PartnerPreferences datatypes.JSONType[preferences.Map] `gorm:"type:jsonb" json:"partnerPreferences"`

	// Matches is the set of users with a mutual like.
	Matches pq.StringArray `gorm:"type:text[]" json:"-"`

	BlockedUserIDs  pq.StringArray `gorm:"type:text[]" json:"-"`
	ReportedUserIDs pq.StringArray `gorm:"type:text[]" json:"-"`
}

// BeforeCreate generates a UUID when the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Preferences returns the decoded partner-preference answers.
func (u *User) Preferences() preferences.Map {
	return u.PartnerPreferences.Data()
}

// HasPreferences reports whether the profile carries at least one answer.
func (u *User) HasPreferences() bool {
	return !u.Preferences().IsEmpty()
}

// HasBlocked reports whether u blocked other.
func (u *User) HasBlocked(other string) bool {
	return slices.Contains(u.BlockedUserIDs, other)
}

// IsMatchedWith reports whether other is already in the matched set.
func (u *User) IsMatchedWith(other string) bool {
	return slices.Contains(u.Matches, other)
}
