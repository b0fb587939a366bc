package config

import "time"

const (
	// Suggestions
	SuggestionLimit     = 20
	MinMatchCount       = 8
	PublicInterestLimit = 5

	// Chat room
	RoomLifetime      = 4 * 24 * time.Hour
	ExpiryWarningDays = 4
	ExpiryMarkerTTL   = RoomLifetime + 24*time.Hour

	// Messages
	MaxMessageLength = 1000
	MessageRate      = 5
	MessageBurst     = 10

	// Credentials
	DefaultTokenTTL = 72 * time.Hour
)
