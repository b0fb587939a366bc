package models

import "time"

type InteractionAction string

const (
	ActionLike InteractionAction = "like"
	ActionPass InteractionAction = "pass"
)

func (a InteractionAction) Valid() bool {
	return a == ActionLike || a == ActionPass
}

type InteractionStatus string

const (
	StatusPending InteractionStatus = "pending"
	StatusMutual  InteractionStatus = "mutual"
)

// InteractionRecord is one directed rating. At most one record exists per
// ordered (FromUserID, ToUserID) pair.
type InteractionRecord struct {
	ID         uint              `gorm:"primaryKey" json:"-"`
	FromUserID string            `gorm:"type:text;not null;uniqueIndex:ux_interaction_pair,priority:1" json:"fromUserId"`
	ToUserID   string            `gorm:"type:text;not null;uniqueIndex:ux_interaction_pair,priority:2;index" json:"toUserId"`
	Action     InteractionAction `gorm:"type:varchar(8);not null" json:"action"`
	Status     InteractionStatus `gorm:"type:varchar(8);not null;default:pending" json:"status"`
	Timestamp  time.Time         `gorm:"not null" json:"timestamp"`
}

// PairKey is the order-independent key of a user pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
