package storage

import (
	"context"
	"time"

	"matchchat/backend/internal/models"

	"github.com/pkg/errors"
)

// ErrRoomOpen is returned by AcceptChatRequest when the pair already has a
// room that is still open.
var ErrRoomOpen = errors.New("pair already has an open room")

// Storage is the durable store behind the ledger and the chat lifecycle.
// Lookups return (nil, nil) when the record does not exist.
type Storage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	ListUsersWithPreferences(ctx context.Context) ([]models.User, error)

	// The set mutators change one column of the user in place. A concurrent
	// ConfirmMutual appending to Matches is never overwritten by them.
	AddBlockedUser(ctx context.Context, userID, targetID string) error
	RemoveBlockedUser(ctx context.Context, userID, targetID string) error
	AddReportedUser(ctx context.Context, userID, targetID string) error

	// UpsertInteraction creates or overwrites the record keyed by
	// (FromUserID, ToUserID). A record already mutual stays mutual.
	UpsertInteraction(ctx context.Context, rec *models.InteractionRecord) error
	GetInteraction(ctx context.Context, fromUserID, toUserID string) (*models.InteractionRecord, error)
	ListInteractions(ctx context.Context, fromUserID string) ([]models.InteractionRecord, error)
	// ConfirmMutual flips both directional records of the pair to mutual when
	// both are likes, and adds each user to the other's matched set. It is
	// serialized per unordered pair; transitioned is true for exactly one caller.
	ConfirmMutual(ctx context.Context, userA, userB string) (mutual, transitioned bool, err error)

	UpsertChatRequest(ctx context.Context, req *models.ChatRequest) error
	GetChatRequest(ctx context.Context, senderID, receiverID string) (*models.ChatRequest, error)
	// AcceptChatRequest moves a pending request to accepted and stores room in
	// the same transaction. It reports false when no pending request exists and
	// fails with ErrRoomOpen when the pair has a room unexpired at room.StartDate.
	// Accepts for the same unordered pair are serialized.
	AcceptChatRequest(ctx context.Context, senderID, receiverID string, room *models.ChatRoom) (bool, error)

	GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error)
	GetLatestRoomForPair(ctx context.Context, userA, userB string) (*models.ChatRoom, error)

	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, roomID string) ([]models.Message, error)

	// MarkNotified sets a dedup marker and reports whether it was newly set.
	MarkNotified(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
