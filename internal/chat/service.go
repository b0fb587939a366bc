// Package chat implements the request, accept and room lifecycle for matched
// users, including the lazy four-day expiry.
package chat

import (
	"context"
	"fmt"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/config"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/metrics"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/notify"
	"matchchat/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MatchChecker reports whether two users liked each other.
type MatchChecker interface {
	IsMutual(ctx context.Context, a, b string) (bool, error)
}

// RequestStatus describes the most recent request between two users.
type RequestStatus struct {
	Status     models.ChatRequestStatus `json:"status"`
	SenderID   string                   `json:"senderId,omitempty"`
	ReceiverID string                   `json:"receiverId,omitempty"`
}

type Service struct {
	Storage  storage.Storage
	Matches  MatchChecker
	Notifier notify.Notifier
	Now      func() time.Time
	RoomTTL  time.Duration
}

func NewService(store storage.Storage, matches MatchChecker, notifier notify.Notifier) *Service {
	return &Service{
		Storage:  store,
		Matches:  matches,
		Notifier: notifier,
		Now:      time.Now,
		RoomTTL:  config.RoomLifetime,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) roomTTL() time.Duration {
	if s.RoomTTL <= 0 {
		return config.RoomLifetime
	}
	return s.RoomTTL
}

// SendRequest opens (or re-opens) a pending request from sender to receiver.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*models.ChatRequest, error) {
	if senderID == "" || receiverID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "user ids are required")
	}
	if senderID == receiverID {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "cannot request a chat with yourself")
	}

	mutual, err := s.Matches.IsMutual(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return nil, errors.Wrap(apperr.ErrForbidden, "users are not a mutual match")
	}

	room, err := s.Storage.GetLatestRoomForPair(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "get room")
	}
	if room != nil && !room.Expired(s.now()) {
		return nil, errors.Wrap(apperr.ErrConflict, "a chat room is already open")
	}

	existing, err := s.Storage.GetChatRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "get chat request")
	}
	alreadyPending := existing != nil && existing.Status == models.RequestPending

	req := &models.ChatRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.RequestPending,
		Timestamp:  s.now(),
	}
	if err := s.Storage.UpsertChatRequest(ctx, req); err != nil {
		return nil, errors.Wrap(err, "upsert chat request")
	}

	if !alreadyPending {
		metrics.ChatRequests.Inc()
		notify.Emit(ctx, s.Notifier, notify.Notification{
			Kind: notify.KindChatRequest, UserID: receiverID, ActorID: senderID, CreatedAt: req.Timestamp,
		})
	}
	return req, nil
}

// AcceptRequest lets receiver accept the pending request from sender and
// opens the room.
func (s *Service) AcceptRequest(ctx context.Context, receiverID, senderID string) (*models.ChatRoom, error) {
	if senderID == "" || receiverID == "" || senderID == receiverID {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "invalid request pair")
	}

	now := s.now()
	room := models.NewChatRoom(uuid.NewString(), senderID, receiverID, now, s.roomTTL())
	ok, err := s.Storage.AcceptChatRequest(ctx, senderID, receiverID, room)
	if errors.Is(err, storage.ErrRoomOpen) {
		return nil, errors.Wrap(apperr.ErrConflict, "a chat room is already open")
	}
	if err != nil {
		return nil, errors.Wrap(err, "accept chat request")
	}
	if !ok {
		return nil, errors.Wrap(apperr.ErrNotFound, "no pending chat request")
	}

	metrics.RoomsCreated.Inc()
	logger.Info("chat room opened",
		zap.String("room", room.RoomID),
		zap.Time("expiresAt", room.ExpiresAt))
	notify.Emit(ctx, s.Notifier, notify.Notification{
		Kind: notify.KindChatAccepted, UserID: senderID, ActorID: receiverID, RoomID: room.RoomID, CreatedAt: now,
	})
	return room, nil
}

func (s *Service) acceptedBetween(ctx context.Context, a, b string) (bool, error) {
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		req, err := s.Storage.GetChatRequest(ctx, dir[0], dir[1])
		if err != nil {
			return false, errors.Wrap(err, "get chat request")
		}
		if req != nil && req.Status == models.RequestAccepted {
			return true, nil
		}
	}
	return false, nil
}

// GetRoom returns the pair's most recent room and whether it has expired.
// Reading an open room sends the daily expiry warnings. An open room needs an
// accepted request; an expired one stays readable while a re-request is
// pending, since that request replaced the accepted one.
func (s *Service) GetRoom(ctx context.Context, userID, otherID string) (*models.ChatRoom, bool, error) {
	if userID == "" || otherID == "" || userID == otherID {
		return nil, false, errors.Wrap(apperr.ErrInvalidOperation, "invalid user pair")
	}

	room, err := s.Storage.GetLatestRoomForPair(ctx, userID, otherID)
	if err != nil {
		return nil, false, errors.Wrap(err, "get room")
	}
	now := s.now()
	if room != nil && room.Expired(now) {
		return room, true, nil
	}

	accepted, err := s.acceptedBetween(ctx, userID, otherID)
	if err != nil {
		return nil, false, err
	}
	if !accepted {
		return nil, false, errors.Wrap(apperr.ErrForbidden, "no accepted chat request")
	}
	if room == nil {
		return nil, false, errors.Wrap(apperr.ErrNotFound, "chat room not found")
	}

	s.warnExpiry(ctx, room, now)
	return room, false, nil
}

// DaysRemaining is the number of started days left before expiresAt.
func DaysRemaining(room *models.ChatRoom, now time.Time) int {
	left := room.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	return int((left + day - 1) / day)
}

func expiryMarker(roomID, userID string, days int) string {
	return fmt.Sprintf("expiry_warning:%s:%s:%d", roomID, userID, days)
}

func (s *Service) warnExpiry(ctx context.Context, room *models.ChatRoom, now time.Time) {
	days := DaysRemaining(room, now)
	if days < 1 || days > config.ExpiryWarningDays {
		return
	}
	for _, member := range room.UserIDs() {
		fresh, err := s.Storage.MarkNotified(ctx, expiryMarker(room.RoomID, member, days), config.ExpiryMarkerTTL)
		if err != nil {
			logger.Warn("expiry warning marker failed", zap.String("room", room.RoomID), zap.Error(err))
			continue
		}
		if !fresh {
			continue
		}
		notify.Emit(ctx, s.Notifier, notify.Notification{
			Kind:          notify.KindExpiryWarning,
			UserID:        member,
			RoomID:        room.RoomID,
			DaysRemaining: days,
			CreatedAt:     now,
		})
	}
}

// RequestStatus reports the latest request in either direction.
func (s *Service) RequestStatus(ctx context.Context, userID, otherID string) (RequestStatus, error) {
	if userID == "" || otherID == "" || userID == otherID {
		return RequestStatus{}, errors.Wrap(apperr.ErrInvalidOperation, "invalid user pair")
	}

	var latest *models.ChatRequest
	for _, dir := range [][2]string{{userID, otherID}, {otherID, userID}} {
		req, err := s.Storage.GetChatRequest(ctx, dir[0], dir[1])
		if err != nil {
			return RequestStatus{}, errors.Wrap(err, "get chat request")
		}
		if req != nil && (latest == nil || req.Timestamp.After(latest.Timestamp)) {
			latest = req
		}
	}
	if latest == nil {
		return RequestStatus{Status: models.RequestNone}, nil
	}
	return RequestStatus{Status: latest.Status, SenderID: latest.SenderID, ReceiverID: latest.ReceiverID}, nil
}

// Messages returns the room history, oldest first. History stays readable
// after expiry.
func (s *Service) Messages(ctx context.Context, userID, roomID string) ([]models.Message, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, errors.Wrap(apperr.ErrForbidden, "not a room member")
	}
	msgs, err := s.Storage.GetMessages(ctx, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "get messages")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *Service) room(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	if roomID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "room id is required")
	}
	room, err := s.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "get room")
	}
	if room == nil {
		return nil, errors.Wrap(apperr.ErrNotFound, "chat room not found")
	}
	return room, nil
}

// AuthorizeRoom checks that userID may write to roomID right now.
func (s *Service) AuthorizeRoom(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, errors.Wrap(apperr.ErrForbidden, "not a room member")
	}
	if room.Expired(s.now()) {
		return nil, errors.Wrap(apperr.ErrRoomLocked, roomID)
	}
	return room, nil
}

// PostMessage validates and persists one message from userID.
func (s *Service) PostMessage(ctx context.Context, roomID, userID, content string) (*models.Message, error) {
	if _, err := s.AuthorizeRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:    roomID,
		SenderID:  userID,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := s.Storage.SaveMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "save message")
	}
	metrics.MessagesPersisted.Inc()
	return msg, nil
}
