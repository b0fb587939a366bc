package storage

import (
	"context"
	"time"

	"matchchat/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the PostgreSQL (gorm) + Redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates the tables this service owns.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.InteractionRecord{},
		&models.ChatRequest{},
		&models.ChatRoom{},
		&models.Message{},
		&models.NotificationMarker{},
	)
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", userID)
	}
	return &user, nil
}

func (s *Service) GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "get users by ids")
	}
	return users, nil
}

func (s *Service) ListUsersWithPreferences(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Where("partner_preferences IS NOT NULL").
		Where("partner_preferences::text NOT IN ('null', '{}')").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "list users with preferences")
	}
	return users, nil
}

func (s *Service) AddBlockedUser(ctx context.Context, userID, targetID string) error {
	return addToSet(s.DB.WithContext(ctx), userID, "blocked_user_ids", targetID)
}

func (s *Service) RemoveBlockedUser(ctx context.Context, userID, targetID string) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("blocked_user_ids", gorm.Expr("array_remove(COALESCE(blocked_user_ids, '{}'), ?)", targetID)).Error
	return errors.Wrapf(err, "remove %s from blocked_user_ids of %s", targetID, userID)
}

func (s *Service) AddReportedUser(ctx context.Context, userID, targetID string) error {
	return addToSet(s.DB.WithContext(ctx), userID, "reported_user_ids", targetID)
}

// addToSet appends member to a text[] column unless it is already present.
func addToSet(db *gorm.DB, userID, column, member string) error {
	err := db.Model(&models.User{}).
		Where("id = ?", userID).
		Where("NOT (? = ANY(COALESCE("+column+", '{}')))", member).
		Update(column, gorm.Expr("array_append(COALESCE("+column+", '{}'), ?)", member)).Error
	return errors.Wrapf(err, "add %s to %s of %s", member, column, userID)
}

// lockPair takes a transaction-scoped advisory lock on the unordered pair.
// scope keeps unrelated critical sections of the same pair apart.
func lockPair(tx *gorm.DB, scope, userA, userB string) error {
	err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", scope+":"+models.PairKey(userA, userB)).Error
	return errors.Wrap(err, "lock pair")
}

func (s *Service) UpsertInteraction(ctx context.Context, rec *models.InteractionRecord) error {
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"action":    rec.Action,
			"timestamp": rec.Timestamp,
			"status": gorm.Expr("CASE WHEN interaction_records.status = ? THEN interaction_records.status ELSE ? END",
				models.StatusMutual, models.StatusPending),
		}),
	}).Create(rec).Error
	if err != nil {
		return errors.Wrapf(err, "upsert interaction %s -> %s", rec.FromUserID, rec.ToUserID)
	}
	return nil
}

func (s *Service) GetInteraction(ctx context.Context, fromUserID, toUserID string) (*models.InteractionRecord, error) {
	return getInteraction(s.DB.WithContext(ctx), fromUserID, toUserID)
}

func getInteraction(db *gorm.DB, fromUserID, toUserID string) (*models.InteractionRecord, error) {
	var rec models.InteractionRecord
	err := db.Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get interaction %s -> %s", fromUserID, toUserID)
	}
	return &rec, nil
}

func (s *Service) ListInteractions(ctx context.Context, fromUserID string) ([]models.InteractionRecord, error) {
	var recs []models.InteractionRecord
	err := s.DB.WithContext(ctx).
		Where("from_user_id = ?", fromUserID).
		Order("timestamp desc").
		Find(&recs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list interactions of %s", fromUserID)
	}
	return recs, nil
}

func (s *Service) ConfirmMutual(ctx context.Context, userA, userB string) (mutual, transitioned bool, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes concurrent confirmations of the same pair until commit.
		if err := lockPair(tx, "mutual", userA, userB); err != nil {
			return err
		}

		forward, err := getInteraction(tx, userA, userB)
		if err != nil {
			return err
		}
		reverse, err := getInteraction(tx, userB, userA)
		if err != nil {
			return err
		}
		if forward == nil || reverse == nil {
			return nil
		}
		if forward.Status == models.StatusMutual && reverse.Status == models.StatusMutual {
			mutual = true
			return nil
		}
		if forward.Action != models.ActionLike || reverse.Action != models.ActionLike {
			return nil
		}

		res := tx.Model(&models.InteractionRecord{}).
			Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", userA, userB, userB, userA).
			Update("status", models.StatusMutual)
		if res.Error != nil {
			return errors.Wrap(res.Error, "mark pair mutual")
		}
		if err := appendMatch(tx, userA, userB); err != nil {
			return err
		}
		if err := appendMatch(tx, userB, userA); err != nil {
			return err
		}
		mutual, transitioned = true, true
		return nil
	})
	if err != nil {
		return false, false, errors.Wrapf(err, "confirm mutual %s <-> %s", userA, userB)
	}
	return mutual, transitioned, nil
}

func appendMatch(tx *gorm.DB, userID, matchID string) error {
	return addToSet(tx, userID, "matches", matchID)
}

func (s *Service) UpsertChatRequest(ctx context.Context, req *models.ChatRequest) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_id"}, {Name: "receiver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "timestamp"}),
	}).Create(req).Error
	if err != nil {
		return errors.Wrapf(err, "upsert chat request %s -> %s", req.SenderID, req.ReceiverID)
	}
	return nil
}

func (s *Service) GetChatRequest(ctx context.Context, senderID, receiverID string) (*models.ChatRequest, error) {
	var req models.ChatRequest
	err := s.DB.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get chat request %s -> %s", senderID, receiverID)
	}
	return &req, nil
}

func (s *Service) AcceptChatRequest(ctx context.Context, senderID, receiverID string, room *models.ChatRoom) (bool, error) {
	accepted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Both directions of the pair race for one room.
		if err := lockPair(tx, "room", senderID, receiverID); err != nil {
			return err
		}
		res := tx.Model(&models.ChatRequest{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, models.RequestPending).
			Updates(map[string]interface{}{
				"status":    models.RequestAccepted,
				"timestamp": room.StartDate,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var open int64
		err := tx.Model(&models.ChatRoom{}).
			Where("user1_id = ? AND user2_id = ? AND expires_at >= ?", room.User1ID, room.User2ID, room.StartDate).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrRoomOpen
		}
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		accepted = true
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "accept chat request %s -> %s", senderID, receiverID)
	}
	return accepted, nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get room %s", roomID)
	}
	return &room, nil
}

func (s *Service) GetLatestRoomForPair(ctx context.Context, userA, userB string) (*models.ChatRoom, error) {
	if userB < userA {
		userA, userB = userB, userA
	}
	var room models.ChatRoom
	err := s.DB.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", userA, userB).
		Order("start_date desc, room_id desc").
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get room for %s and %s", userA, userB)
	}
	return &room, nil
}

func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrapf(err, "save message for room %s", msg.RoomID)
	}
	return nil
}

// GetMessages returns the room history in ascending time order.
func (s *Service) GetMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp asc, id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "get messages for room %s", roomID)
	}
	return msgs, nil
}

// MarkNotified uses Redis SETNX when configured and the notification_markers
// table otherwise.
func (s *Service) MarkNotified(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.Redis == nil {
		return s.markNotifiedDB(ctx, key, ttl)
	}
	ok, err := s.Redis.SetNX(ctx, "notified:"+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "mark notified %s", key)
	}
	return ok, nil
}

func (s *Service) markNotifiedDB(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	marker := &models.NotificationMarker{Key: key, ExpiresAt: now.Add(ttl)}
	res := s.DB.WithContext(ctx).Clauses(markerUpsert(now)).Create(marker)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "mark notified %s", key)
	}
	// Zero rows means a live marker kept the conflicting row unchanged.
	return res.RowsAffected == 1, nil
}

// markerUpsert replaces a conflicting marker only once its lifetime is over.
func markerUpsert(now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "notification_markers.expires_at <= ?", Vars: []interface{}{now}},
		}},
	}
}

var _ Storage = (*Service)(nil)
