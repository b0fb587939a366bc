// Package moderation maintains the blocked and reported sets on user
// profiles. Suggestions skip users blocked in either direction.
package moderation

import (
	"context"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/storage"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Service handles block and report actions.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new moderation service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// pair loads userID after checking that both users exist.
func (s *Service) pair(ctx context.Context, userID, targetID string) (*models.User, error) {
	if userID == "" || targetID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "user ids are required")
	}
	if userID == targetID {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "cannot moderate yourself")
	}
	users, err := s.Storage.GetUsersByIDs(ctx, []string{userID, targetID})
	if err != nil {
		return nil, errors.Wrap(err, "get users")
	}
	var user *models.User
	found := 0
	for i := range users {
		switch users[i].ID {
		case userID:
			user = &users[i]
			found++
		case targetID:
			found++
		}
	}
	if user == nil || found < 2 {
		return nil, errors.Wrap(apperr.ErrNotFound, "user not found")
	}
	return user, nil
}

// Block hides targetID from userID's suggestions and userID from targetID's.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	user, err := s.pair(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if user.HasBlocked(targetID) {
		return nil
	}
	if err := s.Storage.AddBlockedUser(ctx, userID, targetID); err != nil {
		return errors.Wrap(err, "block user")
	}
	logger.Info("user blocked", zap.String("user", userID), zap.String("target", targetID))
	return nil
}

// Unblock removes targetID from userID's blocked set.
func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	user, err := s.pair(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !user.HasBlocked(targetID) {
		return nil
	}
	if err := s.Storage.RemoveBlockedUser(ctx, userID, targetID); err != nil {
		return errors.Wrap(err, "unblock user")
	}
	return nil
}

// Report records the report and blocks the reported user.
func (s *Service) Report(ctx context.Context, reporterID, reportedID string) error {
	if _, err := s.pair(ctx, reporterID, reportedID); err != nil {
		return err
	}
	if err := s.Storage.AddReportedUser(ctx, reporterID, reportedID); err != nil {
		return errors.Wrap(err, "report user")
	}
	if err := s.Storage.AddBlockedUser(ctx, reporterID, reportedID); err != nil {
		return errors.Wrap(err, "block reported user")
	}
	logger.Warn("user reported", zap.String("reporter", reporterID), zap.String("reported", reportedID))
	return nil
}
