// Package match records likes and passes, detects mutual matches and builds
// the ranked suggestion list.
package match

import (
	"context"
	"sort"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/compat"
	"matchchat/backend/internal/config"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/metrics"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/notify"
	"matchchat/backend/internal/storage"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Profile is the public projection of a candidate or match.
type Profile struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
	Photos      []string `json:"photos"`
	Score       int      `json:"score"`
	MatchCount  int      `json:"matchCount"`
	IsBlurred   bool     `json:"isBlurred"`
}

type Service struct {
	Storage  storage.Storage
	Scorer   *compat.Scorer
	Notifier notify.Notifier
	Now      func() time.Time
}

func NewService(store storage.Storage, scorer *compat.Scorer, notifier notify.Notifier) *Service {
	if scorer == nil {
		scorer = compat.NewScorer(nil)
	}
	return &Service{Storage: store, Scorer: scorer, Notifier: notifier, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// RecordInteraction upserts the (from, to) rating with a fresh timestamp.
func (s *Service) RecordInteraction(ctx context.Context, from, to string, action models.InteractionAction) error {
	if from == "" || to == "" {
		return errors.Wrap(apperr.ErrInvalidOperation, "user ids are required")
	}
	if from == to {
		return errors.Wrap(apperr.ErrInvalidOperation, "cannot interact with yourself")
	}
	if !action.Valid() {
		return errors.Wrapf(apperr.ErrInvalidOperation, "unknown action %q", action)
	}
	if _, err := s.loadUser(ctx, to); err != nil {
		return err
	}

	rec := &models.InteractionRecord{
		FromUserID: from,
		ToUserID:   to,
		Action:     action,
		Timestamp:  s.now(),
	}
	if err := s.Storage.UpsertInteraction(ctx, rec); err != nil {
		return errors.Wrap(err, "upsert interaction")
	}
	metrics.Interactions.WithLabelValues(string(action)).Inc()
	return nil
}

// CheckMutual reports whether the pair liked each other and, only for the
// call that flipped the pair to mutual, notifies both users.
func (s *Service) CheckMutual(ctx context.Context, from, to string) (bool, error) {
	mutual, transitioned, err := s.Storage.ConfirmMutual(ctx, from, to)
	if err != nil {
		return false, errors.Wrap(err, "confirm mutual")
	}
	if transitioned {
		metrics.MutualMatches.Inc()
		logger.Info("mutual match", zap.String("pair", models.PairKey(from, to)))
		now := s.now()
		notify.Emit(ctx, s.Notifier, notify.Notification{Kind: notify.KindMutualMatch, UserID: from, ActorID: to, CreatedAt: now})
		notify.Emit(ctx, s.Notifier, notify.Notification{Kind: notify.KindMutualMatch, UserID: to, ActorID: from, CreatedAt: now})
	}
	return mutual, nil
}

// Interact records the rating and, for a like, runs mutual detection.
func (s *Service) Interact(ctx context.Context, from, to string, action models.InteractionAction) (bool, error) {
	if err := s.RecordInteraction(ctx, from, to, action); err != nil {
		return false, err
	}
	if action != models.ActionLike {
		return false, nil
	}

	notify.Emit(ctx, s.Notifier, notify.Notification{Kind: notify.KindNewLike, UserID: to, ActorID: from, CreatedAt: s.now()})
	return s.CheckMutual(ctx, from, to)
}

// IsMutual reports whether either directional record of the pair is mutual.
func (s *Service) IsMutual(ctx context.Context, a, b string) (bool, error) {
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		rec, err := s.Storage.GetInteraction(ctx, dir[0], dir[1])
		if err != nil {
			return false, errors.Wrap(err, "get interaction")
		}
		if rec != nil && rec.Status == models.StatusMutual {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	if user == nil {
		return nil, errors.Wrapf(apperr.ErrNotFound, "user %s", userID)
	}
	return user, nil
}

// GetSuggestions ranks the users the caller has not rated yet.
func (s *Service) GetSuggestions(ctx context.Context, userID string) ([]Profile, error) {
	self, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !self.HasPreferences() {
		return nil, apperr.ErrIncompleteProfile
	}

	rated, err := s.Storage.ListInteractions(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list interactions")
	}
	excluded := make(map[string]struct{}, len(rated)+1)
	excluded[userID] = struct{}{}
	for _, rec := range rated {
		excluded[rec.ToUserID] = struct{}{}
	}

	pool, err := s.Storage.ListUsersWithPreferences(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list candidates")
	}

	selfPrefs := self.Preferences()
	suggestions := make([]Profile, 0)
	for i := range pool {
		candidate := &pool[i]
		if _, skip := excluded[candidate.ID]; skip {
			continue
		}
		if self.HasBlocked(candidate.ID) || candidate.HasBlocked(userID) {
			continue
		}
		res := s.Scorer.Score(selfPrefs, candidate.Preferences())
		if !res.Qualifies() {
			continue
		}
		suggestions = append(suggestions, publicProfile(candidate, res, true))
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > config.SuggestionLimit {
		suggestions = suggestions[:config.SuggestionLimit]
	}
	return suggestions, nil
}

// GetMutualMatches lists the caller's matched users with a live score.
func (s *Service) GetMutualMatches(ctx context.Context, userID string) ([]Profile, error) {
	self, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	matches := make([]Profile, 0, len(self.Matches))
	if len(self.Matches) == 0 {
		return matches, nil
	}
	users, err := s.Storage.GetUsersByIDs(ctx, self.Matches)
	if err != nil {
		return nil, errors.Wrap(err, "get matched users")
	}
	selfPrefs := self.Preferences()
	for i := range users {
		res := s.Scorer.Score(selfPrefs, users[i].Preferences())
		matches = append(matches, publicProfile(&users[i], res, false))
	}
	return matches, nil
}

func publicProfile(u *models.User, res compat.Result, blurred bool) Profile {
	interests := []string(u.Interests)
	if len(interests) > config.PublicInterestLimit {
		interests = interests[:config.PublicInterestLimit]
	}
	if interests == nil {
		interests = []string{}
	}
	photos := []string(u.Photos)
	if photos == nil {
		photos = []string{}
	}
	return Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Interests:   interests,
		Photos:      photos,
		Score:       res.Score,
		MatchCount:  res.MatchCount,
		IsBlurred:   blurred,
	}
}
