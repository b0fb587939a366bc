package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"matchchat/backend/internal/models"

	"github.com/pkg/errors"
)

// ErrDuplicateRoom mirrors the primary key constraint on chat rooms.
var ErrDuplicateRoom = errors.New("unique room_id violated")

// Memory is an in-process Storage. It backs the service when no database is
// configured and is the store used by the service tests.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]models.User
	interactions map[string]models.InteractionRecord // from|to
	requests     map[string]models.ChatRequest       // sender|receiver
	rooms        map[string]models.ChatRoom
	messages     map[string][]models.Message // room -> history
	markers      map[string]time.Time        // key -> expiry
	nextID       uint

	// Now drives marker expiry; defaults to time.Now.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]models.User),
		interactions: make(map[string]models.InteractionRecord),
		requests:     make(map[string]models.ChatRequest),
		rooms:        make(map[string]models.ChatRoom),
		messages:     make(map[string][]models.Message),
		markers:      make(map[string]time.Time),
		Now:          time.Now,
	}
}

func keyDirected(from, to string) string { return from + "|" + to }

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = cloneUser(*user)
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *Memory) GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m *Memory) ListUsersWithPreferences(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, u := range m.users {
		if u.HasPreferences() {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AddBlockedUser(ctx context.Context, userID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editUser(userID, func(u *models.User) { u.BlockedUserIDs = addMember(u.BlockedUserIDs, targetID) })
	return nil
}

func (m *Memory) RemoveBlockedUser(ctx context.Context, userID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editUser(userID, func(u *models.User) {
		u.BlockedUserIDs = slices.DeleteFunc(u.BlockedUserIDs, func(id string) bool { return id == targetID })
	})
	return nil
}

func (m *Memory) AddReportedUser(ctx context.Context, userID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editUser(userID, func(u *models.User) { u.ReportedUserIDs = addMember(u.ReportedUserIDs, targetID) })
	return nil
}

// editUser applies edit to a copy of the stored user. Callers hold mu.
func (m *Memory) editUser(userID string, edit func(u *models.User)) {
	u, ok := m.users[userID]
	if !ok {
		return
	}
	u = cloneUser(u)
	edit(&u)
	m.users[userID] = u
}

func addMember[S ~[]string](set S, id string) S {
	if slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func (m *Memory) UpsertInteraction(ctx context.Context, rec *models.InteractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyDirected(rec.FromUserID, rec.ToUserID)
	if existing, ok := m.interactions[k]; ok {
		existing.Action = rec.Action
		existing.Timestamp = rec.Timestamp
		if existing.Status != models.StatusMutual {
			existing.Status = models.StatusPending
		}
		m.interactions[k] = existing
		*rec = existing
		return nil
	}

	rec.ID = m.id()
	rec.Status = models.StatusPending
	m.interactions[k] = *rec
	return nil
}

func (m *Memory) GetInteraction(ctx context.Context, fromUserID, toUserID string) (*models.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.interactions[keyDirected(fromUserID, toUserID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListInteractions(ctx context.Context, fromUserID string) ([]models.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.InteractionRecord
	for _, rec := range m.interactions {
		if rec.FromUserID == fromUserID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) ConfirmMutual(ctx context.Context, userA, userB string) (mutual, transitioned bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fk, rk := keyDirected(userA, userB), keyDirected(userB, userA)
	forward, okF := m.interactions[fk]
	reverse, okR := m.interactions[rk]
	if !okF || !okR {
		return false, false, nil
	}
	if forward.Status == models.StatusMutual && reverse.Status == models.StatusMutual {
		return true, false, nil
	}
	if forward.Action != models.ActionLike || reverse.Action != models.ActionLike {
		return false, false, nil
	}

	forward.Status, reverse.Status = models.StatusMutual, models.StatusMutual
	m.interactions[fk], m.interactions[rk] = forward, reverse
	m.appendMatch(userA, userB)
	m.appendMatch(userB, userA)
	return true, true, nil
}

func (m *Memory) appendMatch(userID, matchID string) {
	m.editUser(userID, func(u *models.User) { u.Matches = addMember(u.Matches, matchID) })
}

func (m *Memory) UpsertChatRequest(ctx context.Context, req *models.ChatRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyDirected(req.SenderID, req.ReceiverID)
	if existing, ok := m.requests[k]; ok {
		req.ID = existing.ID
	} else {
		req.ID = m.id()
	}
	m.requests[k] = *req
	return nil
}

func (m *Memory) GetChatRequest(ctx context.Context, senderID, receiverID string) (*models.ChatRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[keyDirected(senderID, receiverID)]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (m *Memory) AcceptChatRequest(ctx context.Context, senderID, receiverID string, room *models.ChatRoom) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyDirected(senderID, receiverID)
	req, ok := m.requests[k]
	if !ok || req.Status != models.RequestPending {
		return false, nil
	}
	if _, exists := m.rooms[room.RoomID]; exists {
		return false, errors.Wrap(ErrDuplicateRoom, room.RoomID)
	}
	if latest := m.latestRoom(room.User1ID, room.User2ID); latest != nil && !latest.Expired(room.StartDate) {
		return false, errors.Wrap(ErrRoomOpen, latest.RoomID)
	}

	req.Status = models.RequestAccepted
	req.Timestamp = room.StartDate
	m.requests[k] = req
	m.rooms[room.RoomID] = *room
	return true, nil
}

func (m *Memory) GetRoomByID(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (m *Memory) GetLatestRoomForPair(ctx context.Context, userA, userB string) (*models.ChatRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestRoom(userA, userB), nil
}

// latestRoom orders by start date, then room id, like the SQL store.
func (m *Memory) latestRoom(userA, userB string) *models.ChatRoom {
	var latest *models.ChatRoom
	for _, room := range m.rooms {
		if !room.HasMember(userA) || !room.HasMember(userB) {
			continue
		}
		if latest == nil || room.StartDate.After(latest.StartDate) ||
			(room.StartDate.Equal(latest.StartDate) && room.RoomID > latest.RoomID) {
			r := room
			latest = &r
		}
	}
	return latest
}

func (m *Memory) SaveMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], *msg)
	return nil
}

func (m *Memory) GetMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.messages[roomID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) MarkNotified(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	if exp, ok := m.markers[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.markers[key] = now.Add(ttl)
	return true, nil
}

func cloneUser(u models.User) models.User {
	u.Interests = slices.Clone(u.Interests)
	u.Photos = slices.Clone(u.Photos)
	u.Matches = slices.Clone(u.Matches)
	u.BlockedUserIDs = slices.Clone(u.BlockedUserIDs)
	u.ReportedUserIDs = slices.Clone(u.ReportedUserIDs)
	return u
}

var _ Storage = (*Memory)(nil)
