package chat_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/chat"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/notify"
	"matchchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMatchChecker struct {
	mock.Mock
}

func (m *MockMatchChecker) IsMutual(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotifier) sent(kind notify.Kind) []notify.Notification {
	var out []notify.Notification
	for _, call := range m.Calls {
		if n := call.Arguments.Get(1).(notify.Notification); n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store    *storage.Memory
	matches  *MockMatchChecker
	notifier *MockNotifier
	clock    *clock
	svc      *chat.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemory(),
		matches:  new(MockMatchChecker),
		notifier: new(MockNotifier),
		clock:    &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.store.Now = f.clock.Now
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.svc = chat.NewService(f.store, f.matches, f.notifier)
	f.svc.Now = f.clock.Now
	return f
}

func (f *fixture) mutual(a, b string, ok bool) {
	f.matches.On("IsMutual", mock.Anything, a, b).Return(ok, nil)
}

// openRoom runs the request/accept cycle for a matched pair.
func (f *fixture) openRoom(t *testing.T, sender, receiver string) *models.ChatRoom {
	t.Helper()
	f.mutual(sender, receiver, true)
	_, err := f.svc.SendRequest(context.Background(), sender, receiver)
	require.NoError(t, err)
	room, err := f.svc.AcceptRequest(context.Background(), receiver, sender)
	require.NoError(t, err)
	return room
}

func TestSendRequest_RequiresMutual(t *testing.T) {
	f := setup(t)
	f.mutual("a", "b", false)

	_, err := f.svc.SendRequest(context.Background(), "a", "b")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	req, err := f.store.GetChatRequest(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Nil(t, req, "nothing stored on rejection")
	assert.Empty(t, f.notifier.sent(notify.KindChatRequest))
}

func TestSendRequest_Self(t *testing.T) {
	f := setup(t)
	_, err := f.svc.SendRequest(context.Background(), "a", "a")
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestSendRequest_PendingAndNotifies(t *testing.T) {
	f := setup(t)
	f.mutual("a", "b", true)

	req, err := f.svc.SendRequest(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	// Re-sending keeps one pending request and does not notify twice.
	_, err = f.svc.SendRequest(context.Background(), "a", "b")
	require.NoError(t, err)

	sent := f.notifier.sent(notify.KindChatRequest)
	require.Len(t, sent, 1)
	assert.Equal(t, "b", sent[0].UserID)
	assert.Equal(t, "a", sent[0].ActorID)
}

func TestAcceptRequest_NotFound(t *testing.T) {
	f := setup(t)
	_, err := f.svc.AcceptRequest(context.Background(), "b", "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f.mutual("a", "b", true)
	_, err = f.svc.SendRequest(context.Background(), "a", "b")
	require.NoError(t, err)

	// Only the receiver can accept, in the request's direction.
	_, err = f.svc.AcceptRequest(context.Background(), "a", "b")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAcceptRequest_CreatesRoom(t *testing.T) {
	f := setup(t)
	start := f.clock.Now()
	room := f.openRoom(t, "a", "b")

	assert.NotEmpty(t, room.RoomID)
	assert.True(t, room.HasMember("a"))
	assert.True(t, room.HasMember("b"))
	assert.Equal(t, start.Add(96*time.Hour), room.ExpiresAt)

	accepted := f.notifier.sent(notify.KindChatAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "a", accepted[0].UserID)
	assert.Equal(t, room.RoomID, accepted[0].RoomID)

	_, err := f.svc.AcceptRequest(context.Background(), "b", "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "second accept finds no pending request")
}

func TestAcceptRequest_ConcurrentCreatesOneRoom(t *testing.T) {
	f := setup(t)
	f.mutual("a", "b", true)
	_, err := f.svc.SendRequest(context.Background(), "a", "b")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.AcceptRequest(context.Background(), "b", "a"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestAcceptRequest_OppositeDirectionsOpenOneRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.mutual("a", "b", true)
	f.mutual("b", "a", true)
	_, err := f.svc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, "b", "a")
	require.NoError(t, err)

	first, err := f.svc.AcceptRequest(ctx, "b", "a")
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, "a", "b")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, expired, err := f.svc.GetRoom(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, first.RoomID, got.RoomID)
	assert.Len(t, f.notifier.sent(notify.KindChatAccepted), 1)
}

func TestAcceptRequest_ConcurrentOppositeDirections(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := setup(t)
		ctx := context.Background()
		f.mutual("a", "b", true)
		f.mutual("b", "a", true)
		_, err := f.svc.SendRequest(ctx, "a", "b")
		require.NoError(t, err)
		_, err = f.svc.SendRequest(ctx, "b", "a")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, dir := range [][2]string{{"b", "a"}, {"a", "b"}} {
			wg.Add(1)
			go func(i int, receiver, sender string) {
				defer wg.Done()
				_, errs[i] = f.svc.AcceptRequest(ctx, receiver, sender)
			}(i, dir[0], dir[1])
		}
		wg.Wait()

		if errs[0] == nil {
			assert.ErrorIs(t, errs[1], apperr.ErrConflict, "round %d", round)
		} else {
			assert.ErrorIs(t, errs[0], apperr.ErrConflict, "round %d", round)
			assert.NoError(t, errs[1], "round %d", round)
		}
	}
}

func TestSendRequest_ConflictWhileRoomOpen(t *testing.T) {
	f := setup(t)
	f.openRoom(t, "a", "b")
	f.mutual("b", "a", true)

	_, err := f.svc.SendRequest(context.Background(), "b", "a")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	f.clock.Advance(97 * time.Hour)
	_, err = f.svc.SendRequest(context.Background(), "b", "a")
	assert.NoError(t, err, "an expired room allows a new request")
}

func TestGetRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.svc.GetRoom(ctx, "a", "b")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	room := f.openRoom(t, "a", "b")
	got, expired, err := f.svc.GetRoom(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, room.RoomID, got.RoomID)

	f.clock.Advance(96*time.Hour + time.Second)
	_, expired, err = f.svc.GetRoom(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestGetRoom_ExpiredStaysReadableAfterReRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.openRoom(t, "a", "b")

	f.clock.Advance(97 * time.Hour)
	_, err := f.svc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)

	req, err := f.store.GetChatRequest(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, models.RequestPending, req.Status)

	got, expired, err := f.svc.GetRoom(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, room.RoomID, got.RoomID)

	fresh, err := f.svc.AcceptRequest(ctx, "b", "a")
	require.NoError(t, err)
	got, expired, err = f.svc.GetRoom(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, fresh.RoomID, got.RoomID)
}

func TestGetRoom_ExpiryWarningsOncePerDay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.openRoom(t, "a", "b")

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.GetRoom(ctx, "a", "b")
		require.NoError(t, err)
	}
	warnings := f.notifier.sent(notify.KindExpiryWarning)
	require.Len(t, warnings, 2, "one per member")
	assert.Equal(t, 4, warnings[0].DaysRemaining)

	f.clock.Advance(25 * time.Hour)
	_, _, err := f.svc.GetRoom(ctx, "b", "a")
	require.NoError(t, err)
	warnings = f.notifier.sent(notify.KindExpiryWarning)
	require.Len(t, warnings, 4)
	assert.Equal(t, 3, warnings[3].DaysRemaining)

	f.clock.Advance(80 * time.Hour)
	_, expired, err := f.svc.GetRoom(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Len(t, f.notifier.sent(notify.KindExpiryWarning), 4, "no warning after expiry")
}

func TestDaysRemaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	room := models.NewChatRoom("r", "a", "b", start, 96*time.Hour)

	assert.Equal(t, 4, chat.DaysRemaining(room, start))
	assert.Equal(t, 4, chat.DaysRemaining(room, start.Add(time.Hour)))
	assert.Equal(t, 3, chat.DaysRemaining(room, start.Add(24*time.Hour)))
	assert.Equal(t, 1, chat.DaysRemaining(room, start.Add(95*time.Hour)))
	assert.Equal(t, 0, chat.DaysRemaining(room, start.Add(96*time.Hour)))
}

func TestRequestStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st, err := f.svc.RequestStatus(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.RequestNone, st.Status)
	assert.Empty(t, st.SenderID)

	f.mutual("a", "b", true)
	_, err = f.svc.SendRequest(ctx, "a", "b")
	require.NoError(t, err)
	st, err = f.svc.RequestStatus(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, chat.RequestStatus{Status: models.RequestPending, SenderID: "a", ReceiverID: "b"}, st)

	f.clock.Advance(time.Minute)
	_, err = f.svc.AcceptRequest(ctx, "b", "a")
	require.NoError(t, err)
	st, err = f.svc.RequestStatus(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, st.Status)
}

func TestPostMessage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.openRoom(t, "a", "b")

	msg, err := f.svc.PostMessage(ctx, room.RoomID, "a", "hello 👋")
	require.NoError(t, err)
	assert.Equal(t, "a", msg.SenderID)

	_, err = f.svc.PostMessage(ctx, room.RoomID, "mallory", "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.PostMessage(ctx, "missing", "a", "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.PostMessage(ctx, room.RoomID, "a", "see https://example.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	f.clock.Advance(97 * time.Hour)
	_, err = f.svc.PostMessage(ctx, room.RoomID, "b", "still there?")
	assert.ErrorIs(t, err, apperr.ErrRoomLocked)

	msgs, err := f.svc.Messages(ctx, "b", room.RoomID)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "rejected messages are not persisted")
	assert.Equal(t, "hello 👋", msgs[0].Content)
}

func TestMessages_Authorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.openRoom(t, "a", "b")

	msgs, err := f.svc.Messages(ctx, "a", room.RoomID)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err = f.svc.Messages(ctx, "c", room.RoomID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Messages(ctx, "a", "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
	}{
		{"plain", "hello there", true},
		{"emoji", "😀🎉", true},
		{"comparison", "3 < 4 and 5 > 2", true},
		{"http", "visit http://x.io", false},
		{"https upper", "HTTPS://x.io", false},
		{"tag", "<b>bold</b>", false},
		{"script", "<script>alert(1)</script>", false},
		{"blank", "   ", false},
		{"too long", strings.Repeat("a", 1001), false},
		{"max length", strings.Repeat("😀", 1000), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := chat.ValidateContent(tt.content)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
			}
		})
	}
}
