package chathub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"matchchat/backend/internal/chathub"
	"matchchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID      string
	RecvChannel chan chathub.Frame
	closed      chan struct{}
	once        sync.Once
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan chathub.Frame, 16),
		closed:      make(chan struct{}),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- chathub.Frame {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.once.Do(func() { close(c.closed) })
}

// next waits for the next frame delivered to the client.
func (c *MockClient) next(t *testing.T) chathub.Frame {
	t.Helper()
	select {
	case f := <-c.RecvChannel:
		return f
	case <-time.After(time.Second):
		t.Fatalf("client %s received no frame", c.userID)
		return chathub.Frame{}
	}
}

// quiet asserts that nothing arrives for a short while.
func (c *MockClient) quiet(t *testing.T) {
	t.Helper()
	select {
	case f := <-c.RecvChannel:
		t.Fatalf("client %s got unexpected %s frame", c.userID, f.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) AuthorizeRoom(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockRoomService) PostMessage(ctx context.Context, roomID, userID, content string) (*models.Message, error) {
	args := m.Called(ctx, roomID, userID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}
