package chathub

import (
	"context"
	"encoding/json"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/metrics"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const eventTimeout = 10 * time.Second

// RoomService authorizes room access and persists messages.
type RoomService interface {
	AuthorizeRoom(ctx context.Context, roomID, userID string) (*models.ChatRoom, error)
	PostMessage(ctx context.Context, roomID, userID, content string) (*models.Message, error)
}

type subscription struct {
	client Client
	roomID string
}

type delivery struct {
	client Client
	frame  Frame
}

// ManagerService is the hub. Its Run loop is the only goroutine that touches
// the connection and room maps or writes to a client's send channel.
type ManagerService struct {
	Rooms    RoomService
	Bus      storage.Bus
	Validate *validator.Validate

	clients map[Client]struct{}
	rooms   map[string]map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	subscribeCh  chan subscription
	deliverCh    chan delivery

	done chan struct{}
}

func NewManagerService(rooms RoomService, bus storage.Bus) *ManagerService {
	return &ManagerService{
		Rooms:        rooms,
		Bus:          bus,
		Validate:     validator.New(),
		clients:      make(map[Client]struct{}),
		rooms:        make(map[string]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		subscribeCh:  make(chan subscription),
		deliverCh:    make(chan delivery, 64),
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} { return m.done }

// Register hands c to the hub. It is a no-op once the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

func (m *ManagerService) deliver(c Client, f Frame) {
	select {
	case m.deliverCh <- delivery{client: c, frame: f}:
	case <-m.done:
	}
}

// Run processes hub events until ctx is cancelled or the bus subscription
// ends. All registered clients are closed on return.
func (m *ManagerService) Run(ctx context.Context) error {
	defer close(m.done)

	events, err := m.Bus.Subscribe(ctx)
	if err != nil {
		return errors.Wrap(err, "subscribe to room events")
	}
	logger.Info("chat hub started")

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil

		case c := <-m.RegisterCh:
			m.clients[c] = struct{}{}
			metrics.ActiveConnections.Inc()

		case c := <-m.UnregisterCh:
			m.remove(c)

		case sub := <-m.subscribeCh:
			if _, ok := m.clients[sub.client]; !ok {
				continue
			}
			members, ok := m.rooms[sub.roomID]
			if !ok {
				members = make(map[Client]struct{})
				m.rooms[sub.roomID] = members
			}
			members[sub.client] = struct{}{}
			m.send(sub.client, Frame{Event: EventJoinedRoom, Data: RoomPayload{RoomID: sub.roomID}})

		case d := <-m.deliverCh:
			if _, ok := m.clients[d.client]; ok {
				m.send(d.client, d.frame)
			}

		case evt, ok := <-events:
			if !ok {
				m.shutdown()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("room event subscription closed")
			}
			m.broadcast(evt)
		}
	}
}

func (m *ManagerService) broadcast(evt storage.RoomEvent) {
	frame := Frame{Event: EventNewMessage, Data: NewMessagePayload{
		ID:        evt.MessageID,
		RoomID:    evt.RoomID,
		SenderID:  evt.SenderID,
		Content:   evt.Content,
		Timestamp: evt.Timestamp,
	}}
	for c := range m.rooms[evt.RoomID] {
		m.send(c, frame)
	}
}

// send never blocks the loop; a full buffer drops the frame.
func (m *ManagerService) send(c Client, f Frame) {
	select {
	case c.GetSendChannel() <- f:
	default:
		metrics.GatewayRejections.WithLabelValues("slow_consumer").Inc()
		logger.Warn("dropping frame for slow client",
			zap.String("user", c.GetUserID()),
			zap.String("event", f.Event))
	}
}

func (m *ManagerService) remove(c Client) {
	if _, ok := m.clients[c]; !ok {
		return
	}
	delete(m.clients, c)
	for roomID, members := range m.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	metrics.ActiveConnections.Dec()
	c.Close()
}

func (m *ManagerService) shutdown() {
	for c := range m.clients {
		m.remove(c)
	}
	logger.Info("chat hub stopped")
}

// HandleEvent decodes one inbound frame from c and acts on it. Replies are
// queued through the hub loop.
func (m *ManagerService) HandleEvent(ctx context.Context, c Client, raw []byte) {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.reject(c, "bad_frame", errorFrame("malformed frame"))
		return
	}

	switch env.Event {
	case EventJoinRoom:
		var p JoinRoomPayload
		if !m.decode(c, env.Data, &p) {
			return
		}
		m.joinRoom(ctx, c, p)
	case EventSendMessage:
		var p SendMessagePayload
		if !m.decode(c, env.Data, &p) {
			return
		}
		m.sendMessage(ctx, c, p)
	default:
		m.reject(c, "unknown_event", errorFrame("unknown event"))
	}
}

func (m *ManagerService) decode(c Client, data json.RawMessage, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		m.reject(c, "bad_payload", errorFrame("malformed payload"))
		return false
	}
	if err := m.Validate.Struct(dst); err != nil {
		m.reject(c, "bad_payload", errorFrame("missing required fields"))
		return false
	}
	return true
}

// spoofed reports whether the claimed identity differs from the bound one.
func (m *ManagerService) spoofed(c Client, claimed string) bool {
	if claimed == c.GetUserID() {
		return false
	}
	logger.Warn("identity mismatch on socket",
		zap.String("user", c.GetUserID()),
		zap.String("claimed", claimed))
	m.reject(c, "identity_mismatch", errorFrame("forbidden"))
	return true
}

func (m *ManagerService) joinRoom(ctx context.Context, c Client, p JoinRoomPayload) {
	if m.spoofed(c, p.UserID) {
		return
	}
	if _, err := m.Rooms.AuthorizeRoom(ctx, p.RoomID, c.GetUserID()); err != nil {
		m.fail(c, p.RoomID, err)
		return
	}
	select {
	case m.subscribeCh <- subscription{client: c, roomID: p.RoomID}:
	case <-m.done:
	}
}

func (m *ManagerService) sendMessage(ctx context.Context, c Client, p SendMessagePayload) {
	if m.spoofed(c, p.UserID) {
		return
	}
	msg, err := m.Rooms.PostMessage(ctx, p.RoomID, c.GetUserID(), p.Content)
	if err != nil {
		m.fail(c, p.RoomID, err)
		return
	}

	evt := storage.RoomEvent{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	if err := m.Bus.Publish(ctx, evt); err != nil {
		logger.Error("failed to broadcast message", zap.String("room", msg.RoomID), zap.Error(err))
		m.deliver(c, errorFrame("message saved but not delivered"))
	}
}

func (m *ManagerService) fail(c Client, roomID string, err error) {
	switch {
	case errors.Is(err, apperr.ErrRoomLocked):
		m.reject(c, "room_locked", Frame{Event: EventRoomLocked, Data: RoomPayload{RoomID: roomID}})
	case errors.Is(err, apperr.ErrNotFound):
		m.reject(c, "not_found", errorFrame("room not found"))
	case errors.Is(err, apperr.ErrForbidden):
		m.reject(c, "forbidden", errorFrame("forbidden"))
	case errors.Is(err, apperr.ErrInvalidOperation):
		m.reject(c, "invalid", errorFrame(err.Error()))
	default:
		logger.Error("socket event failed", zap.String("user", c.GetUserID()), zap.Error(err))
		m.reject(c, "internal", errorFrame("internal error"))
	}
}

func (m *ManagerService) reject(c Client, reason string, f Frame) {
	metrics.GatewayRejections.WithLabelValues(reason).Inc()
	m.deliver(c, f)
}
