package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"matchchat/backend/internal/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the Redis pub/sub channel shared by all gateway instances.
const BroadcastChannel = "chat:broadcast"

// RoomEvent is a persisted message on its way to every subscribed socket.
type RoomEvent struct {
	MessageID uint      `json:"messageId"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans room events out across gateway instances.
type Bus interface {
	Publish(ctx context.Context, evt RoomEvent) error
	// Subscribe delivers every published event until ctx is done, then closes
	// the returned channel.
	Subscribe(ctx context.Context) (<-chan RoomEvent, error)
}

// RedisBus publishes room events on a Redis pub/sub channel.
type RedisBus struct {
	Redis   *redis.Client
	Channel string
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{Redis: rdb, Channel: BroadcastChannel}
}

func (b *RedisBus) Publish(ctx context.Context, evt RoomEvent) error {
	msgBytes, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.Redis.Publish(ctx, b.Channel, string(msgBytes)).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", b.Channel)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan RoomEvent, error) {
	pubsub := b.Redis.Subscribe(ctx, b.Channel)
	// Receive waits for the subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrapf(err, "subscribe to %s", b.Channel)
	}

	out := make(chan RoomEvent, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt RoomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					logger.Errorf("Error unmarshalling Redis message: %v", err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LocalBus delivers events inside the current process only.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[chan RoomEvent]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[chan RoomEvent]struct{})}
}

func (b *LocalBus) Publish(ctx context.Context, evt RoomEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan RoomEvent, error) {
	ch := make(chan RoomEvent, 256)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

var (
	_ Bus = (*RedisBus)(nil)
	_ Bus = (*LocalBus)(nil)
)
