// Package notify emits fire-and-forget notifications about matches and chats.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"matchchat/backend/internal/localization"
	"matchchat/backend/internal/logger"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Kind string

const (
	KindNewLike       Kind = "new_like"
	KindMutualMatch   Kind = "mutual_match"
	KindChatRequest   Kind = "chat_request"
	KindChatAccepted  Kind = "chat_accepted"
	KindExpiryWarning Kind = "expiry_warning"
)

// Notification is addressed to UserID. ActorID is the user who caused it.
type Notification struct {
	Kind          Kind      `json:"kind"`
	UserID        string    `json:"userId"`
	ActorID       string    `json:"actorId,omitempty"`
	RoomID        string    `json:"roomId,omitempty"`
	DaysRemaining int       `json:"daysRemaining,omitempty"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Emit delivers n and logs any failure. It never fails the caller.
func Emit(ctx context.Context, notifier Notifier, n Notification) {
	if notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warn("notification dropped",
			zap.String("kind", string(n.Kind)),
			zap.String("user", n.UserID),
			zap.Error(err))
	}
}

// Titled fills Title from the catalog before delegating to Next.
type Titled struct {
	Next      Notifier
	Localizer *localization.Localizer
	Lang      string
}

func (t *Titled) Notify(ctx context.Context, n Notification) error {
	if n.Title == "" && t.Localizer != nil {
		lang := t.Lang
		if lang == "" {
			lang = localization.DefaultLang
		}
		if n.Kind == KindExpiryWarning {
			n.Title = t.Localizer.Plural(lang, "notify."+string(n.Kind), n.DaysRemaining)
		} else {
			n.Title = t.Localizer.GetString(lang, "notify."+string(n.Kind))
		}
	}
	return t.Next.Notify(ctx, n)
}

// NATSNotifier publishes each notification as JSON on <Prefix>.<kind>.
type NATSNotifier struct {
	Conn   *nats.Conn
	Prefix string
}

func NewNATSNotifier(url, prefix string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("matchchat-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", url)
	}
	return &NATSNotifier{Conn: nc, Prefix: prefix}, nil
}

// Subject returns the subject a notification of kind k is published on.
func (n *NATSNotifier) Subject(k Kind) string {
	return strings.TrimSuffix(n.Prefix, ".") + "." + string(k)
}

func (n *NATSNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return errors.Wrap(n.Conn.Publish(n.Subject(note.Kind), data), "nats publish")
}

func (n *NATSNotifier) Close() {
	if n.Conn != nil {
		n.Conn.Close()
	}
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("user", n.UserID),
		zap.String("actor", n.ActorID),
		zap.String("room", n.RoomID),
		zap.String("title", n.Title))
	return nil
}

var (
	_ Notifier = (*NATSNotifier)(nil)
	_ Notifier = LogNotifier{}
	_ Notifier = (*Titled)(nil)
)
