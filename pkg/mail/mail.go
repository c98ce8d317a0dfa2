package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
)

// Message is a rendered outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender hands a message to whatever delivers it. Send returns once the
// hand-off is acknowledged.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var errRecipientRequired = errors.New("mail recipient is required")

func (m Message) withDefaults(from string) (Message, error) {
	if strings.TrimSpace(m.To) == "" {
		return m, errRecipientRequired
	}
	if m.From == "" {
		m.From = from
	}
	return m, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logg *logger.Logger
	from string
}

func NewLogSender(logg *logger.Logger, from string) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg, from: from}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	msg, err := msg.withDefaults(s.from)
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	s.logg.Info(ctx, "mail.sent")
	s.logg.Debug(s.logg.WithField(ctx, "body", msg.Body), "mail.body")
	return nil
}

type publishFunc func(ctx context.Context, data []byte, attrs map[string]string) (string, error)

// PubSubSender publishes messages as JSON for the mail worker to deliver.
type PubSubSender struct {
	publish publishFunc
	from    string
}

func NewPubSubSender(publisher *pubsub.Publisher, from string) (*PubSubSender, error) {
	if publisher == nil {
		return nil, errors.New("mail publisher is required")
	}
	return newPubSubSender(func(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
		return publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	}, from), nil
}

func newPubSubSender(publish publishFunc, from string) *PubSubSender {
	return &PubSubSender{publish: publish, from: from}
}

func (s *PubSubSender) Send(ctx context.Context, msg Message) error {
	msg, err := msg.withDefaults(s.from)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}
	if _, err := s.publish(ctx, data, map[string]string{"type": "mail"}); err != nil {
		return fmt.Errorf("publish mail message: %w", err)
	}
	return nil
}
