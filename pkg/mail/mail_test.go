package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSenderLogsRecipient(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})
	sender := NewLogSender(logg, "noreply@example.com")

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Body: "secret-link"}))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.NotContains(t, buf.String(), "secret-link")
}

func TestSendersRequireRecipient(t *testing.T) {
	require.ErrorIs(t, NewLogSender(nil, "").Send(context.Background(), Message{}), errRecipientRequired)

	called := false
	sender := newPubSubSender(func(context.Context, []byte, map[string]string) (string, error) {
		called = true
		return "id", nil
	}, "")
	require.ErrorIs(t, sender.Send(context.Background(), Message{}), errRecipientRequired)
	assert.False(t, called)
}

func TestPubSubSenderPublishesJSON(t *testing.T) {
	var (
		got   Message
		attrs map[string]string
	)
	sender := newPubSubSender(func(_ context.Context, data []byte, a map[string]string) (string, error) {
		attrs = a
		return "msg-1", json.Unmarshal(data, &got)
	}, "noreply@example.com")

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Reset", Body: "link"}))
	assert.Equal(t, "noreply@example.com", got.From)
	assert.Equal(t, "Reset", got.Subject)
	assert.Equal(t, "mail", attrs["type"])
}

func TestPubSubSenderSurfacesPublishFailure(t *testing.T) {
	boom := errors.New("unavailable")
	sender := newPubSubSender(func(context.Context, []byte, map[string]string) (string, error) {
		return "", boom
	}, "")
	require.ErrorIs(t, sender.Send(context.Background(), Message{To: "a@example.com"}), boom)
}

func TestNewPubSubSenderRequiresPublisher(t *testing.T) {
	_, err := NewPubSubSender(nil, "")
	require.Error(t, err)
}
