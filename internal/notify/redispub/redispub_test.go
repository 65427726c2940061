package redispub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestChannel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "grievance:user:u1", New(nil, "").Channel("u1"))
	assert.Equal(t, "campus:user:42", New(nil, "campus").Channel("42"))
}

func TestPublish_DeliversToSubscriber(t *testing.T) {
	t.Parallel()

	client, _ := setupRedis(t)
	p := New(client, "test")
	ctx := context.Background()

	sub := client.Subscribe(ctx, p.Channel("7"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	ev := complaint.Event{
		Type:   complaint.EventNotification,
		UserID: "7",
		Payload: complaint.Notification{
			ID:      "n1",
			UserID:  "7",
			Message: `Your complaint "Leaking pipe" is now Resolved`,
			Type:    complaint.NotificationSuccess,
		},
	}
	require.NoError(t, p.Publish(ctx, ev))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "test:user:7", msg.Channel)

		var got struct {
			Type    string                 `json:"type"`
			UserID  string                 `json:"userId"`
			Payload complaint.Notification `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "notification", got.Type)
		assert.Equal(t, "7", got.UserID)
		assert.Equal(t, "n1", got.Payload.ID)
		assert.Equal(t, complaint.NotificationSuccess, got.Payload.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublish_NoSubscribersIsFine(t *testing.T) {
	t.Parallel()

	client, _ := setupRedis(t)
	err := New(client, "").Publish(context.Background(), complaint.Event{Type: complaint.EventNotification, UserID: "nobody"})
	assert.NoError(t, err)
}

func TestPublish_RequiresRecipient(t *testing.T) {
	t.Parallel()

	client, _ := setupRedis(t)
	err := New(client, "").Publish(context.Background(), complaint.Event{Type: complaint.EventNotification})
	assert.Error(t, err)
}

func TestPublish_ServerDown(t *testing.T) {
	t.Parallel()

	client, mr := setupRedis(t)
	mr.Close()

	err := New(client, "").Publish(context.Background(), complaint.Event{Type: complaint.EventNotification, UserID: "u"})
	assert.Error(t, err)
}

func TestConnect_BadURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
