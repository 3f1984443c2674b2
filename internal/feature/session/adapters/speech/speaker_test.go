package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSpeaker_Speak(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewLogSpeaker(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, s.Speak(context.Background(), "这是电池，它是有害垃圾。", "zh-CN"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "speak", rec["msg"])
	assert.Equal(t, "这是电池，它是有害垃圾。", rec["text"])
	assert.Equal(t, "zh-CN", rec["lang"])
}

func TestRedisSpeaker_Speak(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, DefaultChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	s := NewRedisSpeaker(client, "")
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Speak(ctx, "没看清，请再试一次。", "zh-CN"))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, Message{Text: "没看清，请再试一次。", Lang: "zh-CN", At: fixed}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no speech message received")
	}
}

func TestRedisSpeaker_PublishError(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisSpeaker(client, "custom").Speak(context.Background(), "x", "zh-CN")
	assert.Error(t, err)
}
