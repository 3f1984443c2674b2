package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ecosort_backend/internal/feature/session/usecase"
)

// DefaultChannel は読み上げ文言を配信するRedisチャンネル名です。
const DefaultChannel = "ecosort:speech"

// Message はRedisに配信する読み上げメッセージです。
type Message struct {
	Text string    `json:"text"`
	Lang string    `json:"lang"`
	At   time.Time `json:"at"`
}

// RedisSpeaker は読み上げ文言をRedis Pub/Subで端末へ配信します。
// 端末は新しいメッセージを受け取ったら再生中の音声を打ち切ります。
type RedisSpeaker struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

var _ usecase.Speaker = (*RedisSpeaker)(nil)

// NewRedisSpeaker はRedisSpeakerを生成します。channelが空の場合はDefaultChannelを使います。
func NewRedisSpeaker(client *redis.Client, channel string) *RedisSpeaker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSpeaker{client: client, channel: channel, now: time.Now}
}

func (s *RedisSpeaker) Speak(ctx context.Context, text, lang string) error {
	payload, err := json.Marshal(Message{Text: text, Lang: lang, At: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal speech message: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish speech message: %w", err)
	}
	return nil
}
