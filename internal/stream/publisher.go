package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"dwello.app/dealroom/internal/model"
)

// Publisher announces committed messages on the conversation's stream.
// Entries beyond MaxLen are trimmed; subscribers that fall further behind
// recover through database backfill.
type Publisher struct {
	client *redis.Client
	prefix string
	maxLen int64
}

func NewPublisher(client *redis.Client, keyPrefix string, maxLen int64) *Publisher {
	return &Publisher{client: client, prefix: keyPrefix, maxLen: maxLen}
}

func (p *Publisher) PublishMessage(ctx context.Context, msg *model.Message) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(p.prefix, msg.ConversationID),
		MaxLen: p.maxLen,
		Approx: true,
		Values: entryValues(msg),
	}).Err(); err != nil {
		return fmt.Errorf("publishing message event: %w", err)
	}

	slog.DebugContext(ctx, "message event published",
		"conversation_id", msg.ConversationID,
		"seq", msg.Seq,
		"kind", msg.Kind)
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
