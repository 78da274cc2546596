package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dwello.app/dealroom/internal/model"
)

// RawEvent is a transport-level delivery: the stream entry ID plus the
// decoded message. Delivery is at-least-once and may replay across
// reconnects; the consumer deduplicates by message seq.
type RawEvent struct {
	StreamID string
	Message  model.Message
}

// Transport is the subscribe primitive keyed by conversation. Read returns
// entries after afterID ("0" reads the retained stream from the start) and
// blocks up to block for new entries.
type Transport interface {
	Read(ctx context.Context, conversationID int64, afterID string, count int64, block time.Duration) ([]RawEvent, error)
}

type redisTransport struct {
	client *redis.Client
	prefix string
}

func NewRedisTransport(client *redis.Client, keyPrefix string) Transport {
	return &redisTransport{client: client, prefix: keyPrefix}
}

func (t *redisTransport) Read(ctx context.Context, conversationID int64, afterID string, count int64, block time.Duration) ([]RawEvent, error) {
	streams, err := t.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamKey(t.prefix, conversationID), afterID},
		Count:   count,
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading conversation stream: %w", err)
	}

	var events []RawEvent
	// XRead supports multiple streams, but we only read one so this outer loop only runs once.
	for _, s := range streams {
		for _, entry := range s.Messages {
			msg, parseErr := parseEntry(entry)
			if parseErr != nil {
				// A malformed entry is skipped; the seq gap it leaves is
				// repaired by backfill.
				continue
			}
			events = append(events, RawEvent{StreamID: entry.ID, Message: msg})
		}
	}
	return events, nil
}

func streamKey(prefix string, conversationID int64) string {
	return fmt.Sprintf("%s:%d", prefix, conversationID)
}

func entryValues(msg *model.Message) map[string]any {
	values := map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"seq":             msg.Seq,
		"sender_id":       msg.SenderID,
		"kind":            string(msg.Kind),
		"created_at":      msg.CreatedAt.UnixMilli(),
	}
	if msg.Body != "" {
		values["body"] = msg.Body
	}
	if msg.ProposalID != nil {
		values["proposal_id"] = *msg.ProposalID
	}
	if msg.NewProposalID != nil {
		values["new_proposal_id"] = *msg.NewProposalID
	}
	return values
}

func parseEntry(entry redis.XMessage) (model.Message, error) {
	id, err := parseInt64(entry.Values, "message_id")
	if err != nil {
		return model.Message{}, err
	}
	conversationID, err := parseInt64(entry.Values, "conversation_id")
	if err != nil {
		return model.Message{}, err
	}
	seq, err := parseInt64(entry.Values, "seq")
	if err != nil {
		return model.Message{}, err
	}
	senderID, err := parseInt64(entry.Values, "sender_id")
	if err != nil {
		return model.Message{}, err
	}
	kind, _ := entry.Values["kind"].(string)
	if kind == "" {
		return model.Message{}, fmt.Errorf("missing kind")
	}
	createdAt, err := parseInt64(entry.Values, "created_at")
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:             id,
		ConversationID: conversationID,
		Seq:            seq,
		SenderID:       senderID,
		Kind:           model.MessageKind(kind),
		CreatedAt:      time.UnixMilli(createdAt),
	}
	if body, ok := entry.Values["body"].(string); ok {
		msg.Body = body
	}
	if v, err := parseInt64(entry.Values, "proposal_id"); err == nil {
		msg.ProposalID = &v
	}
	if v, err := parseInt64(entry.Values, "new_proposal_id"); err == nil {
		msg.NewProposalID = &v
	}
	return msg, nil
}

func parseInt64(values map[string]interface{}, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type for %s", key)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
