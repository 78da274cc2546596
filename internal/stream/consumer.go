package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/store"
)

type EventType string

const (
	// EventInsert is a live append observed on the transport.
	EventInsert EventType = "insert"
	// EventBackfill is a catch-up message fetched from the database to
	// repair a seq gap or resume after reconnect.
	EventBackfill EventType = "backfill"
)

type Event struct {
	Type    EventType
	Message model.Message

	// Gapped marks the first event delivered after the subscription buffer
	// overflowed and dropped older entries. Receivers should refetch the
	// range they missed.
	Gapped bool
}

// Applier folds messages into local state. Applying the same message twice
// must be a no-op.
type Applier interface {
	ApplyMessage(msg model.Message)
}

type ConsumerConfig struct {
	ConversationID int64

	// FromSeq is the last locally applied seq; consumption resumes after
	// it, not from stream start.
	FromSeq int64

	BufferSize int
	BatchSize  int64
	Block      time.Duration
}

// Consumer maintains a live, ordered view of one conversation's message log.
// The transport is at-least-once and may replay or skip entries across
// reconnects; the consumer deduplicates by seq and repairs gaps from the
// database before applying further live events.
type Consumer struct {
	transport Transport
	messages  store.MessageStore
	applier   Applier
	cfg       ConsumerConfig

	events  chan Event
	nextSeq int64
	dropped bool
}

func NewConsumer(transport Transport, messages store.MessageStore, applier Applier, cfg ConsumerConfig) *Consumer {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &Consumer{
		transport: transport,
		messages:  messages,
		applier:   applier,
		cfg:       cfg,
		events:    make(chan Event, cfg.BufferSize),
		nextSeq:   cfg.FromSeq + 1,
	}
}

// Events delivers reconciled messages in seq order. The channel is closed
// when Run returns.
func (c *Consumer) Events() <-chan Event {
	return c.events
}

// Run drives the subscription until ctx is cancelled. Transport failures are
// absorbed internally: the consumer resubscribes with backoff and repairs
// any missed range through backfill.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.events)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(c.cfg.ConversationID),
		Component:      "dealroom.stream.consumer",
	})

	if err := c.catchUp(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "initial catch-up failed, relying on live backfill", "error", err)
	}

	const (
		baseDelay = 250 * time.Millisecond
		maxDelay  = 5 * time.Second
	)
	delay := baseDelay
	lastStreamID := "0"

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := c.transport.Read(ctx, c.cfg.ConversationID, lastStreamID, c.cfg.BatchSize, c.cfg.Block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.WarnContext(ctx, "stream read failed, reconnecting", "error", err, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if delay *= 2; delay > maxDelay {
				delay = maxDelay
			}
			continue
		}
		delay = baseDelay

		for _, ev := range raw {
			if err := c.reconcile(ctx, ev.Message); err != nil {
				// Re-read from the last fully reconciled entry; duplicates
				// on replay are dropped by seq.
				slog.WarnContext(ctx, "reconcile failed, replaying entry", "error", err, "seq", ev.Message.Seq)
				break
			}
			lastStreamID = ev.StreamID
		}
	}
}

// catchUp resumes from the last locally applied seq by draining the
// database before touching the live stream.
func (c *Consumer) catchUp(ctx context.Context) error {
	for {
		batch, err := c.messages.ListAfter(ctx, c.cfg.ConversationID, c.nextSeq-1, int32(c.cfg.BatchSize))
		if err != nil {
			return fmt.Errorf("fetching catch-up batch: %w", err)
		}
		for _, msg := range batch {
			c.apply(msg, EventBackfill)
		}
		if int64(len(batch)) < c.cfg.BatchSize {
			return nil
		}
	}
}

func (c *Consumer) reconcile(ctx context.Context, msg model.Message) error {
	if msg.ConversationID != c.cfg.ConversationID {
		return nil
	}

	// Duplicate delivery: already applied.
	if msg.Seq < c.nextSeq {
		return nil
	}

	// Gap: fetch the missing range before applying the live event, so
	// application order is strictly increasing seq.
	if msg.Seq > c.nextSeq {
		missing, err := c.messages.ListRange(ctx, c.cfg.ConversationID, c.nextSeq, msg.Seq-1)
		if err != nil {
			return fmt.Errorf("backfilling seq %d..%d: %w", c.nextSeq, msg.Seq-1, err)
		}
		for _, m := range missing {
			c.apply(m, EventBackfill)
		}
		if c.nextSeq != msg.Seq {
			return fmt.Errorf("backfill left gap before seq %d", msg.Seq)
		}
	}

	c.apply(msg, EventInsert)
	return nil
}

func (c *Consumer) apply(msg model.Message, typ EventType) {
	if msg.Seq < c.nextSeq {
		return
	}
	c.applier.ApplyMessage(msg)
	c.nextSeq = msg.Seq + 1
	c.emit(Event{Type: typ, Message: msg})
}

// emit never blocks the reconciler: when the buffer is full the oldest
// buffered event is dropped and the next delivery carries the gap flag.
func (c *Consumer) emit(ev Event) {
	if c.dropped {
		ev.Gapped = true
	}
	for {
		select {
		case c.events <- ev:
			if ev.Gapped {
				c.dropped = false
			}
			return
		default:
		}
		select {
		case <-c.events:
			c.dropped = true
			ev.Gapped = true
		default:
		}
	}
}
