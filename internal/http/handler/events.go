package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/http/dto"
	"dwello.app/dealroom/internal/http/middleware"
	"dwello.app/dealroom/internal/inbox"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
	"dwello.app/dealroom/internal/stream"
)

const heartbeatInterval = 25 * time.Second

// EventsHandler serves the live conversation feed over SSE. Each connection
// gets its own reconciling consumer and session view; the client resumes
// from its last applied seq via from_seq.
type EventsHandler struct {
	negotiations service.NegotiationService
	transport    stream.Transport
	messages     store.MessageStore
	cfg          config.StreamConfig
}

func NewEventsHandler(
	negotiations service.NegotiationService,
	transport stream.Transport,
	messages store.MessageStore,
	cfg config.StreamConfig,
) *EventsHandler {
	return &EventsHandler{
		negotiations: negotiations,
		transport:    transport,
		messages:     messages,
		cfg:          cfg,
	}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	actorID := middleware.ActorID(c)

	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, err := h.negotiations.GetConversation(c.Request.Context(), actorID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fromSeq, _ := strconv.ParseInt(c.Query("from_seq"), 10, 64)

	view := inbox.New()
	view.Seed(*conv)
	defer view.Close()

	consumer := stream.NewConsumer(h.transport, h.messages, view, stream.ConsumerConfig{
		ConversationID: conversationID,
		FromSeq:        fromSeq,
		BufferSize:     h.cfg.BufferSize,
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		_ = consumer.Run(ctx)
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case ev, open := <-consumer.Events():
			if !open {
				return
			}
			if ev.Gapped {
				// The buffer shed events; tell the client to refetch.
				c.SSEvent("gap", gin.H{"refetch_before": ev.Message.Seq})
			}
			c.SSEvent(string(ev.Type), dto.ToMessageResponse(&ev.Message))
			c.Writer.Flush()
		}
	}
}
