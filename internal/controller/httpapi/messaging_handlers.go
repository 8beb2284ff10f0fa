package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keepAliveEvery = 25 * time.Second

type createConversationRequest struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) listConversations(c *gin.Context) {
	convs, err := s.svc.Messaging.ListConversations(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(convs))
}

func (s *Server) createConversation(c *gin.Context) {
	var req createConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := s.svc.Messaging.CreateConversation(c.Request.Context(), currentSession(c), req.ParticipantIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// listMessages returns the thread and marks it read for the caller.
func (s *Server) listMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, sess := c.Request.Context(), currentSession(c)
	msgs, err := s.svc.Messaging.ListMessages(ctx, sess, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.svc.Messaging.MarkAsRead(ctx, sess, id)
	c.JSON(http.StatusOK, list(msgs))
}

func (s *Server) sendMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := s.svc.Messaging.SendMessage(c.Request.Context(), currentSession(c), id, req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) markRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s.svc.Messaging.MarkAsRead(c.Request.Context(), currentSession(c), id)
	c.Status(http.StatusNoContent)
}

func (s *Server) contacts(c *gin.Context) {
	contacts, err := s.svc.Messaging.Contacts(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(contacts))
}

// streamConversations pushes the whole conversation list on open and again
// after every change to it.
func (s *Server) streamConversations(c *gin.Context) {
	ctx, sess := c.Request.Context(), currentSession(c)
	sub, err := s.svc.Messaging.WatchConversations(ctx, sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer sub.Close()

	s.stream(c, sub, "conversations", func(ctx context.Context) (any, error) {
		convs, err := s.svc.Messaging.ListConversations(ctx, sess)
		return list(convs), err
	})
}

// streamMessages pushes the whole thread on open and after every new
// message, marking it read each time since the viewer has it on screen.
func (s *Server) streamMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, sess := c.Request.Context(), currentSession(c)
	sub, err := s.svc.Messaging.WatchMessages(ctx, sess, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer sub.Close()

	s.stream(c, sub, "messages", func(ctx context.Context) (any, error) {
		msgs, err := s.svc.Messaging.ListMessages(ctx, sess, id)
		if err != nil {
			return nil, err
		}
		s.svc.Messaging.MarkAsRead(ctx, sess, id)
		return list(msgs), nil
	})
}

// stream writes a snapshot event from fetch on open and on every event of
// sub until the client goes away or the subscription ends.
func (s *Server) stream(c *gin.Context, sub *realtime.Subscription, name string, fetch func(context.Context) (any, error)) {
	ctx := c.Request.Context()
	logger := s.logger.With(
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("stream", name))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	snapshot := func() bool {
		data, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Failed to refresh stream", zap.Error(err))
			}
			return false
		}
		c.SSEvent(name, data)
		return true
	}

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	first := true
	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
			return snapshot()
		}
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-sub.Events():
			if !ok {
				return false
			}
			return snapshot()
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	logger.Debug("Stream closed")
}
