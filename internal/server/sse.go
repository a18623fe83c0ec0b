package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"easel/internal/shared/jsonx"
)

const sseHeartbeatInterval = 30 * time.Second

// handleSSE streams artifact events for one chat over Server-Sent Events.
func (s *Server) handleSSE(c *gin.Context) {
	chatID := c.Param("chatID")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ch, err := s.bus.Watch(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("SSE connection established for chat %s", chatID)

	if _, err := fmt.Fprintf(c.Writer, "event: connected\ndata: {\"chat_id\":%q}\n\n", chatID); err != nil {
		s.logger.Error("failed to send connection message: %v", err)
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			data, err := jsonx.Marshal(event)
			if err != nil {
				s.logger.Error("failed to serialize artifact event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "event: artifacts\ndata: %s\n\n", data); err != nil {
				s.logger.Error("failed to send SSE message: %v", err)
				continue
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(c.Writer, ": heartbeat\n\n"); err != nil {
				s.logger.Error("failed to send heartbeat: %v", err)
				return
			}
			flusher.Flush()

		case <-c.Request.Context().Done():
			s.logger.Info("SSE connection closed for chat %s", chatID)
			return
		}
	}
}
