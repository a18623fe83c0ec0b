package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteDeadline = 10 * time.Second
	wsPingInterval  = 30 * time.Second
)

// handleWebSocket mirrors the SSE artifact feed over a websocket for clients
// that prefer a socket. Inbound client frames are read only to detect close.
func (s *Server) handleWebSocket(c *gin.Context) {
	chatID := c.Param("chatID")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer conn.Close()

	ch, err := s.bus.Watch(c.Request.Context(), chatID)
	if err != nil {
		s.logger.Error("websocket watch for chat %s: %v", chatID, err)
		return
	}
	s.logger.Info("websocket connection established for chat %s", chatID)

	// Drain client frames so close handshakes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Warn("websocket write for chat %s: %v", chatID, err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Request.Context().Done():
			s.logger.Info("websocket connection closed for chat %s", chatID)
			return
		}
	}
}
