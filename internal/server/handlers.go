package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"easel/internal/artifact/store"
	"easel/internal/orchestrator"
	"easel/internal/shared/jsonx"
)

// Identity is the opaque user identity forwarded by the auth layer. The core
// performs no authentication; this is trace context only.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func identityFrom(c *gin.Context) Identity {
	return Identity{
		ID:    c.GetHeader("X-User-Id"),
		Email: c.GetHeader("X-User-Email"),
		Name:  c.GetHeader("X-User-Name"),
	}
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	chatID := c.Param("chatID")
	c.JSON(http.StatusOK, s.orch.Artifacts(chatID))
}

func (s *Server) handleGetArtifact(c *gin.Context) {
	doc, err := s.orch.Document(c.Param("chatID"), c.Param("docID"))
	if err != nil {
		notFoundOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Plain())
}

func (s *Server) handleRenderArtifact(c *gin.Context) {
	view, err := s.orch.Render(c.Param("chatID"), c.Param("docID"))
	if err != nil {
		notFoundOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleListVersions(c *gin.Context) {
	versions, err := s.orch.Versions(c.Param("chatID"), c.Param("docID"))
	if err != nil {
		notFoundOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (s *Server) handleSnapshotVersion(c *gin.Context) {
	if err := s.orch.SnapshotVersion(c.Param("chatID"), c.Param("docID")); err != nil {
		notFoundOrError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRestoreVersion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version index must be an integer"})
		return
	}
	if err := s.orch.RestoreVersion(c.Request.Context(), c.Param("chatID"), c.Param("docID"), index); err != nil {
		notFoundOrError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetVisibility(c *gin.Context) {
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.orch.SetVisible(c.Request.Context(), c.Param("chatID"), c.Param("docID"), body.Visible); err != nil {
		notFoundOrError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRunAction(c *gin.Context) {
	var effects []gin.H
	emit := func(effect string, payload map[string]any) error {
		effects = append(effects, gin.H{"effect": effect, "payload": payload})
		return nil
	}
	err := s.orch.RunAction(c.Param("chatID"), c.Param("docID"), c.Param("label"), emit)
	if err != nil {
		notFoundOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"effects": effects})
}

// handleStream ingests an NDJSON stream of inbound events for one chat. The
// body is consumed line by line so long generations start updating documents
// before the request completes. A clean EOF does not finish the chat; the
// producer signals that explicitly via /stream/finish.
func (s *Server) handleStream(c *gin.Context) {
	chatID := c.Param("chatID")
	user := identityFrom(c)
	s.logger.Debug("stream ingest for chat %s (user %s)", chatID, user.ID)

	decoder := jsonx.NewDecoder(c.Request.Body)
	ingested := 0
	for {
		var event orchestrator.InboundEvent
		if err := decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "ingested": ingested})
			return
		}
		if err := s.orch.Ingest(c.Request.Context(), chatID, event); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "ingested": ingested})
			return
		}
		ingested++
	}
	c.JSON(http.StatusOK, gin.H{"ingested": ingested})
}

func (s *Server) handleFinish(c *gin.Context) {
	var body struct {
		Error string `json:"error"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var failure error
	if body.Error != "" {
		failure = errors.New(body.Error)
	}
	if err := s.orch.Finish(c.Request.Context(), c.Param("chatID"), failure); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleEvictChat(c *gin.Context) {
	if err := s.orch.EvictChat(c.Request.Context(), c.Param("chatID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func notFoundOrError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
