package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mikeboe/search-helper/pkg/chat"
	"github.com/mikeboe/search-helper/pkg/dialogue"
)

type Handler struct {
	Chat   *chat.Service
	MCP    *MCPServer
	Logger *slog.Logger
}

func NewHandler(c *chat.Service, m *MCPServer) *Handler {
	return &Handler{Chat: c, MCP: m, Logger: slog.Default()}
}

// NewRouter builds the gin engine with logging, recovery, CORS and routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(h.Logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders: []string{"Content-Length", "Mcp-Session-Id"},
	}))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.MCP != nil {
		mcpHandler := gin.WrapH(h.MCP.Handler())
		r.GET("/mcp", mcpHandler)
		r.POST("/mcp", mcpHandler)
		r.DELETE("/mcp", mcpHandler)
	}

	api := r.Group("/api")
	{
		api.GET("/variants", h.listVariants)

		api.POST("/sessions", h.createSession)
		api.GET("/sessions/:id", h.getSession)
		api.DELETE("/sessions/:id", h.deleteSession)
		api.POST("/sessions/:id/messages", h.sendMessage)
		api.POST("/sessions/:id/reset", h.resetSession)
	}
}

type variantResponse struct {
	Name        string              `json:"name"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Language    string              `json:"language"`
	ResetLabel  string              `json:"reset_label"`
	Questions   []dialogue.Question `json:"questions"`
}

func (h *Handler) listVariants(c *gin.Context) {
	variants := h.Chat.ListVariants()
	out := make([]variantResponse, len(variants))
	for i, v := range variants {
		out[i] = variantResponse{
			Name:        v.Name,
			Title:       v.Title,
			Description: v.Description,
			Language:    v.Language,
			ResetLabel:  v.ResetLabel,
			Questions:   v.Questions,
		}
	}
	c.JSON(http.StatusOK, out)
}

type createSessionRequest struct {
	Variant string `json:"variant" binding:"required"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Chat.CreateSession(req.Variant)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) getSession(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.Chat.GetSession(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) deleteSession(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Chat.DeleteSession(id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resetSession(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.Chat.Reset(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) sendMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var answer dialogue.Answer
	if err := c.ShouldBindJSON(&answer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next, err := h.Chat.SendMessage(c.Request.Context(), id, answer)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for event, err := range next {
		if err != nil {
			writeEvent(c, chat.StreamEvent{Type: chat.EventError, Payload: err.Error()})
			return
		}
		if !writeEvent(c, event) {
			return
		}
	}
}

// writeEvent writes one SSE frame and reports whether the client is still
// there.
func writeEvent(c *gin.Context, event chat.StreamEvent) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	if _, err := c.Writer.Write([]byte("\n\n")); err != nil {
		return false
	}
	c.Writer.Flush()
	return c.Request.Context().Err() == nil
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dialogue.ErrEmptyAnswer):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrSessionNotFound), errors.Is(err, dialogue.ErrUnknownVariant):
		status = http.StatusNotFound
	case errors.Is(err, dialogue.ErrNotCollecting):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
