package workspace

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/orion/internal/api/middleware"
	"github.com/liliang-cn/orion/internal/chart"
	"github.com/liliang-cn/orion/internal/client"
	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/service"
	"github.com/liliang-cn/orion/internal/store"
)

// Handler exposes the workspace over HTTP
type Handler struct {
	workspace *service.WorkspaceService
}

// NewHandler creates a new workspace handler
func NewHandler(workspace *service.WorkspaceService) *Handler {
	return &Handler{workspace: workspace}
}

// RegisterRoutes registers workspace routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/state", h.GetState)
	r.POST("/upload", h.Upload)
	r.POST("/ask", h.Ask)
	r.POST("/suggestions", h.RefreshSuggestions)
	r.GET("/suggestions/contextual", h.ContextualSuggestions)
	r.POST("/reset", h.Reset)

	threads := r.Group("/threads")
	threads.POST("", h.CreateThread)
	threads.PUT("/:id/active", h.SelectThread)
	threads.PATCH("/:id", h.RenameThread)
	threads.DELETE("/:id", h.DeleteThread)
	threads.GET("/:id/messages/:messageId/charts", h.GetCharts)
}

// StateResponse is the workspace state plus the views derived from it
type StateResponse struct {
	State           store.State           `json:"state"`
	CurrentMessages []domain.ChatMessage  `json:"currentMessages"`
	CurrentFileID   string                `json:"currentFileId,omitempty"`
	CurrentSchema   *domain.DatasetSchema `json:"currentSchema"`
	Revision        uint64                `json:"revision"`
}

type askRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// GetState returns the current workspace state
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse())
}

// Upload accepts a multipart file and forwards it to the backend
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "No file uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer f.Close()

	schema, err := h.workspace.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// Ask submits a question about the current file
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	msg, err := h.workspace.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// RefreshSuggestions reloads schema-tailored prompts
func (h *Handler) RefreshSuggestions(c *gin.Context) {
	suggestions := h.workspace.RefreshSuggestions(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ContextualSuggestions returns follow-up questions for the current conversation
func (h *Handler) ContextualSuggestions(c *gin.Context) {
	suggestions := h.workspace.ContextualSuggestions(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// CreateThread starts an empty chat
func (h *Handler) CreateThread(c *gin.Context) {
	c.JSON(http.StatusCreated, h.workspace.NewChat())
}

// SelectThread makes a thread active
func (h *Handler) SelectThread(c *gin.Context) {
	if err := h.workspace.SelectThread(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

// RenameThread changes a thread's title
func (h *Handler) RenameThread(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id := c.Param("id")
	if err := h.workspace.RenameThread(id, req.Title); err != nil {
		h.fail(c, err)
		return
	}
	thread, _ := h.workspace.State().Thread(id)
	c.JSON(http.StatusOK, thread)
}

// DeleteThread removes a thread
func (h *Handler) DeleteThread(c *gin.Context) {
	if err := h.workspace.DeleteThread(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCharts returns render plans for the charts attached to a message
func (h *Handler) GetCharts(c *gin.Context) {
	msg, err := h.workspace.FindMessage(c.Param("id"), c.Param("messageId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chartStatus":   msg.ChartStatus,
		"chartMessage":  msg.ChartMessage,
		"retryAttempts": msg.RetryAttempts,
		"plans":         chart.BuildAll(msg.Charts),
	})
}

// Reset discards the whole workspace
func (h *Handler) Reset(c *gin.Context) {
	h.workspace.Reset()
	c.Status(http.StatusNoContent)
}

func (h *Handler) stateResponse() StateResponse {
	st := h.workspace.State()
	return StateResponse{
		State:           st,
		CurrentMessages: st.CurrentMessages(),
		CurrentFileID:   st.CurrentFileID(),
		CurrentSchema:   st.CurrentSchema(),
		Revision:        h.workspace.Revision(),
	}
}

// fail maps a service error onto a status code and error body
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var backendErr *client.Error
	switch {
	case errors.As(err, &backendErr):
		requestID := backendErr.RequestID
		if requestID == "" {
			requestID = middleware.RequestID(c)
		}
		typ := backendErr.Type
		if typ == "" {
			typ = string(backendErr.Kind)
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     backendErr.Message,
			"requestId": requestID,
			"status":    backendErr.Status,
			"type":      typ,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrRequestInFlight):
		writeError(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrNoDataset),
		errors.Is(err, domain.ErrUnsupportedFile):
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeError(c *gin.Context, status int, typ, msg string) {
	c.JSON(status, gin.H{
		"error":     msg,
		"requestId": middleware.RequestID(c),
		"status":    status,
		"type":      typ,
	})
}
