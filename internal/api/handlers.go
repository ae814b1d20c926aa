package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"messaging/internal/models"
	"messaging/internal/service"
)

type Handler struct {
	Messages   *service.MessageService
	Users      *service.UserService
	Dispatcher *service.Dispatcher
	log        logrus.FieldLogger
}

func NewAPIHandler(messages *service.MessageService, users *service.UserService, dispatcher *service.Dispatcher, log logrus.FieldLogger) *Handler {
	return &Handler{
		Messages:   messages,
		Users:      users,
		Dispatcher: dispatcher,
		log:        log,
	}
}

type EditMessageRequest struct {
	EditorID int64  `json:"editor_id" binding:"required,gt=0"`
	Content  string `json:"content" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps service errors onto status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	}
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func optionalID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

func (h *Handler) conversationFilter(c *gin.Context) (models.ConversationFilter, bool) {
	a, ok := optionalID(c, "user_a")
	if !ok {
		return models.ConversationFilter{}, false
	}
	b, ok := optionalID(c, "user_b")
	if !ok {
		return models.ConversationFilter{}, false
	}
	return models.ConversationFilter{UserA: a, UserB: b}, true
}

// ConversationView renders every message with its sender, receiver and replies.
// @Summary Conversation page
// @Produce html
// @Param user_a query int false "first participant"
// @Param user_b query int false "second participant"
// @Success 200 {string} string "HTML page"
// @Router /conversation [get]
func (h *Handler) ConversationView(c *gin.Context) {
	filter, ok := h.conversationFilter(c)
	if !ok {
		return
	}
	messages, err := h.Messages.Conversation(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, "conversation.html", gin.H{"messages": messages})
}

// Conversation is the JSON form of ConversationView.
// @Summary Conversation as JSON
// @Produce json
// @Param user_a query int false "first participant"
// @Param user_b query int false "second participant"
// @Success 200 {object} map[string][]models.ConversationMessage
// @Router /api/v1/conversation [get]
func (h *Handler) Conversation(c *gin.Context) {
	filter, ok := h.conversationFilter(c)
	if !ok {
		return
	}
	messages, err := h.Messages.Conversation(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CreateUser godoc
// @Summary Create a user
// @Accept json
// @Produce json
// @Param user body service.NewUser true "user"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req service.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.Users.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// SendMessage godoc
// @Summary Send a message
// @Accept json
// @Produce json
// @Param message body service.NewMessage true "message"
// @Success 201 {object} models.Message
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req service.NewMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.Messages.SendMessage(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessage godoc
// @Summary Get a message
// @Produce json
// @Param id path int true "message id"
// @Success 200 {object} models.Message
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.Messages.GetMessage(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// EditMessage godoc
// @Summary Edit a message
// @Accept json
// @Produce json
// @Param id path int true "message id"
// @Param edit body EditMessageRequest true "new content"
// @Success 200 {object} models.Message
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages/{id} [patch]
func (h *Handler) EditMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.Messages.EditMessage(c.Request.Context(), id, req.EditorID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary Delete a message
// @Param id path int true "message id"
// @Param X-User-ID header int true "acting user"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(c, "invalid X-User-ID header")
		return
	}
	if err := h.Messages.DeleteMessage(c.Request.Context(), id, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MessageHistory godoc
// @Summary Edit history of a message, newest first
// @Produce json
// @Param id path int true "message id"
// @Success 200 {object} map[string][]models.MessageHistory
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/messages/{id}/history [get]
func (h *Handler) MessageHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	history, err := h.Messages.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// ListNotifications godoc
// @Summary Notifications of a user, newest first
// @Produce json
// @Param id path int true "user id"
// @Param unread query bool false "only unread"
// @Success 200 {object} map[string][]models.Notification
// @Router /api/v1/users/{id}/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	notifications, err := h.Messages.Notifications(c.Request.Context(), userID, unread)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationRead godoc
// @Summary Mark a notification read
// @Param id path int true "user id"
// @Param nid path int true "notification id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id}/notifications/{nid}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	notificationID, ok := idParam(c, "nid")
	if !ok {
		return
	}
	if err := h.Messages.MarkNotificationRead(c.Request.Context(), userID, notificationID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Start the notification dispatcher
// @Router /api/v1/dispatcher/start [post]
func (h *Handler) StartDispatcher(c *gin.Context) {
	if h.Dispatcher.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"message": "Dispatcher already running"})
		return
	}
	_ = h.Dispatcher.Start()
	c.JSON(http.StatusOK, gin.H{"message": "Dispatcher started"})
}

// @Summary Stop the notification dispatcher
// @Router /api/v1/dispatcher/stop [post]
func (h *Handler) StopDispatcher(c *gin.Context) {
	if !h.Dispatcher.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"message": "Dispatcher already stopped"})
		return
	}
	_ = h.Dispatcher.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Dispatcher stopped"})
}
