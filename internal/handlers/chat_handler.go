package handlers

import (
	"net/http"

	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	chatService services.ChatService
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		chatService: chatService,
	}
}

// RegisterRoutes ждет группу, уже закрытую AuthMiddleware.
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	{
		conversations.POST("", h.ResolveConversation)
		conversations.GET("", h.GetUserConversations)
		conversations.GET("/unread-count", h.GetUnreadCount)
		conversations.GET("/:conversationId", h.GetConversation)
		conversations.GET("/:conversationId/messages", h.GetMessages)
		conversations.POST("/:conversationId/mark-as-read", h.MarkAsRead)
		conversations.POST("/messages", h.SendMessage)
	}
}

// --- Conversations ---

// ResolveConversation: 201 - переписка создана, 200 - уже была.
func (h *ChatHandler) ResolveConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateConversationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	participantIDs, err := req.Normalize()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	conversation, created, err := h.chatService.ResolveConversation(h.GetDB(c), userID, participantIDs)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conversation)
}

func (h *ChatHandler) GetUserConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	conversations, err := h.chatService.GetUserConversations(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	conversationID, ok := h.PathID(c, "conversationId")
	if !ok {
		return
	}

	conversation, err := h.chatService.GetConversation(h.GetDB(c), conversationID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// --- Messages ---

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	conversationID, ok := h.PathID(c, "conversationId")
	if !ok {
		return
	}

	messages, err := h.chatService.GetMessages(h.GetDB(c), conversationID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// --- Read receipts ---

func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	count, err := h.chatService.GetUnreadCount(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	conversationID, ok := h.PathID(c, "conversationId")
	if !ok {
		return
	}

	marked, err := h.chatService.MarkConversationRead(h.GetDB(c), userID, conversationID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{MarkedCount: marked})
}
