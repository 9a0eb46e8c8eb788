package ws

import (
	"context"
	"encoding/json"
	"time"

	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/validator"
	"hamsafar_backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// Client - одно сокет-соединение. У пользователя их может быть несколько.
type Client struct {
	ID     string
	UserID string
	Name   string

	conn    *websocket.Conn
	send    chan []byte
	ctx     context.Context
	manager *WebSocketManager

	db          *gorm.DB
	chatService services.ChatService
	validator   *validator.Validator

	// rooms и closed меняются только под manager.mu
	rooms      map[string]struct{}
	closed     bool
	registered chan struct{}

	// переписки, где этот клиент сейчас печатает; трогает только readPump
	typingIn map[string]struct{}
}

func newClient(
	ctx context.Context,
	manager *WebSocketManager,
	conn *websocket.Conn,
	identity *auth.Identity,
	db *gorm.DB,
	chatService services.ChatService,
	v *validator.Validator,
) *Client {
	id := uuid.NewString()
	ctx = logger.WithConnID(logger.WithUserID(ctx, identity.ID), id)

	client := newBareClient(ctx, manager, id, identity)
	client.conn = conn
	client.db = db.WithContext(ctx)
	client.chatService = chatService
	client.validator = v
	return client
}

// newBareClient - клиент без сокета и сервисов: хватает для комнат и доставки.
func newBareClient(ctx context.Context, manager *WebSocketManager, id string, identity *auth.Identity) *Client {
	buffer := manager.opts.SendBuffer
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		ID:         id,
		UserID:     identity.ID,
		Name:       identity.Name,
		send:       make(chan []byte, buffer),
		ctx:        ctx,
		manager:    manager,
		rooms:      make(map[string]struct{}),
		registered: make(chan struct{}),
		typingIn:   make(map[string]struct{}),
	}
}

// enqueue не блокируется. false - буфер переполнен.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readPump читает кадры и обрабатывает события до ошибки чтения.
func (c *Client) readPump() {
	opts := c.manager.opts
	defer func() {
		c.flushTyping()
		c.manager.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.CtxWarn(c.ctx, "WebSocket read error", "error", err)
			}
			return
		}

		var envelope realtime.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Event == "" {
			c.replyError("", apperrors.NewBadRequestError("Malformed frame: expected {\"event\": ..., \"data\": ...}"))
			continue
		}
		c.handleEvent(envelope)
	}
}

// writePump - единственный писатель в conn. Один кадр - одно событие.
func (c *Client) writePump() {
	opts := c.manager.opts
	ticker := time.NewTicker(opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// хаб закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.CtxDebug(c.ctx, "WebSocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(event string, payload any) {
	c.manager.sendTo(c, event, payload)
}

func (c *Client) replyError(event string, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		logger.CtxWithError(c.ctx, "Socket event failed", err, "event", event)
		appErr = apperrors.InternalError(err)
	} else if appErr.HTTPCode >= 500 {
		logger.CtxWithError(c.ctx, "Socket event failed", err, "event", event)
	}

	c.reply(realtime.EventError, realtime.ErrorPayload{
		Event:   event,
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
}

// flushTyping рассылает stop_typing за всех, кого этот клиент оставил "печатающим".
func (c *Client) flushTyping() {
	for conversationID := range c.typingIn {
		if c.manager.typing.Stop(conversationID, c.UserID) {
			c.manager.BroadcastToRoomExcept(realtime.ConversationRoom(conversationID), realtime.EventStopTyping,
				realtime.TypingPayload{ConversationID: conversationID, UserID: c.UserID}, c)
		}
	}
	clear(c.typingIn)
}
