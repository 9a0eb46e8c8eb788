// Package ws - realtime-хаб: соединения, комнаты и доставка событий по сокетам.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hamsafar_backend/internal/config"
	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/realtime"
)

// Options - параметры соединений и индикатора набора.
type Options struct {
	TypingIdle     time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TypingIdle:     cfg.Realtime.TypingIdle,
		WriteWait:      cfg.Realtime.WriteWait,
		PongWait:       cfg.Realtime.PongWait,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		SendBuffer:     cfg.Realtime.SendBuffer,
	}
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// WebSocketManager хранит активные соединения и их комнаты.
// Комната существует, пока в ней есть хотя бы одно соединение.
type WebSocketManager struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	typing *TypingTracker
	opts   Options
}

var _ realtime.Broadcaster = (*WebSocketManager)(nil)

func NewWebSocketManager(opts Options) *WebSocketManager {
	m := &WebSocketManager{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		opts:       opts,
	}
	m.typing = NewTypingTracker(opts.TypingIdle, m.typingExpired)
	return m
}

// Run обслуживает регистрацию соединений до отмены ctx.
// После остановки все соединения закрываются.
func (m *WebSocketManager) Run(ctx context.Context) {
	defer m.shutdown()

	for {
		select {
		case client := <-m.register:
			m.add(client)
			close(client.registered)
			logger.CtxDebug(client.ctx, "Client registered", "total", m.ClientCount())

		case client := <-m.unregister:
			if m.remove(client) {
				logger.CtxDebug(client.ctx, "Client unregistered", "total", m.ClientCount())
			}

		case <-ctx.Done():
			return
		}
	}
}

func (m *WebSocketManager) shutdown() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.typing.StopAll()

		m.mu.Lock()
		defer m.mu.Unlock()
		for client := range m.clients {
			m.detachLocked(client)
		}
	})
}

// Register добавляет соединение и сразу сажает его в комнату пользователя.
// Возвращает управление, когда соединение уже в хабе; false - хаб остановлен.
func (m *WebSocketManager) Register(client *Client) bool {
	select {
	case m.register <- client:
	case <-m.done:
		return false
	}
	select {
	case <-client.registered:
		return true
	case <-m.done:
		return false
	}
}

// Unregister убирает соединение из всех комнат. Повторный вызов безопасен.
func (m *WebSocketManager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
		m.remove(client)
	}
}

func (m *WebSocketManager) add(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client] = struct{}{}
	m.joinLocked(client, realtime.UserRoom(client.UserID))
}

func (m *WebSocketManager) remove(client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client]; !ok {
		return false
	}
	m.detachLocked(client)
	return true
}

// detachLocked закрывает send. Отправки идут под RLock, поэтому закрытие под Lock
// не пересекается с записью в канал.
func (m *WebSocketManager) detachLocked(client *Client) {
	for room := range client.rooms {
		m.leaveLocked(client, room)
	}
	delete(m.clients, client)
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}

// ============================================
// Rooms
// ============================================

func (m *WebSocketManager) Join(client *Client, room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client]; !ok {
		return false
	}
	m.joinLocked(client, room)
	return true
}

func (m *WebSocketManager) Leave(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(client, room)
}

func (m *WebSocketManager) InRoom(client *Client, room string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[room][client]
	return ok
}

func (m *WebSocketManager) joinLocked(client *Client, room string) {
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (m *WebSocketManager) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)
	members, ok := m.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
}

func (m *WebSocketManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *WebSocketManager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// ============================================
// Delivery
// ============================================

// BroadcastToRoom отправляет событие всем соединениям комнаты. Не блокируется:
// соединение с переполненным буфером отключается.
func (m *WebSocketManager) BroadcastToRoom(room, event string, payload any) {
	m.BroadcastToRoomExcept(room, event, payload, nil)
}

// BroadcastToRoomExcept - то же, но без соединения except.
func (m *WebSocketManager) BroadcastToRoomExcept(room, event string, payload any, except *Client) {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		logger.Error("Failed to encode event", "event", event, "room", room, "error", err)
		return
	}

	var slow []*Client

	m.mu.RLock()
	for client := range m.rooms[room] {
		if client == except {
			continue
		}
		if !client.enqueue(frame) {
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		logger.CtxWarn(client.ctx, "Client disconnected due to full send buffer", "room", room)
		m.remove(client)
	}
}

// sendTo отвечает одному соединению (joined, error).
func (m *WebSocketManager) sendTo(client *Client, event string, payload any) {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		logger.CtxError(client.ctx, "Failed to encode event", "event", event, "error", err)
		return
	}

	m.mu.RLock()
	ok := client.closed || client.enqueue(frame)
	m.mu.RUnlock()

	if !ok {
		m.remove(client)
	}
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.Envelope{Event: event, Data: data})
}

// ============================================
// Typing
// ============================================

// typingExpired рассылает stop_typing всем в комнате, кроме печатавшего соединения.
func (m *WebSocketManager) typingExpired(conversationID, userID string, origin *Client) {
	m.BroadcastToRoomExcept(realtime.ConversationRoom(conversationID), realtime.EventStopTyping,
		realtime.TypingPayload{ConversationID: conversationID, UserID: userID}, origin)
}
