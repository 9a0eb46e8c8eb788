package ws

import (
	"sync"
	"time"
)

type typingKey struct {
	conversationID string
	userID         string
}

type typingEntry struct {
	timer  *time.Timer
	origin *Client
}

// TypingExpireFunc получает соединение, приславшее последний typing.
type TypingExpireFunc func(conversationID, userID string, origin *Client)

// TypingTracker держит таймер простоя на каждую пару (переписка, пользователь).
// Если новый typing не пришел за idle, вызывается onExpire.
type TypingTracker struct {
	idle     time.Duration
	onExpire TypingExpireFunc

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
}

func NewTypingTracker(idle time.Duration, onExpire TypingExpireFunc) *TypingTracker {
	return &TypingTracker{
		idle:     idle,
		onExpire: onExpire,
		entries:  make(map[typingKey]*typingEntry),
	}
}

// Touch продлевает окно набора и запоминает origin как источник.
// Возвращает true, если набор только начался.
func (t *TypingTracker) Touch(conversationID, userID string, origin *Client) bool {
	key := typingKey{conversationID, userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		entry.origin = origin
		entry.timer.Reset(t.idle)
		return false
	}

	entry := &typingEntry{origin: origin}
	entry.timer = time.AfterFunc(t.idle, func() {
		t.mu.Lock()
		// запись могли заменить или снять, пока колбэк ждал блокировку
		if t.entries[key] != entry {
			t.mu.Unlock()
			return
		}
		delete(t.entries, key)
		origin := entry.origin
		t.mu.Unlock()

		if t.onExpire != nil {
			t.onExpire(conversationID, userID, origin)
		}
	})
	t.entries[key] = entry
	return true
}

// Stop снимает таймер. Возвращает true, если пользователь печатал.
func (t *TypingTracker) Stop(conversationID, userID string) bool {
	key := typingKey{conversationID, userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.entries, key)
	return true
}

func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{conversationID, userID}]
	return ok
}

// StopAll снимает все таймеры без вызова onExpire.
func (t *TypingTracker) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}
