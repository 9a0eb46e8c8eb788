package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hamsafar_backend/internal/app"
	"hamsafar_backend/internal/models"
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/services/dto"
	"hamsafar_backend/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	app *app.App
	srv *httptest.Server
}

func startServer(t *testing.T) (*server, *models.User, *models.User, *models.User) {
	t.Helper()
	cfg := testutil.Config(t)
	db := testutil.NewTestDBWithConfig(t, cfg)

	a := app.New(cfg, db)
	ctx, cancel := context.WithCancel(context.Background())
	go a.WSManager.Run(ctx)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &server{app: a, srv: srv},
		testutil.CreateUser(t, db, "Aigerim"),
		testutil.CreateUser(t, db, "Bakhyt"),
		testutil.CreateUser(t, db, "Chingiz")
}

func (s *server) post(t *testing.T, user *models.User, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, user))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *server) dial(t *testing.T, user *models.User) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + testutil.Token(t, user)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(realtime.Envelope{Event: event, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env realtime.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var env realtime.Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err, "неожиданное событие %s", env.Event)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	s, _, _, _ := startServer(t)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEndToEnd_MessageDelivery(t *testing.T) {
	s, a, b, c := startServer(t)

	resp := s.post(t, a, "/api/v1/conversations", map[string]any{"participantIds": []string{a.ID, b.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conv dto.ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))

	connA := s.dial(t, a)
	connB := s.dial(t, b)
	connC := s.dial(t, c)

	for _, conn := range []*websocket.Conn{connA, connB} {
		send(t, conn, realtime.EventJoinConversation, map[string]string{"conversationId": conv.ID})
		require.Equal(t, realtime.EventJoined, read(t, conn).Event)
	}

	// чужой не может войти в комнату
	send(t, connC, realtime.EventJoinConversation, map[string]string{"conversationId": conv.ID})
	env := read(t, connC)
	require.Equal(t, realtime.EventError, env.Event)
	assert.Contains(t, string(env.Data), "NOT_A_PARTICIPANT")

	// REST-отправка доходит до сокетов
	resp = s.post(t, a, "/api/v1/conversations/messages", map[string]string{"conversationId": conv.ID, "text": "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	env = read(t, connA)
	require.Equal(t, realtime.EventNewMessage, env.Event)
	var msg dto.MessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "hi", msg.Text)

	assert.Equal(t, realtime.EventNewMessage, read(t, connB).Event)
	env = read(t, connB)
	require.Equal(t, realtime.EventNotification, env.Event)
	assert.Contains(t, string(env.Data), "New message from Aigerim")

	expectSilence(t, connC)

	// typing доходит до собеседника и гаснет сам, печатающему ничего не приходит
	send(t, connB, realtime.EventTyping, map[string]string{"conversationId": conv.ID})
	assert.Equal(t, realtime.EventTyping, read(t, connA).Event)
	assert.Equal(t, realtime.EventStopTyping, read(t, connA).Event)
	expectSilence(t, connB)

	// отметка прочтения через сокет
	send(t, connB, realtime.EventMarkAsRead, map[string]string{"conversationId": conv.ID})
	env = read(t, connA)
	require.Equal(t, realtime.EventMessagesRead, env.Event)
	var receipt realtime.MessagesReadPayload
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, []string{msg.ID}, receipt.MessageIDs)
	assert.Equal(t, b.ID, receipt.ReaderID)
	assert.Contains(t, string(env.Data), `"readerId":"`+b.ID+`"`)
}

func TestEndToEnd_DisconnectStopsTyping(t *testing.T) {
	s, a, b, _ := startServer(t)

	resp := s.post(t, a, "/api/v1/conversations", map[string]any{"participantIds": []string{a.ID, b.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var conv dto.ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))

	connA := s.dial(t, a)
	connB := s.dial(t, b)
	for _, conn := range []*websocket.Conn{connA, connB} {
		send(t, conn, realtime.EventJoinConversation, map[string]string{"conversationId": conv.ID})
		require.Equal(t, realtime.EventJoined, read(t, conn).Event)
	}

	send(t, connB, realtime.EventTyping, map[string]string{"conversationId": conv.ID})
	require.Equal(t, realtime.EventTyping, read(t, connA).Event)

	require.NoError(t, connB.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = connB.Close()

	env := read(t, connA)
	assert.Equal(t, realtime.EventStopTyping, env.Event)
	assert.Contains(t, string(env.Data), b.ID)

	assert.Eventually(t, func() bool {
		return s.app.WSManager.RoomSize(realtime.ConversationRoom(conv.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
