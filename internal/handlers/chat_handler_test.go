package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/handlers"
	"hamsafar_backend/internal/middleware"
	"hamsafar_backend/internal/models"
	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/services/dto"
	"hamsafar_backend/internal/testutil"
	"hamsafar_backend/internal/validator"
	"hamsafar_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	router  *gin.Engine
	db      *gorm.DB
	a, b, c *models.User
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	base := handlers.NewBaseHandler(validator.New())
	container := services.NewServiceContainer(nil)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware(), middleware.DBMiddleware(db))
	api := router.Group("/api/v1")
	handlers.NewHealthHandler(base, "test").RegisterRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth.NewVerifier(testutil.JWTSecret, testutil.JWTIssuer)))
	handlers.NewChatHandler(base, container.ChatService).RegisterRoutes(protected)

	return &apiFixture{
		router: router,
		db:     db,
		a:      testutil.CreateUser(t, db, "Aigerim"),
		b:      testutil.CreateUser(t, db, "Bakhyt"),
		c:      testutil.CreateUser(t, db, "Chingiz"),
	}
}

func (f *apiFixture) do(t *testing.T, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(t, user))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code apperrors.ErrorCode) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, string(code), decode[errorBody](t, w).Error.Code)
}

func (f *apiFixture) createConversation(t *testing.T, caller *models.User, ids ...string) dto.ConversationResponse {
	t.Helper()
	w := f.do(t, caller, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": ids})
	require.Contains(t, []int{http.StatusCreated, http.StatusOK}, w.Code, w.Body.String())
	return decode[dto.ConversationResponse](t, w)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, nil, http.MethodGet, "/api/v1/conversations", nil)
	assertErrorCode(t, w, http.StatusUnauthorized, apperrors.CodeUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assertErrorCode(t, rec, http.StatusUnauthorized, apperrors.CodeInvalidToken)
}

func TestResolveConversation_CreatedThenExisting(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": []string{f.a.ID, f.b.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[dto.ConversationResponse](t, w)
	assert.Len(t, first.Participants, 2)
	assert.Zero(t, first.UnreadCount)

	// устаревшая форма запроса указывает на ту же переписку
	w = f.do(t, f.b, http.MethodPost, "/api/v1/conversations", map[string]any{"senderId": f.b.ID, "receiverId": f.a.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, first.ID, decode[dto.ConversationResponse](t, w).ID)
}

func TestResolveConversation_Errors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": []string{f.a.ID}})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidParticipants)

	w = f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{"senderId": f.a.ID, "receiverId": f.a.ID})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidParticipants)

	w = f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidParticipants)

	w = f.do(t, f.c, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": []string{f.a.ID, f.b.ID}})
	assertErrorCode(t, w, http.StatusForbidden, apperrors.CodeNotAParticipant)

	w = f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": []string{f.a.ID, "ghost"}})
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeUserNotFound)

	w = f.do(t, f.a, http.MethodPost, "/api/v1/conversations", map[string]any{"participantIds": []string{f.a.ID, "has space"}})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeValidationFailed)
}

func TestMessagesFlow(t *testing.T) {
	f := newAPIFixture(t)
	conv := f.createConversation(t, f.a, f.a.ID, f.b.ID)

	w := f.do(t, f.a, http.MethodPost, "/api/v1/conversations/messages", map[string]string{"conversationId": conv.ID, "text": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[dto.MessageResponse](t, w)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, f.a.ID, msg.SenderID)

	w = f.do(t, f.b, http.MethodGet, "/api/v1/conversations/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.UnreadCountResponse](t, w).UnreadCount)

	w = f.do(t, f.b, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode[[]dto.MessageResponse](t, w)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.ID, messages[0].ID)

	w = f.do(t, f.b, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]dto.ConversationResponse](t, w)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "hi", list[0].LastMessage.Text)

	w = f.do(t, f.b, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/mark-as-read", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[dto.MarkReadResponse](t, w).MarkedCount)

	w = f.do(t, f.b, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/mark-as-read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[dto.MarkReadResponse](t, w).MarkedCount)

	w = f.do(t, f.b, http.MethodGet, "/api/v1/conversations/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[dto.ConversationResponse](t, w).UnreadCount)
}

func TestMessages_Errors(t *testing.T) {
	f := newAPIFixture(t)
	conv := f.createConversation(t, f.a, f.a.ID, f.b.ID)

	w := f.do(t, f.a, http.MethodPost, "/api/v1/conversations/messages", map[string]string{"conversationId": conv.ID, "text": "  "})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeEmptyText)

	w = f.do(t, f.a, http.MethodPost, "/api/v1/conversations/messages", map[string]string{"text": "hi"})
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeValidationFailed)

	w = f.do(t, f.c, http.MethodPost, "/api/v1/conversations/messages", map[string]string{"conversationId": conv.ID, "text": "hi"})
	assertErrorCode(t, w, http.StatusForbidden, apperrors.CodeNotAParticipant)

	w = f.do(t, f.a, http.MethodGet, "/api/v1/conversations/missing/messages", nil)
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeConversationNotFound)

	w = f.do(t, f.a, http.MethodGet, "/api/v1/conversations/bad%20id/messages", nil)
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeValidationFailed)

	w = f.do(t, f.c, http.MethodGet, "/api/v1/conversations/"+conv.ID, nil)
	assertErrorCode(t, w, http.StatusForbidden, apperrors.CodeNotAParticipant)

	w = f.do(t, f.c, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/mark-as-read", nil)
	assertErrorCode(t, w, http.StatusForbidden, apperrors.CodeNotAParticipant)
}

func TestStoreUnavailable_RetryAfter(t *testing.T) {
	f := newAPIFixture(t)
	token := testutil.Token(t, f.a)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assertErrorCode(t, w, http.StatusServiceUnavailable, apperrors.CodeStoreUnavailable)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))

	w = f.do(t, nil, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, nil, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
}

func TestQueryToken(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations?token="+testutil.Token(t, f.a), nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
