package repositories_test

import (
	"testing"
	"time"

	"hamsafar_backend/internal/models"
	"hamsafar_backend/internal/models/chat"
	"hamsafar_backend/internal/repositories"
	"hamsafar_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChatRepository_SQLite(t *testing.T) {
	runChatRepositorySuite(t, testutil.NewTestDB)
}

// runChatRepositorySuite гоняет одни и те же проверки на любом драйвере.
func runChatRepositorySuite(t *testing.T, newDB func(t *testing.T) *gorm.DB) {
	repo := repositories.NewChatRepository()
	users := repositories.NewUserRepository()

	createConversation := func(t *testing.T, db *gorm.DB, ids ...string) *chat.Conversation {
		t.Helper()
		ids = chat.NormalizeParticipants(ids)
		conv := &chat.Conversation{ParticipantKey: chat.ParticipantKey(ids)}
		require.NoError(t, repo.CreateConversation(db, conv, ids))
		return conv
	}

	createMessage := func(t *testing.T, db *gorm.DB, conv *chat.Conversation, sender *models.User, text string, at time.Time) *chat.Message {
		t.Helper()
		msg := &chat.Message{ConversationID: conv.ID, SenderID: sender.ID, Text: text, CreatedAt: at}
		require.NoError(t, repo.CreateMessage(db, msg))
		return msg
	}

	t.Run("participant key is unique", func(t *testing.T) {
		db := newDB(t)
		a := testutil.CreateUser(t, db, "Aigerim")
		b := testutil.CreateUser(t, db, "Bakhyt")

		first := createConversation(t, db, a.ID, b.ID)

		dup := &chat.Conversation{ParticipantKey: first.ParticipantKey}
		assert.Error(t, repo.CreateConversation(db, dup, []string{a.ID, b.ID}))

		found, err := repo.FindConversationByKey(db, first.ParticipantKey)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, found.ParticipantIDs())

		_, err = repo.FindConversationByKey(db, "nope")
		assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
		_, err = repo.FindConversationByID(db, "nope")
		assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
	})

	t.Run("messages ordered and last message", func(t *testing.T) {
		db := newDB(t)
		a := testutil.CreateUser(t, db, "Aigerim")
		b := testutil.CreateUser(t, db, "Bakhyt")
		conv := createConversation(t, db, a.ID, b.ID)

		last, err := repo.FindLastMessage(db, conv.ID)
		require.NoError(t, err)
		assert.Nil(t, last)

		base := models.Now()
		createMessage(t, db, conv, a, "second", base.Add(time.Second))
		createMessage(t, db, conv, b, "first", base)
		createMessage(t, db, conv, a, "third", base.Add(2*time.Second))

		messages, err := repo.FindMessagesByConversation(db, conv.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, []string{"first", "second", "third"}, []string{messages[0].Text, messages[1].Text, messages[2].Text})

		last, err = repo.FindLastMessage(db, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "third", last.Text)

		found, err := repo.FindMessageByID(db, messages[0].ID)
		require.NoError(t, err)
		require.NotNil(t, found.Sender)
		assert.Equal(t, "Bakhyt", found.Sender.Name)

		_, err = repo.FindMessageByID(db, "nope")
		assert.ErrorIs(t, err, repositories.ErrMessageNotFound)
	})

	t.Run("unread counts and receipts", func(t *testing.T) {
		db := newDB(t)
		a := testutil.CreateUser(t, db, "Aigerim")
		b := testutil.CreateUser(t, db, "Bakhyt")
		c := testutil.CreateUser(t, db, "Chingiz")
		ab := createConversation(t, db, a.ID, b.ID)
		abc := createConversation(t, db, a.ID, b.ID, c.ID)

		now := models.Now()
		m1 := createMessage(t, db, ab, a, "hi", now)
		createMessage(t, db, ab, b, "yo", now.Add(time.Millisecond))
		createMessage(t, db, abc, c, "all", now.Add(2*time.Millisecond))

		unreadB, err := repo.GetUnreadCount(db, b.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, unreadB)

		unreadA, err := repo.GetConversationUnreadCount(db, ab.ID, a.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, unreadA)

		ids, err := repo.FindUnreadMessageIDs(db, ab.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{m1.ID}, ids)

		receipt := []chat.MessageReadReceipt{{MessageID: m1.ID, ReaderID: b.ID, ReadAt: now}}
		created, err := repo.CreateReadReceipts(db, receipt)
		require.NoError(t, err)
		assert.EqualValues(t, 1, created)

		created, err = repo.CreateReadReceipts(db, []chat.MessageReadReceipt{{MessageID: m1.ID, ReaderID: b.ID, ReadAt: now}})
		require.NoError(t, err)
		assert.EqualValues(t, 0, created, "повторная квитанция поглощается")

		created, err = repo.CreateReadReceipts(db, nil)
		require.NoError(t, err)
		assert.Zero(t, created)

		unreadB, err = repo.GetUnreadCount(db, b.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, unreadB)
	})

	t.Run("user conversations and participants", func(t *testing.T) {
		db := newDB(t)
		a := testutil.CreateUser(t, db, "Aigerim")
		b := testutil.CreateUser(t, db, "Bakhyt")
		c := testutil.CreateUser(t, db, "Chingiz")
		older := createConversation(t, db, a.ID, b.ID)
		newer := createConversation(t, db, b.ID, c.ID)
		require.NoError(t, repo.TouchConversation(db, older.ID, models.Now().Add(time.Hour)))

		list, err := repo.FindUserConversations(db, b.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, older.ID, list[0].ID, "сортировка по updated_at")
		assert.Equal(t, newer.ID, list[1].ID)

		ok, err := repo.IsParticipant(db, older.ID, c.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		ids, err := repo.FindParticipantIDs(db, newer.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{b.ID, c.ID}, ids)

		ids, err = repo.FindParticipantIDs(db, "nope")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("missing users", func(t *testing.T) {
		db := newDB(t)
		a := testutil.CreateUser(t, db, "Aigerim")

		missing, err := users.MissingIDs(db, []string{a.ID, "ghost-1", "ghost-2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ghost-1", "ghost-2"}, missing)

		found, err := users.FindByID(db, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Email, found.Email)

		_, err = users.FindByID(db, "ghost-1")
		assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	})
}
