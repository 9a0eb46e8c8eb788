//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"hamsafar_backend/database"
	"hamsafar_backend/internal/models/chat"
	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var postgresDSN string

// TestMain поднимает Postgres в контейнере на все интеграционные тесты пакета.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "hamsafar",
				"POSTGRES_PASSWORD": "hamsafar",
				"POSTGRES_DB":       "hamsafar",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}
	postgresDSN = fmt.Sprintf("postgres://hamsafar:hamsafar@%s:%s/hamsafar?sslmode=disable", host, port.Port())

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

// newPostgresDB отдает чистую схему: каждая проверка начинает с пустых таблиц.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := testutil.Config(t)
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = postgresDSN
	cfg.Database.MaxOpenConns = 16

	db := testutil.NewTestDBWithConfig(t, cfg)
	require.NoError(t, db.Exec(
		"TRUNCATE message_read_receipts, messages, conversation_participants, conversations, users CASCADE",
	).Error)
	return db
}

func TestChatRepository_Postgres(t *testing.T) {
	runChatRepositorySuite(t, newPostgresDB)
}

// На Postgres гонка идет по-настоящему параллельно: победитель один, остальные
// получают его переписку.
func TestResolveConversation_ConcurrentPostgres(t *testing.T) {
	db := newPostgresDB(t)
	a := testutil.CreateUser(t, db, "Aigerim")
	b := testutil.CreateUser(t, db, "Bakhyt")
	svc := services.NewServiceContainer(nil).ChatService

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			conv, _, err := svc.ResolveConversation(db, a.ID, []string{b.ID, a.ID})
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&chat.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var participants int64
	require.NoError(t, db.Model(&chat.ConversationParticipant{}).Count(&participants).Error)
	assert.EqualValues(t, 2, participants)
}

