package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStoreWithClient(client, ttl, slog.Default()), mr
}

func TestCreateSessionUnique(t *testing.T) {
	store, _ := setupTestStore(t, 0)

	a := store.CreateSession()
	b := store.CreateSession()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestAddMessageAndGetHistory(t *testing.T) {
	store, _ := setupTestStore(t, 0)
	ctx := context.Background()

	sessionID := store.CreateSession()
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "Hello!"))
	require.NoError(t, store.AddMessage(ctx, sessionID, "assistant", "Hi! How can I help?"))
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "Tell me the news"))

	history, err := store.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Append order with role and content preserved exactly.
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Hello!", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "Hi! How can I help?", history[1].Content)
	assert.Equal(t, "user", history[2].Role)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestGetHistoryUnknownSession(t *testing.T) {
	store, _ := setupTestStore(t, 0)

	history, err := store.GetHistory(context.Background(), "never-existed")
	require.NoError(t, err, "a missing session is not an error")
	assert.Empty(t, history)
}

func TestClearSession(t *testing.T) {
	store, _ := setupTestStore(t, 0)
	ctx := context.Background()

	sessionID := store.CreateSession()
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "hello"))
	require.NoError(t, store.ClearSession(ctx, sessionID))

	history, err := store.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExpiryRearmedOnAppend(t *testing.T) {
	ttl := time.Hour
	store, mr := setupTestStore(t, ttl)
	ctx := context.Background()

	sessionID := store.CreateSession()
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "first"))
	assert.Equal(t, ttl, mr.TTL(sessionKey(sessionID)))

	// Half the window passes; another append re-arms the full TTL.
	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "second"))
	assert.Equal(t, ttl, mr.TTL(sessionKey(sessionID)))
}

func TestSessionExpires(t *testing.T) {
	ttl := time.Hour
	store, mr := setupTestStore(t, ttl)
	ctx := context.Background()

	sessionID := store.CreateSession()
	require.NoError(t, store.AddMessage(ctx, sessionID, "user", "hello"))

	mr.FastForward(ttl + time.Minute)

	history, err := store.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history, "expired sessions read as empty, same as never-existed")
}
