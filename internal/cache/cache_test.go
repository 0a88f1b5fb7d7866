package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetRoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	c := NewMemory()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	c.now = func() time.Time { return now.Add(2 * time.Second) }

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_DeleteRemovesKey(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "test:")

	mock.ExpectGet("test:missing").RedisNil()

	_, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetThenGetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "test:")

	mock.ExpectSet("test:k", []byte("v"), time.Minute).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))

	mock.ExpectGet("test:k").SetVal("v")
	val, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
	require.NoError(t, mock.ExpectationsWereMet())
}
