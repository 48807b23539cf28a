package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestInitRedisAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	client, err := InitRedis(mr.Addr(), "s3cret", 0)
	require.NoError(t, err)
	client.Close()

	client, err = InitRedis(mr.Addr(), "nope", 0)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestInitRedisUnreachable(t *testing.T) {
	// valid address format, nothing listening
	client, err := InitRedis("127.0.0.1:16379", "", 0)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestInitRedisSelectsDatabase(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(mr.Addr(), "", 3)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "cursor:u-self:room-1", "m-42", time.Minute).Err())

	got, err := client.Get(ctx, "cursor:u-self:room-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "m-42", got)
}
