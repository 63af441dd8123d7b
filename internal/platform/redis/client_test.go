package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semaforo/internal/platform/config"
)

func TestNew_NotConfigured(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNew_InvalidURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestApplyOverrides(t *testing.T) {
	opts, err := goredis.ParseURL("redis://localhost:6379/0")
	require.NoError(t, err)
	defaultRead := opts.ReadTimeout

	applyOverrides(opts, config.RedisConfig{PoolSize: 7, DialTimeout: 3 * time.Second})

	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, defaultRead, opts.ReadTimeout)
}
