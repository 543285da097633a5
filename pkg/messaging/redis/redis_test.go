package redis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/pkg/circuitbreaker"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{
		URL:          "redis://:pw@cache.internal:6380/2",
		MaxRetries:   4,
		RetryBackoff: 50 * time.Millisecond,
		PoolSize:     7,
		MinIdleConns: 2,
	})
	require.NoError(t, err)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 4, opts.MaxRetries)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)

	_, err = NewClient(Config{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestPublishOpensBreaker(t *testing.T) {
	// nothing listens on port 1, so every publish fails fast
	client, err := NewClient(Config{URL: "redis://127.0.0.1:1/0", MaxRetries: -1})
	require.NoError(t, err)
	broker := NewBrokerWithClient(client, zerolog.Nop())
	defer broker.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := broker.Publish(ctx, "medication.alerts", map[string]string{"id": "m1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}
	assert.ErrorIs(t, broker.Publish(ctx, "medication.alerts", map[string]string{"id": "m1"}), circuitbreaker.ErrOpen)
}

func TestPublishRejectsUnencodable(t *testing.T) {
	client, err := NewClient(Config{URL: "redis://127.0.0.1:1/0", MaxRetries: -1})
	require.NoError(t, err)
	broker := NewBrokerWithClient(client, zerolog.Nop())
	defer broker.Close()

	err = broker.Publish(context.Background(), "c", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal message")
}
