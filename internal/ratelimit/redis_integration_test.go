package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/nhle/docflow/internal/testutil"
)

type RedisLimiterTestSuite struct {
	suite.Suite
	client *redis.Client
}

func TestRedisLimiterSuite(t *testing.T) {
	addr := testutil.StartRedisContainer(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	suite.Run(t, &RedisLimiterTestSuite{client: client})
}

func (s *RedisLimiterTestSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(context.Background()).Err())
}

func (s *RedisLimiterTestSuite) TestLimitsWithinWindow() {
	ctx := context.Background()
	l := NewRedisLimiter(s.client, "docflow:test:", 2, time.Minute)
	key := Key("tenant-a", "activities")

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, key)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}

	res, err := l.Allow(ctx, key)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Greater(res.RetryAfter, time.Duration(0))
	s.LessOrEqual(res.RetryAfter, time.Minute)

	res, err = l.Allow(ctx, Key("tenant-b", "activities"))
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisLimiterTestSuite) TestWindowExpires() {
	ctx := context.Background()
	l := NewRedisLimiter(s.client, "docflow:test:", 1, 200*time.Millisecond)
	key := Key("tenant-a", "customers")

	res, err := l.Allow(ctx, key)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = l.Allow(ctx, key)
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.Eventually(func() bool {
		r, err := l.Allow(ctx, key)
		return err == nil && r.Allowed
	}, 3*time.Second, 50*time.Millisecond)
}
