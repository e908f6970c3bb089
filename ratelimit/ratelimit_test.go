package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURLDisables(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetOutput(io.Discard)

	l, err := New("", log)
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := l.Allow(ctx, "ip:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Increment(ctx, "ip:1.2.3.4", time.Minute))
	require.NoError(t, l.Block(ctx, "ip:1.2.3.4", time.Minute))

	blocked, err := l.IsBlocked(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestNew_BadURLFails(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetOutput(io.Discard)

	_, err := New("not-a-redis-url", log)
	require.Error(t, err)
}
