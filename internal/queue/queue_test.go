package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	episodeID, jobID := uuid.New(), uuid.New()

	require.NoError(t, q.EnqueueGenerateScript(ctx, episodeID, jobID))

	n, err := q.GetQueueLength(ctx, QueueGenerateScript)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := q.Dequeue(ctx, time.Second, Queues...)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, episodeID, job.EpisodeID)
	assert.Equal(t, "generate_script", job.Type)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestDequeuePrefersEarlierQueue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueGenerateScript(ctx, uuid.New(), uuid.New()))
	require.NoError(t, q.EnqueueSynthesizeAudio(ctx, uuid.New(), uuid.New()))

	first, err := q.Dequeue(ctx, time.Second, Queues...)
	require.NoError(t, err)
	assert.Equal(t, "synthesize_audio", first.Type)

	second, err := q.Dequeue(ctx, time.Second, Queues...)
	require.NoError(t, err)
	assert.Equal(t, "generate_script", second.Type)
}

func TestDequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	job, err := q.Dequeue(context.Background(), 100*time.Millisecond, Queues...)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewWithClient(client)
	t.Cleanup(func() { q.Close() })

	_, err := mr.Lpush(QueueGenerateScript, "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background(), time.Second, QueueGenerateScript)
	assert.ErrorContains(t, err, "unmarshal")
}
