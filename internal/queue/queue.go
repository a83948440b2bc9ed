package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/podcastgen/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueGenerateScript  = "queue:generate_script"
	QueueSynthesizeAudio = "queue:synthesize_audio"
)

// Queues lists every queue the worker drains, in priority order.
var Queues = []string{QueueSynthesizeAudio, QueueGenerateScript}

type Queue struct {
	client *redis.Client
}

type Job struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	EpisodeID uuid.UUID              `json:"episode_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

// Dequeue blocks up to timeout for a job on any of queueNames. Earlier names
// win when several have work. A nil job with nil error means nothing arrived.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueNames...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueGenerateScript enqueues a script generation job
func (q *Queue) EnqueueGenerateScript(ctx context.Context, episodeID, jobID uuid.UUID) error {
	job := &Job{
		ID:        jobID,
		Type:      models.JobTypeGenerateScript,
		EpisodeID: episodeID,
	}
	return q.Enqueue(ctx, QueueGenerateScript, job)
}

// EnqueueSynthesizeAudio enqueues an audio synthesis job
func (q *Queue) EnqueueSynthesizeAudio(ctx context.Context, episodeID, jobID uuid.UUID) error {
	job := &Job{
		ID:        jobID,
		Type:      models.JobTypeSynthesizeAudio,
		EpisodeID: episodeID,
	}
	return q.Enqueue(ctx, QueueSynthesizeAudio, job)
}
