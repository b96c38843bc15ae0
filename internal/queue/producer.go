package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/model"

	"github.com/go-redis/redis/v8"
)

// Enqueuer accepts ingestion jobs for the worker.
type Enqueuer interface {
	EnqueueIngestionJob(ctx context.Context, job model.IngestionJob) error
}

type Producer struct {
	client *redis.Client
	queue  string
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		queue:  cfg.Redis.IngestionQueue,
	}
}

func (p *Producer) EnqueueIngestionJob(ctx context.Context, job model.IngestionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion job: %w", err)
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}
