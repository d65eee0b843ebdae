package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const apiTimeout = 3

type Redis struct {
	Client        *redis.Client
	Logger        *zap.SugaredLogger
	ResultChannel string
}

func New(host, password, resultChannel string, logger *zap.SugaredLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{
		Client:        client,
		Logger:        logger,
		ResultChannel: resultChannel,
	}, nil
}

// Produce publishes data as JSON on the result channel.
func (r *Redis) Produce(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("redis: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout*time.Second)
	defer cancel()

	err = r.Client.Publish(ctx, r.ResultChannel, jsonData).Err()
	if err != nil {
		return err
	}

	r.Logger.Infow("redis: Produce", "channel", r.ResultChannel, "data", data)

	return nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
