package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const receiptTTL = 7 * 24 * time.Hour

// Receipt records where and when a notification was delivered.
type Receipt struct {
	DeliveryID  string    `json:"delivery_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

func receiptKey(notificationID int64) string {
	return "notification:" + strconv.FormatInt(notificationID, 10)
}

func (rc *RedisCache) StoreReceipt(ctx context.Context, notificationID int64, deliveryID string, at time.Time) error {
	key := receiptKey(notificationID)
	_, err := rc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "delivery_id", deliveryID, "delivered_at", at.UTC().Format(time.RFC3339Nano))
		pipe.Expire(ctx, key, receiptTTL)
		return nil
	})
	return err
}

func (rc *RedisCache) Receipt(ctx context.Context, notificationID int64) (Receipt, error) {
	fields, err := rc.client.HGetAll(ctx, receiptKey(notificationID)).Result()
	if err != nil {
		return Receipt{}, err
	}
	if len(fields) == 0 {
		return Receipt{}, ErrMiss
	}
	at, err := time.Parse(time.RFC3339Nano, fields["delivered_at"])
	if err != nil {
		return Receipt{}, fmt.Errorf("parse receipt time: %w", err)
	}
	return Receipt{DeliveryID: fields["delivery_id"], DeliveredAt: at}, nil
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
