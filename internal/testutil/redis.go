package testutil

import (
	"context"
	"fmt"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

func TestWithRedis(pool *dockertest.Pool) (_ *redis.Client, _ Cleanup, err error) {
	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run redis container: %w", err)
	}

	cleanup := func() error {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			return fmt.Errorf("failed to purge redis container: %w", purgeErr)
		}
		return nil
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, cleanup())
		}
	}()

	if err = resource.Expire(containerExpireSeconds); err != nil {
		return nil, nil, fmt.Errorf("failed to set expire time: %w", err)
	}

	client := redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
	err = pool.Retry(func() error {
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("failed to connect to redis: %w", err), client.Close())
	}

	closeAndPurge := func() error {
		return multierr.Append(client.Close(), cleanup())
	}
	return client, closeAndPurge, nil
}
