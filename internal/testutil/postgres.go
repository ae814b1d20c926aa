package testutil

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/multierr"
)

func TestWithPostgres(pool *dockertest.Pool) (_ *sql.DB, _ Cleanup, err error) {
	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        "16-alpine",
			Env: []string{
				"POSTGRES_USER=messaging",
				"POSTGRES_PASSWORD=password",
				"POSTGRES_DB=messaging",
			},
		},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run postgres container: %w", err)
	}

	cleanup := func() error {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			return fmt.Errorf("failed to purge postgres container: %w", purgeErr)
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

	dsn := fmt.Sprintf("postgres://messaging:password@%s/messaging?sslmode=disable", resource.GetHostPort("5432/tcp"))
	var db *sql.DB
	err = pool.Retry(func() error {
		var retryErr error
		db, retryErr = sql.Open("postgres", dsn)
		if retryErr != nil {
			return retryErr
		}
		if retryErr = db.Ping(); retryErr != nil {
			return multierr.Append(retryErr, db.Close())
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	closeAndPurge := func() error {
		return multierr.Append(db.Close(), cleanup())
	}
	return db, closeAndPurge, nil
}
