//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	pgdb "github.com/alanyang/xactlock/internal/adapter/postgres"
)

var (
	containerOnce sync.Once
	containerURL  string
	containerErr  error
)

// DatabaseURL returns TEST_DATABASE_URL, or starts a throwaway postgres
// container once per test binary. It skips the test when neither is
// available.
func DatabaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	containerOnce.Do(func() {
		containerURL, containerErr = startPostgres()
	})
	if containerErr != nil {
		t.Skipf("TEST_DATABASE_URL not set and docker unavailable: %v", containerErr)
	}
	return containerURL
}

// SetupTestDB connects a pool to the test database. Advisory locks need no
// schema; tests isolate themselves by discriminator.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgdb.Connect(context.Background(), DatabaseURL(t), 16)
	if err != nil {
		t.Fatalf("connect to test DB: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Discriminator returns a discriminator unlikely to collide with parallel
// test runs against a shared database.
func Discriminator() int32 {
	return int32(time.Now().UnixNano() & 0x3fffffff)
}

func startPostgres() (string, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return "", fmt.Errorf("construct docker pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return "", fmt.Errorf("ping docker: %w", err)
	}
	pool.MaxWait = 60 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=xactlock",
			"POSTGRES_PASSWORD=xactlock",
			"POSTGRES_DB=xactlock",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	// Docker reaps the container if the test binary dies before cleanup.
	if err := resource.Expire(300); err != nil {
		return "", fmt.Errorf("set container expiry: %w", err)
	}

	url := fmt.Sprintf("postgres://xactlock:xactlock@%s/xactlock?sslmode=disable", resource.GetHostPort("5432/tcp"))
	err = pool.Retry(func() error {
		p, err := pgdb.Connect(context.Background(), url, 2)
		if err != nil {
			return err
		}
		p.Close()
		return nil
	})
	if err != nil {
		_ = pool.Purge(resource)
		return "", fmt.Errorf("wait for postgres: %w", err)
	}
	return url, nil
}
