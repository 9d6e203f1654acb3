package redis

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// testRedisURL points at the shared container. Empty in -short runs.
var testRedisURL string

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(runWithRedis(m))
}

func runWithRedis(m *testing.M) int {
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		log.Printf("start redis container: %v", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("terminate redis container: %v", err)
		}
	}()

	testRedisURL, err = container.ConnectionString(ctx)
	if err != nil {
		log.Printf("redis connection string: %v", err)
		return 1
	}

	return m.Run()
}

// setupTestClient returns a client on an empty database. Skipped in -short runs.
func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, testRedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}
