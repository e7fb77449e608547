package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/persistence"
)

func TestNewStore_InvalidURL(t *testing.T) {
	_, err := NewStore("not-a-redis-url")
	assert.Error(t, err)
}

func TestNewStore_ValidURL(t *testing.T) {
	store, err := NewStore("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func unreachableStore(t *testing.T) *Store {
	t.Helper()

	// Port 1 refuses connections; every command fails fast.
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})

	return NewStoreWithClient(client)
}

func TestStore_SaveRun_ConnectionFailureWrapsStoreError(t *testing.T) {
	store := unreachableStore(t)

	result := &engine.RunResult{
		RunID:  "run-1",
		Status: models.WorkflowStatusSuccess,
	}

	err := store.SaveRun(context.Background(), result)
	require.Error(t, err)

	var storeErr *persistence.StoreError

	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "SaveRun", storeErr.Op)
	assert.Equal(t, "run-1", storeErr.RunID)
}

func TestStore_HealthCheck_ConnectionFailure(t *testing.T) {
	store := unreachableStore(t)

	assert.Error(t, store.HealthCheck(context.Background()))
}
