// internal/worker/executor_test.go
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/fawad-mazhar/skyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordWrite struct {
	key    string
	record models.ResultRecord
}

type fakeResultStore struct {
	mu     sync.Mutex
	writes []recordWrite
	fail   bool
}

func (f *fakeResultStore) PutJSON(key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("store unavailable")
	}
	f.writes = append(f.writes, recordWrite{key: key, record: v.(models.ResultRecord)})
	return nil
}

func (f *fakeResultStore) statuses() []models.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.TaskStatus
	for _, w := range f.writes {
		out = append(out, w.record.Status)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(registry *Registry, store ResultStore) *Executor {
	cfg := &config.Config{Worker: config.WorkerConfig{MaxWorkers: 2, ShutdownTimeout: 5}}
	return NewExecutor(cfg, registry, store, nil, testLogger())
}

func testMessage(name string) *models.QueueMessage {
	return &models.QueueMessage{
		TaskID:     "0123456789abcdef0123456789abcdef",
		TaskName:   name,
		TaskParams: json.RawMessage(`{"x":1}`),
	}
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		handler := func(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error) {
			return nil, nil
		}

		require.NoError(t, registry.Register("t", handler))
		assert.Error(t, registry.Register("t", handler))
	})

	t.Run("unknown names are an error", func(t *testing.T) {
		_, err := NewRegistry().Get("missing")
		assert.Error(t, err)
	})
}

func TestProcessMessage(t *testing.T) {
	t.Run("successful handler lands on READY with results", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("t", func(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error) {
			assert.Equal(t, "0123456789abcdef0123456789abcdef", taskID)
			assert.JSONEq(t, `{"x":1}`, string(params))
			return json.RawMessage(`[1,2,3]`), nil
		}))

		store := &fakeResultStore{}
		executor := newTestExecutor(registry, store)

		require.NoError(t, executor.ProcessMessage(context.Background(), testMessage("t")))

		require.Equal(t, []models.TaskStatus{models.TaskStatusPending, models.TaskStatusReady}, store.statuses())
		assert.Equal(t, "0123456789abcdef0123456789abcdef-results", store.writes[0].key)
		assert.JSONEq(t, `[1,2,3]`, string(store.writes[1].record.Results))
	})

	t.Run("handler failure lands on ERROR without propagating", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("t", func(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("boom")
		}))

		store := &fakeResultStore{}
		executor := newTestExecutor(registry, store)

		require.NoError(t, executor.ProcessMessage(context.Background(), testMessage("t")))

		require.Equal(t, []models.TaskStatus{models.TaskStatusPending, models.TaskStatusError}, store.statuses())
		assert.Nil(t, store.writes[1].record.Results)
	})

	t.Run("unknown task name lands on ERROR", func(t *testing.T) {
		store := &fakeResultStore{}
		executor := newTestExecutor(NewRegistry(), store)

		require.NoError(t, executor.ProcessMessage(context.Background(), testMessage("unregistered")))

		assert.Equal(t, []models.TaskStatus{models.TaskStatusPending, models.TaskStatusError}, store.statuses())
	})

	t.Run("reprocessing the same message is an idempotent overwrite", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register("t", func(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`[1]`), nil
		}))

		store := &fakeResultStore{}
		executor := newTestExecutor(registry, store)

		require.NoError(t, executor.ProcessMessage(context.Background(), testMessage("t")))
		require.NoError(t, executor.ProcessMessage(context.Background(), testMessage("t")))

		assert.Equal(t, []models.TaskStatus{
			models.TaskStatusPending, models.TaskStatusReady,
			models.TaskStatusPending, models.TaskStatusReady,
		}, store.statuses())
	})

	t.Run("store failure propagates for redelivery", func(t *testing.T) {
		store := &fakeResultStore{fail: true}
		executor := newTestExecutor(NewRegistry(), store)

		assert.Error(t, executor.ProcessMessage(context.Background(), testMessage("t")))
	})
}
