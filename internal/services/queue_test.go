package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestJobQueue_FIFO(t *testing.T) {
	q := NewJobQueue(newTestRedis(t), "")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{DesignID: "a"}))
	require.NoError(t, q.Enqueue(ctx, Job{DesignID: "b", IsIteration: true}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Job{DesignID: "a"}, *job)

	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Job{DesignID: "b", IsIteration: true}, *job)
}

func TestJobQueue_EmptyTimesOut(t *testing.T) {
	q := NewJobQueue(newTestRedis(t), "test:jobs")

	job, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestWorker_ProcessesQueuedDesign(t *testing.T) {
	env := newTestEnv(t)
	design, err := env.designer.CreateDesign(context.Background(), sampleDesign(env.store))
	require.NoError(t, err)

	q := NewJobQueue(newTestRedis(t), "")
	require.NoError(t, q.Enqueue(context.Background(), Job{DesignID: design.ID}))

	w := NewWorker(q, env.designer)
	w.Poll = 50 * time.Millisecond

	// Redis and SQLite keep their own goroutines until cleanup; only the
	// worker's must be gone once Run returns.
	baseline := goleak.IgnoreCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		var stored models.Design
		if err := env.db.First(&stored, "id = ?", design.ID).Error; err != nil {
			return false
		}
		return stored.Status == models.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	goleak.VerifyNone(t, baseline)
}

func TestWorker_HandleIteration(t *testing.T) {
	env := newTestEnv(t)
	design := env.completedDesign(t)
	it, err := env.designer.CreateIteration(context.Background(), NewIteration{InitialDesignID: design.ID, TopNotes: strPtr("More contrast")})
	require.NoError(t, err)

	w := NewWorker(NewJobQueue(newTestRedis(t), ""), env.designer)
	res := w.Handle(context.Background(), Job{DesignID: it.ID, IsIteration: true})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, it.ID, res.DesignIterationID)
	assert.NotNil(t, res.TopPanelURL)
	assert.Nil(t, res.BottomPanelURL)
}
