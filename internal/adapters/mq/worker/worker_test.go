package worker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riftcoach/insight/internal/adapters/mq/queue"
	"github.com/riftcoach/insight/internal/adapters/mq/worker"
	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/progress"
	logging "github.com/riftcoach/insight/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logging.Init()
	os.Exit(m.Run())
}

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	done atomic.Int64
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Done() { mq.done.Add(1) }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(j queue.Job) { //nolint:gocritic // hugeParam: jobs are passed by value for channel semantics
	mq.jobs <- j
}

type mockRecorder struct {
	mu       sync.Mutex
	recorded map[string]int
	fail     map[string]error
	delay    time.Duration
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{recorded: map[string]int{}, fail: map[string]error{}}
}

func (r *mockRecorder) Record(ctx context.Context, playerID, matchID string, _ time.Time, findings []model.Finding) (progress.Result, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return progress.Result{}, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[matchID]; ok {
		return progress.Result{}, err
	}
	r.recorded[playerID+"|"+matchID] += len(findings) + 1
	return progress.Result{Status: progress.Recorded}, nil
}

func (r *mockRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recorded)
}

func job(player, match string) queue.Job {
	return queue.Job{PlayerID: player, MatchID: match, PlayedAt: time.Now()}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a mock queue and recorder", t, func() {
		q := newMockQueue()
		rec := newMockRecorder()
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs are queued", func() {
			q.add(job("p1", "M1"))
			q.add(job("p2", "M1"))

			convey.Convey("Then each job is recorded and marked done", func() {
				convey.So(waitFor(func() bool { return q.done.Load() == 2 }), convey.ShouldBeTrue)
				convey.So(rec.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the recorder fails", func() {
			rec.fail["M-bad"] = errors.New("disk full")
			q.add(job("p1", "M-bad"))
			q.add(job("p1", "M2"))

			convey.Convey("Then the failure is dropped and the worker keeps going", func() {
				convey.So(waitFor(func() bool { return q.done.Load() == 2 }), convey.ShouldBeTrue)
				convey.So(rec.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a recorder slower than the job timeout", t, func() {
		q := newMockQueue()
		rec := newMockRecorder()
		rec.delay = time.Second
		w := worker.NewInMemoryWorker(q, rec, worker.WithJobTimeout(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		start := time.Now()
		q.add(job("p1", "M1"))

		convey.Convey("Then the job is abandoned at the timeout", func() {
			convey.So(waitFor(func() bool { return q.done.Load() == 1 }), convey.ShouldBeTrue)
			convey.So(time.Since(start), convey.ShouldBeLessThan, 500*time.Millisecond)
			convey.So(rec.count(), convey.ShouldEqual, 0)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := newMockRecorder()
		pool := worker.NewPool(4, q, rec)
		ctx := context.Background()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		for i := range 40 {
			convey.So(q.Enqueue(ctx, job("p1", fmt.Sprintf("M%d", i))), convey.ShouldBeTrue)
		}

		convey.Convey("When the queue is drained and the pool shut down", func() {
			dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			convey.So(q.Drain(dctx), convey.ShouldBeNil)
			convey.So(pool.Shutdown(dctx), convey.ShouldBeNil)

			convey.Convey("Then every job was recorded once", func() {
				convey.So(rec.count(), convey.ShouldEqual, 40)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockRecorder())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func TestInMemoryWorker_FailureHook(t *testing.T) {
	convey.Convey("Given a worker with a failure hook", t, func() {
		q := newMockQueue()
		rec := newMockRecorder()
		rec.fail["M-bad"] = errors.New("disk full")

		var failed atomic.Value
		w := worker.NewInMemoryWorker(q, rec, worker.WithOnFailure(func(_ context.Context, j worker.Job, err error) {
			failed.Store(j.Key() + " " + err.Error())
		}))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When one job fails and another succeeds", func() {
			q.add(job("p1", "M-bad"))
			q.add(job("p1", "M2"))

			convey.Convey("Then the hook sees only the failed job, before it is marked done", func() {
				convey.So(waitFor(func() bool { return q.done.Load() == 2 }), convey.ShouldBeTrue)
				convey.So(failed.Load(), convey.ShouldEqual, job("p1", "M-bad").Key()+" disk full")
			})
		})
	})
}
