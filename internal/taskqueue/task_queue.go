package taskqueue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
)

// Task expiration time
var TaskExpirationTime = 4 * time.Hour

// ErrTaskExpired is returned when a task has expired
var ErrTaskExpired = errors.New("task expired")

// AnyTask is an interface for tasks that can be executed
type AnyTask interface {
	Execute() error
	ShouldRetry(error) bool
	IsExpired() bool
}

// Task pairs a unit of work with the callback that receives its result.
type Task[T any] struct {
	ExecuteFunc func() (T, error)
	Callback    func(T, error)
	RetryError  error
	CreatedAt   time.Time
}

// NewTask creates a task. A nil retryError disables retries.
func NewTask[T any](
	executeFunc func() (T, error),
	callback func(T, error),
	retryError error,
) Task[T] {
	return Task[T]{
		ExecuteFunc: executeFunc,
		Callback:    callback,
		RetryError:  retryError,
		CreatedAt:   time.Now(),
	}
}

// Execute runs the task and hands the result to the callback. A panic in
// either is returned as an error.
func (t Task[T]) Execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task execution: %v", r)
		}
	}()

	if t.IsExpired() {
		return ErrTaskExpired
	}

	result, err := t.ExecuteFunc()
	t.Callback(result, err)
	return err
}

func (t Task[T]) ShouldRetry(err error) bool {
	return t.RetryError != nil && errors.Is(err, t.RetryError)
}

func (t Task[T]) IsExpired() bool {
	return time.Since(t.CreatedAt) > TaskExpirationTime
}

// Queue runs tasks on a fixed size worker pool. A size of 1 keeps tasks in
// submission order.
type Queue struct {
	pool *workerpool.WorkerPool
	wg   sync.WaitGroup
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{pool: workerpool.New(size)}
}

func (q *Queue) Add(task AnyTask) {
	q.wg.Add(1)
	q.pool.Submit(func() {
		q.processTask(task)
	})
}

func (q *Queue) processTask(task AnyTask) {
	defer q.wg.Done()

	if task.IsExpired() {
		return
	}

	err := task.Execute()
	if err != nil && !errors.Is(err, ErrTaskExpired) && task.ShouldRetry(err) {
		q.Add(task)
	}
}

// Wait blocks until every added task, including retries, has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close waits for queued tasks and stops the workers.
func (q *Queue) Close() {
	q.wg.Wait()
	q.pool.Stop()
}
