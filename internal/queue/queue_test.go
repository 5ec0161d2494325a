package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DMarby/postcard-poodle/internal/queue"
)

func setupQueue(f func(ctx context.Context, data interface{}) (interface{}, error)) (*queue.Queue, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	workerQueue := queue.New(ctx, 5, f)
	go workerQueue.Run()
	return workerQueue, cancel
}

func TestProcess(t *testing.T) {
	workerQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		stringData, _ := data.(string)
		return stringData, nil
	})

	defer cancel()

	data, err := workerQueue.Process(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}

	if data != "test" {
		t.Fatalf("wrong result %v", data)
	}
}

func TestShutdown(t *testing.T) {
	workerQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		return "", nil
	})

	cancel()

	_, err := workerQueue.Process(context.Background(), "test")
	if !errors.Is(err, queue.ErrShutdown) || err.Error() != "queue has been shutdown" {
		t.Fatalf("wrong error %v", err)
	}
}

func TestTaskWithError(t *testing.T) {
	errorQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		return nil, fmt.Errorf("custom error")
	})

	defer cancel()
	_, err := errorQueue.Process(context.Background(), "test")

	if err == nil || err.Error() != "custom error" {
		t.Fatal("Invalid error")
	}
}

func TestTaskWithCancelledContext(t *testing.T) {
	errorQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		return nil, fmt.Errorf("custom error")
	})

	defer cancel()

	ctx, ctxCancel := context.WithCancel(context.Background())
	ctxCancel()

	_, err := errorQueue.Process(ctx, "test")

	if err == nil || err.Error() != "context canceled" {
		t.Fatal("Invalid error")
	}
}

func TestCallerTimeoutWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	workerQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		<-release
		return "late", nil
	})

	defer cancel()
	defer close(release)

	ctx, ctxCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer ctxCancel()

	_, err := workerQueue.Process(ctx, "test")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wrong error %v", err)
	}
}

func TestBoundedWorkers(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	workerQueue, cancel := setupQueue(func(ctx context.Context, data interface{}) (interface{}, error) {
		started <- struct{}{}
		<-release
		return data, nil
	})

	defer cancel()

	results := make(chan error, 7)
	for i := 0; i < 7; i++ {
		go func(i int) {
			_, err := workerQueue.Process(context.Background(), i)
			results <- err
		}(i)
	}

	for i := 0; i < 5; i++ {
		<-started
	}

	select {
	case <-started:
		t.Fatal("more jobs running than workers")
	case <-time.After(20 * time.Millisecond):
	}

	if active := workerQueue.Active(); active != 5 {
		t.Errorf("wrong active count %d", active)
	}

	if pending := workerQueue.Pending(); pending != 2 {
		t.Errorf("wrong pending count %d", pending)
	}

	close(release)
	for i := 0; i < 7; i++ {
		if err := <-results; err != nil {
			t.Error(err)
		}
	}
}
