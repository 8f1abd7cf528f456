package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/backoff"
)

// Task is one query to run against the candidate-feed backend.
type Task struct {
	ID    string
	Query string
	Count int
}

// Result pairs a Task with the raw payloads it returned (or the error it
// failed with).
type Result struct {
	Task     Task
	Payloads []map[string]any
	Err      error
}

// RunQueries fans queries out across a worker pool bounded by
// config.WorkerCount, retrying each query with the shared backoff
// primitive before giving up on it.
func RunQueries(ctx context.Context, client *Client, config *Config, queries []string, countPerQuery int) []Result {
	tasks := make([]Task, len(queries))
	for i, q := range queries {
		tasks[i] = Task{ID: uuid.New().String(), Query: q, Count: countPerQuery}
	}

	taskCh := make(chan Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	resultCh := make(chan Result, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- runOne(ctx, client, config, task, workerID)
			}
		}(i)
	}

	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

func runOne(ctx context.Context, client *Client, config *Config, task Task, workerID int) Result {
	var payloads []map[string]any
	err := backoff.WithBackoff(ctx, "feed.search", config.MaxRetries, time.Duration(config.RetryBackoffMs)*time.Millisecond, func(ctx context.Context) error {
		p, err := client.Search(ctx, task.Query, task.Count)
		if err != nil {
			return err
		}
		payloads = p
		return nil
	})

	config.Logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"task_id":   task.ID,
		"query":     task.Query,
		"error":     err,
	}).Debug("feed: task complete")

	return Result{Task: task, Payloads: payloads, Err: err}
}
