package image

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Job is one image-processing request handed to the pool.
type Job struct {
	Data    []byte
	Width   int
	Height  int
	Fit     FitMode
	Result  chan *JobResult
}

// JobResult carries the outcome of a Job.
type JobResult struct {
	Processed *Processed
	Error     error
}

// WorkerPool bounds the number of concurrent decode/resize/convert
// pipelines. Image processing is the only CPU-heavy stage of the hub and an
// unbounded burst of uploads would starve the send path.
type WorkerPool struct {
	workers   int
	jobQueue  chan *Job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	processor *Processor
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(workers int, processor *Processor, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:   workers,
		jobQueue:  make(chan *Job, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		processor: processor,
	}
}

// Start launches all worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info("Starting image worker pool",
		zap.Int("workers", wp.workers),
		zap.Int("queue_size", cap(wp.jobQueue)))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the pool.
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping image worker pool")
	wp.cancel()
	close(wp.jobQueue)
	wp.wg.Wait()
	wp.logger.Info("Image worker pool stopped")
}

// Submit queues a processing job and waits for its result.
func (wp *WorkerPool) Submit(ctx context.Context, data []byte, width, height int, fit FitMode) (*Processed, error) {
	resultChan := make(chan *JobResult, 1)

	job := &Job{
		Data:   data,
		Width:  width,
		Height: height,
		Fit:    fit,
		Result: resultChan,
	}

	select {
	case wp.jobQueue <- job:
		// Job submitted
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		return nil, fmt.Errorf("image worker pool is shutting down")
	}

	select {
	case result := <-resultChan:
		return result.Processed, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		return nil, fmt.Errorf("image worker pool is shutting down")
	}
}

// worker is the main loop for a single worker.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Image worker started", zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				wp.logger.Debug("Image worker stopping (queue closed)", zap.Int("worker_id", id))
				return
			}
			wp.processJob(id, job)
		case <-wp.ctx.Done():
			wp.logger.Debug("Image worker stopping (context cancelled)", zap.Int("worker_id", id))
			return
		}
	}
}

// processJob handles a single job.
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	processed, err := wp.processor.Process(job.Data, job.Width, job.Height, job.Fit)

	job.Result <- &JobResult{
		Processed: processed,
		Error:     err,
	}
	close(job.Result)

	if err != nil {
		wp.logger.Debug("Worker completed job with error",
			zap.Int("worker_id", workerID),
			zap.Error(err))
	}
}
