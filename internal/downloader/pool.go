// internal/downloader/pool.go
package downloader

import (
	"context"
	"sync"

	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// WorkerPool downloads records concurrently
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

// NewWorkerPool creates a pool of concurrency workers sharing d.
// Concurrency is clamped to [1, 50].
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 5
	}
	if concurrency > 50 {
		concurrency = 50
	}

	return &WorkerPool{
		downloader:  d,
		concurrency: concurrency,
	}
}

// Concurrency returns the effective number of workers
func (wp *WorkerPool) Concurrency() int {
	return wp.concurrency
}

// DirFunc chooses the directory a record is saved into
type DirFunc func(models.LinkRecord) string

// DownloadBatch downloads every record and returns results in completion
// order. onDone, if set, is called once per result from the collecting
// goroutine.
func (wp *WorkerPool) DownloadBatch(ctx context.Context, records []models.LinkRecord, dir DirFunc, onDone func(*Result)) []*Result {
	if len(records) == 0 {
		return []*Result{}
	}

	jobs := make(chan models.LinkRecord, len(records))
	results := make(chan *Result, len(records))

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go wp.worker(ctx, w, jobs, results, dir, &wg)
	}

	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]*Result, 0, len(records))
	for result := range results {
		if onDone != nil {
			onDone(result)
		}
		all = append(all, result)
	}

	return all
}

func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan models.LinkRecord, results chan<- *Result, dir DirFunc, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Debug().Int("worker_id", id).Msg("Worker started")

	for rec := range jobs {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("Worker cancelled")
			return
		default:
		}

		log.Debug().
			Int("worker_id", id).
			Str("url", rec.URL).
			Msg("Worker processing download")

		// results is buffered for every job, so this never blocks
		results <- wp.downloader.Download(ctx, rec, dir(rec))
	}

	log.Debug().Int("worker_id", id).Msg("Worker finished")
}
