package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

// Result is the outcome of fetching one video's transcript.
type Result struct {
	VideoID    string
	Transcript string
	Err        error
}

// Pool fetches transcripts for many videos with a fixed number of workers.
// Results come back in input order regardless of completion order.
type Pool struct {
	Client  *Client
	Workers int
	// Retries is the number of additional attempts per video after a
	// failure. Backoff doubles between attempts.
	Retries int
	Backoff time.Duration
}

func (p *Pool) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return 4
}

func (p *Pool) backoff() time.Duration {
	if p.Backoff > 0 {
		return p.Backoff
	}
	return 500 * time.Millisecond
}

// FetchAll downloads transcripts for all video ids. A per-video failure is
// reported in its Result rather than aborting the batch; cancellation of ctx
// stops the remaining work.
func (p *Pool) FetchAll(ctx context.Context, videoIDs []string) []Result {
	results := make([]Result, len(videoIDs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.fetchOne(ctx, videoIDs[i])
			}
		}()
	}

	for i := range videoIDs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Mark the remaining jobs as cancelled.
			for j := i; j < len(videoIDs); j++ {
				if results[j].VideoID == "" {
					results[j] = Result{VideoID: videoIDs[j], Err: ctx.Err()}
				}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (p *Pool) fetchOne(ctx context.Context, videoID string) Result {
	var lastErr error
	delay := p.backoff()
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{VideoID: videoID, Err: ctx.Err()}
			}
			delay *= 2
		}
		text, err := p.Client.Transcript(ctx, videoID)
		if err == nil {
			return Result{VideoID: videoID, Transcript: text}
		}
		lastErr = err
		// Missing captions will not appear on retry.
		if errors.Is(err, internalerr.ErrNotFound) || ctx.Err() != nil {
			break
		}
	}
	return Result{VideoID: videoID, Err: lastErr}
}
