package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"coldsend-backend/models"
)

// JobHandler processes a claimed job
type JobHandler func(ctx context.Context, job models.JobEntry) error

// JobPoller claims pending rows one at a time. It assumes it is the only
// consumer of the queue.
type JobPoller struct {
	queue    *JobQueue
	interval time.Duration
	handle   JobHandler
}

// NewJobPoller creates a poller that checks the queue every interval
func NewJobPoller(queue *JobQueue, interval time.Duration, handle JobHandler) *JobPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JobPoller{queue: queue, interval: interval, handle: handle}
}

// Run polls until ctx is cancelled
func (p *JobPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			log.Printf("Poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollOnce claims the next pending job, marks it scraping and hands it to
// the handler. A handler error pauses the job and records the error in notes.
func (p *JobPoller) PollOnce(ctx context.Context) (*models.JobEntry, error) {
	job, err := p.queue.NextPendingJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	if err := p.queue.UpdateStatus(ctx, job.RowNumber, models.JobStatusScraping); err != nil {
		return nil, fmt.Errorf("failed to claim row %d: %w", job.RowNumber, err)
	}
	job.Status = models.JobStatusScraping
	log.Printf("Claimed job row %d (%s - %s)", job.RowNumber, job.CompanyName, job.JobTitle)

	if p.handle == nil {
		return job, nil
	}

	if err := p.handle(ctx, *job); err != nil {
		log.Printf("Job row %d failed: %v", job.RowNumber, err)
		if statusErr := p.queue.UpdateStatus(ctx, job.RowNumber, models.JobStatusPaused); statusErr != nil {
			return job, fmt.Errorf("failed to pause row %d: %w", job.RowNumber, statusErr)
		}
		job.Status = models.JobStatusPaused
		if noteErr := p.queue.AddNote(ctx, job.RowNumber, "error: "+err.Error(), true); noteErr != nil {
			log.Printf("Warning: failed to record error note on row %d: %v", job.RowNumber, noteErr)
		}
		return job, err
	}

	return job, nil
}
