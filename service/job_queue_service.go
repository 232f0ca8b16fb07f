package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coldsend-backend/models"
	"coldsend-backend/repository"
)

// JobQueue manages outreach campaign rows in a RowStore. Row numbers are the
// only identity, so the backing table must never be reordered.
type JobQueue struct {
	rows repository.RowStore
	now  func() time.Time
}

// NewJobQueue creates a job queue over rows
func NewJobQueue(rows repository.RowStore) *JobQueue {
	return &JobQueue{rows: rows, now: time.Now}
}

// Setup clears the store and writes the header row
func (q *JobQueue) Setup(ctx context.Context) error {
	return q.rows.Reset(ctx, models.JobColumns)
}

// AllJobs returns every non-empty row below the header
func (q *JobQueue) AllJobs(ctx context.Context) ([]models.JobEntry, error) {
	return q.filter(ctx, func(row []string) bool {
		for _, cell := range row {
			if cell != "" {
				return true
			}
		}
		return false
	})
}

// JobsByStatus returns the rows whose status equals status
func (q *JobQueue) JobsByStatus(ctx context.Context, status models.JobStatus) ([]models.JobEntry, error) {
	return q.filter(ctx, func(row []string) bool {
		return len(row) > models.ColStatus && row[models.ColStatus] == string(status)
	})
}

// PendingJobs returns the rows waiting to be picked up
func (q *JobQueue) PendingJobs(ctx context.Context) ([]models.JobEntry, error) {
	return q.JobsByStatus(ctx, models.JobStatusPending)
}

// NextPendingJob returns the first pending row in sheet order, or nil
func (q *JobQueue) NextPendingJob(ctx context.Context) (*models.JobEntry, error) {
	pending, err := q.PendingJobs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return &pending[0], nil
}

// UpdateStatus sets the status cell of a row
func (q *JobQueue) UpdateStatus(ctx context.Context, row int, status models.JobStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := checkRow(row); err != nil {
		return err
	}
	return q.rows.UpdateCell(ctx, row, models.ColStatus, string(status))
}

// UpdateProfilesFound sets the profiles_found counter
func (q *JobQueue) UpdateProfilesFound(ctx context.Context, row, count int) error {
	return q.setCounter(ctx, row, models.ColProfilesFound, count)
}

// UpdateEmailsSent sets the emails_sent counter
func (q *JobQueue) UpdateEmailsSent(ctx context.Context, row, count int) error {
	return q.setCounter(ctx, row, models.ColEmailsSent, count)
}

// IncrementEmailsSent adds one to emails_sent. The read and the write are
// separate calls; concurrent incrementers can lose updates.
func (q *JobQueue) IncrementEmailsSent(ctx context.Context, row int) (int, error) {
	if err := checkRow(row); err != nil {
		return 0, err
	}
	current, err := q.counter(ctx, row, models.ColEmailsSent)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := q.rows.UpdateCell(ctx, row, models.ColEmailsSent, strconv.Itoa(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// NewJob is the input for AddJob
type NewJob struct {
	CompanyName        string
	CompanyLinkedInURL string
	JobTitle           string
	JobDescription     string
	MaxEmails          int
	Notes              string
}

// AddJob appends a pending row and returns its row number
func (q *JobQueue) AddJob(ctx context.Context, job NewJob) (int, error) {
	if strings.TrimSpace(job.CompanyName) == "" {
		return 0, errors.New("company name is required")
	}
	maxEmails := job.MaxEmails
	if maxEmails <= 0 {
		maxEmails = models.DefaultMaxEmails
	}

	row := make([]string, models.JobColumnCount)
	row[models.ColCompanyName] = job.CompanyName
	row[models.ColCompanyLinkedInURL] = job.CompanyLinkedInURL
	row[models.ColJobTitle] = job.JobTitle
	row[models.ColJobDescription] = job.JobDescription
	row[models.ColStatus] = string(models.JobStatusPending)
	row[models.ColDateAdded] = q.now().Format("2006-01-02")
	row[models.ColMaxEmails] = strconv.Itoa(maxEmails)
	row[models.ColProfilesFound] = "0"
	row[models.ColEmailsSent] = "0"
	row[models.ColNotes] = job.Notes

	return q.rows.AppendRow(ctx, row)
}

// AddNote writes note to the notes cell, appending after "; " when asked
func (q *JobQueue) AddNote(ctx context.Context, row int, note string, appendNote bool) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if appendNote {
		current, err := q.rows.Cell(ctx, row, models.ColNotes)
		if err != nil {
			return err
		}
		if current != "" {
			note = current + "; " + note
		}
	}
	return q.rows.UpdateCell(ctx, row, models.ColNotes, note)
}

func (q *JobQueue) filter(ctx context.Context, keep func(row []string) bool) ([]models.JobEntry, error) {
	rows, err := q.rows.Rows(ctx)
	if err != nil {
		return nil, err
	}

	var entries []models.JobEntry
	for i := 1; i < len(rows); i++ {
		if !keep(rows[i]) {
			continue
		}
		entry, err := rowToEntry(i+1, rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (q *JobQueue) counter(ctx context.Context, row, col int) (int, error) {
	value, err := q.rows.Cell(ctx, row, col)
	if err != nil {
		return 0, err
	}
	return parseCount(value, 0)
}

func (q *JobQueue) setCounter(ctx context.Context, row, col, count int) error {
	if err := checkRow(row); err != nil {
		return err
	}
	current, err := q.counter(ctx, row, col)
	if err != nil {
		return err
	}
	if count < current {
		return fmt.Errorf("%w: %s %d -> %d", ErrCounterDecrease, models.JobColumns[col], current, count)
	}
	return q.rows.UpdateCell(ctx, row, col, strconv.Itoa(count))
}

func checkRow(row int) error {
	if row < 2 {
		return fmt.Errorf("%w: row %d is not a job row", ErrInvalidRow, row)
	}
	return nil
}

func rowToEntry(rowNumber int, row []string) (models.JobEntry, error) {
	padded := make([]string, models.JobColumnCount)
	copy(padded, row)

	maxEmails, err := parseCount(padded[models.ColMaxEmails], models.DefaultMaxEmails)
	if err != nil {
		return models.JobEntry{}, fmt.Errorf("row %d max_emails: %w", rowNumber, err)
	}
	profilesFound, err := parseCount(padded[models.ColProfilesFound], 0)
	if err != nil {
		return models.JobEntry{}, fmt.Errorf("row %d profiles_found: %w", rowNumber, err)
	}
	emailsSent, err := parseCount(padded[models.ColEmailsSent], 0)
	if err != nil {
		return models.JobEntry{}, fmt.Errorf("row %d emails_sent: %w", rowNumber, err)
	}

	return models.JobEntry{
		RowNumber:          rowNumber,
		CompanyName:        padded[models.ColCompanyName],
		CompanyLinkedInURL: padded[models.ColCompanyLinkedInURL],
		JobTitle:           padded[models.ColJobTitle],
		JobDescription:     padded[models.ColJobDescription],
		Status:             models.JobStatus(padded[models.ColStatus]),
		DateAdded:          padded[models.ColDateAdded],
		MaxEmails:          maxEmails,
		ProfilesFound:      profilesFound,
		EmailsSent:         emailsSent,
		Notes:              padded[models.ColNotes],
	}, nil
}

func parseCount(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRow, value)
	}
	return n, nil
}
