package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"coldsend-backend/config"
	"coldsend-backend/models"
	"coldsend-backend/repository"
	"coldsend-backend/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const usage = `usage: jobqueue <command> [flags] [args]

commands:
  setup                       reset the job table and write the header
  add -company NAME [...]     append a pending job
  list [-status STATUS]       print jobs
  next                        print the next pending job
  status ROW STATUS           set a job's status
  profiles ROW COUNT          set profiles_found
  sent ROW COUNT              set emails_sent
  increment ROW               add one to emails_sent
  note [-replace] ROW TEXT    add a note
  poll [-once]                claim pending jobs and print them as JSON lines
`

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, closeStore, err := openRowStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s job store: %v", cfg.JobQueueBackend, err)
	}
	defer closeStore()

	queue := service.NewJobQueue(rows)
	if err := run(ctx, queue, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func openRowStore(ctx context.Context, cfg *config.Config) (repository.RowStore, func(), error) {
	switch cfg.JobQueueBackend {
	case config.JobQueuePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Println("Postgres connection established")
		return repository.NewPostgresRowStore(pool), pool.Close, nil
	default:
		if cfg.GoogleSheetID == "" {
			return nil, nil, errors.New("GOOGLE_SHEET_ID is required for the sheets backend")
		}
		store, err := repository.NewSheetsRowStore(ctx, cfg.GoogleSheetID, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func run(ctx context.Context, queue *service.JobQueue, cfg *config.Config, cmd string, args []string) error {
	switch cmd {
	case "setup":
		if err := queue.Setup(ctx); err != nil {
			return err
		}
		log.Println("✓ Job table reset with header row")
		return nil

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		company := fs.String("company", "", "company name (required)")
		linkedin := fs.String("linkedin", "", "company LinkedIn URL")
		title := fs.String("title", "", "job title")
		description := fs.String("description", "", "job description")
		maxEmails := fs.Int("max-emails", models.DefaultMaxEmails, "maximum emails to send")
		notes := fs.String("notes", "", "initial notes")
		fs.Parse(args)

		row, err := queue.AddJob(ctx, service.NewJob{
			CompanyName:        *company,
			CompanyLinkedInURL: *linkedin,
			JobTitle:           *title,
			JobDescription:     *description,
			MaxEmails:          *maxEmails,
			Notes:              *notes,
		})
		if err != nil {
			return err
		}
		log.Printf("✓ Added %s as row %d", *company, row)
		return nil

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		status := fs.String("status", "", "only list jobs with this status")
		fs.Parse(args)

		var jobs []models.JobEntry
		var err error
		if *status == "" {
			jobs, err = queue.AllJobs(ctx)
		} else {
			jobs, err = queue.JobsByStatus(ctx, models.JobStatus(*status))
		}
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil

	case "next":
		job, err := queue.NextPendingJob(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			log.Println("No pending jobs")
			return nil
		}
		return printJSON(job)

	case "status":
		row, rest, err := rowArg(args, 1)
		if err != nil {
			return err
		}
		return queue.UpdateStatus(ctx, row, models.JobStatus(rest[0]))

	case "profiles", "sent":
		row, rest, err := rowArg(args, 1)
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid count %q", rest[0])
		}
		if cmd == "profiles" {
			return queue.UpdateProfilesFound(ctx, row, count)
		}
		return queue.UpdateEmailsSent(ctx, row, count)

	case "increment":
		row, _, err := rowArg(args, 0)
		if err != nil {
			return err
		}
		count, err := queue.IncrementEmailsSent(ctx, row)
		if err != nil {
			return err
		}
		log.Printf("✓ Row %d emails_sent = %d", row, count)
		return nil

	case "note":
		fs := flag.NewFlagSet("note", flag.ExitOnError)
		replace := fs.Bool("replace", false, "overwrite instead of appending")
		fs.Parse(args)

		row, rest, err := rowArg(fs.Args(), 1)
		if err != nil {
			return err
		}
		return queue.AddNote(ctx, row, rest[0], !*replace)

	case "poll":
		fs := flag.NewFlagSet("poll", flag.ExitOnError)
		once := fs.Bool("once", false, "claim at most one job and exit")
		interval := fs.Duration("interval", cfg.PollInterval, "time between polls")
		fs.Parse(args)

		// Claimed jobs go to stdout for the scraper; progress goes to the log
		poller := service.NewJobPoller(queue, *interval, func(ctx context.Context, job models.JobEntry) error {
			return printJSON(job)
		})
		if *once {
			_, err := poller.PollOnce(ctx)
			return err
		}
		log.Printf("Polling for pending jobs every %s", *interval)
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// rowArg parses the leading row number and checks that want more args follow
func rowArg(args []string, want int) (int, []string, error) {
	if len(args) < want+1 {
		return 0, nil, errors.New("missing arguments")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid row %q", args[0])
	}
	return row, args[1:], nil
}

func printJobs(jobs []models.JobEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROW\tCOMPANY\tTITLE\tSTATUS\tPROFILES\tSENT/MAX\tNOTES")
	for _, job := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			job.RowNumber, job.CompanyName, job.JobTitle, job.Status,
			job.ProfilesFound, job.EmailsSent, job.MaxEmails, job.Notes)
	}
	w.Flush()
}

func printJSON(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
