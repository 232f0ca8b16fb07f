package models

// JobStatus represents the workflow state of an outreach campaign row
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusScraping JobStatus = "scraping"
	JobStatusEmailing JobStatus = "emailing"
	JobStatusDone     JobStatus = "done"
	JobStatusPaused   JobStatus = "paused"
)

// JobStatuses lists the valid statuses in workflow order
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusScraping,
	JobStatusEmailing,
	JobStatusDone,
	JobStatusPaused,
}

// Valid reports whether s is one of the known statuses
func (s JobStatus) Valid() bool {
	for _, status := range JobStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Column positions (0-based) of the job sheet
const (
	ColCompanyName = iota
	ColCompanyLinkedInURL
	ColJobTitle
	ColJobDescription
	ColStatus
	ColDateAdded
	ColMaxEmails
	ColProfilesFound
	ColEmailsSent
	ColNotes

	JobColumnCount
)

// JobColumns is the header row of the job sheet
var JobColumns = []string{
	"company_name",
	"company_linkedin_url",
	"job_title",
	"job_description",
	"status",
	"date_added",
	"max_emails",
	"profiles_found",
	"emails_sent",
	"notes",
}

// DefaultMaxEmails is used when a row leaves max_emails blank
const DefaultMaxEmails = 10

// JobEntry represents one outreach campaign row. RowNumber is the 1-based
// sheet row and the only identity the entry has; row 1 holds the header.
type JobEntry struct {
	RowNumber          int       `json:"row_number"`
	CompanyName        string    `json:"company_name"`
	CompanyLinkedInURL string    `json:"company_linkedin_url"`
	JobTitle           string    `json:"job_title"`
	JobDescription     string    `json:"job_description"`
	Status             JobStatus `json:"status"`
	DateAdded          string    `json:"date_added"`
	MaxEmails          int       `json:"max_emails"`
	ProfilesFound      int       `json:"profiles_found"`
	EmailsSent         int       `json:"emails_sent"`
	Notes              string    `json:"notes"`
}
