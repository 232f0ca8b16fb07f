package models

// Draft represents a generated outreach email
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
