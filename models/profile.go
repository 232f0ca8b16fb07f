package models

import "strings"

// Experience represents a single position scraped from a LinkedIn profile
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Profile represents the LinkedIn profile captured by the browser extension
type Profile struct {
	Name        string       `json:"name"`
	Headline    string       `json:"headline"`
	About       string       `json:"about"`
	Experiences []Experience `json:"experiences"`
	ProfileURL  string       `json:"profileUrl,omitempty"`
}

// FirstName returns the first word of the profile name
func (p Profile) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Preferences represents the per-request options chosen in the extension
type Preferences struct {
	IncludeResume      bool   `json:"includeResume"`
	AskCoffeeChat      bool   `json:"askCoffeeChat"`
	CustomInstructions string `json:"customInstructions"`
}
