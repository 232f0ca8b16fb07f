package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apolloPeopleMatchURL = "https://api.apollo.io/api/v1/people/match"

// Contact is the enrichment result for a LinkedIn profile
type Contact struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// ApolloService looks up contact details with the Apollo people-match API
type ApolloService struct {
	settings   *SettingsService
	httpClient *http.Client
	matchURL   string
}

// NewApolloService creates a new Apollo lookup service
func NewApolloService(settings *SettingsService, client *http.Client) *ApolloService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ApolloService{settings: settings, httpClient: client, matchURL: apolloPeopleMatchURL}
}

// WithMatchURL overrides the people-match endpoint
func (s *ApolloService) WithMatchURL(url string) *ApolloService {
	s.matchURL = url
	return s
}

// LookupByLinkedIn finds the work email and profile basics for a LinkedIn URL
func (s *ApolloService) LookupByLinkedIn(ctx context.Context, linkedinURL string) (*Contact, error) {
	apiKey, err := s.settings.RequireApolloKey()
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"linkedin_url":           linkedinURL,
		"reveal_personal_emails": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.matchURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apollo API error: %d - %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Person *struct {
			Name         string `json:"name"`
			Title        string `json:"title"`
			Email        string `json:"email"`
			Organization *struct {
				Name string `json:"name"`
			} `json:"organization"`
		} `json:"person"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Person == nil || apiResp.Person.Email == "" {
		return nil, ErrContactNotFound
	}

	contact := &Contact{
		Email: apiResp.Person.Email,
		Name:  apiResp.Person.Name,
		Title: apiResp.Person.Title,
	}
	if apiResp.Person.Organization != nil {
		contact.Company = apiResp.Person.Organization.Name
	}
	return contact, nil
}
