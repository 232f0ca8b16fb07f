package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"coldsend-backend/models"
)

const (
	emailMaxTokens      = 350
	connectionMaxTokens = 150
	maxRetries          = 3
	initialBackoff      = time.Second
)

// OutreachService drafts emails and connection notes from scraped profiles
type OutreachService struct {
	settings  *SettingsService
	generator TextGenerator
	backoff   time.Duration
}

// OutreachServiceOption is a functional option for OutreachService
type OutreachServiceOption func(*OutreachService)

// OutreachWithSettings sets the settings service
func OutreachWithSettings(settings *SettingsService) OutreachServiceOption {
	return func(s *OutreachService) {
		s.settings = settings
	}
}

// OutreachWithGenerator sets the text generator
func OutreachWithGenerator(generator TextGenerator) OutreachServiceOption {
	return func(s *OutreachService) {
		s.generator = generator
	}
}

// OutreachWithBackoff overrides the initial retry backoff
func OutreachWithBackoff(backoff time.Duration) OutreachServiceOption {
	return func(s *OutreachService) {
		s.backoff = backoff
	}
}

// NewOutreachService creates a new outreach service
func NewOutreachService(opts ...OutreachServiceOption) *OutreachService {
	s := &OutreachService{backoff: initialBackoff}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings == nil {
		s.settings = NewSettingsService(models.Settings{})
	}
	return s
}

// GenerateEmail drafts an outreach email for profile
func (s *OutreachService) GenerateEmail(ctx context.Context, profile models.Profile, prefs models.Preferences) (models.Draft, error) {
	settings, err := s.settings.RequireForGeneration()
	if err != nil {
		return models.Draft{}, err
	}

	prompt := BuildEmailPrompt(profile, settings, prefs)
	text, err := s.generate(ctx, settings.APIKey, prompt, emailMaxTokens)
	if err != nil {
		return models.Draft{}, err
	}

	return ParseDraft(text), nil
}

// GenerateConnectionMessage drafts a connection note capped at MaxConnectionNoteLength
func (s *OutreachService) GenerateConnectionMessage(ctx context.Context, profile models.Profile, prefs models.Preferences) (string, error) {
	settings, err := s.settings.RequireForGeneration()
	if err != nil {
		return "", err
	}

	prompt := BuildConnectionPrompt(profile, settings, prefs)
	text, err := s.generate(ctx, settings.APIKey, prompt, connectionMaxTokens)
	if err != nil {
		return "", err
	}

	return TruncateConnectionNote(text), nil
}

// generate calls the model with exponential backoff between attempts
func (s *OutreachService) generate(ctx context.Context, apiKey, prompt string, maxTokens int32) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("%w: text generator not set", ErrGenerationFailed)
	}

	var lastErr error
	backoff := s.backoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}

		text, err := s.generator.Generate(ctx, apiKey, prompt, maxTokens)
		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}
		lastErr = err
		log.Printf("Warning: generation attempt %d/%d failed: %v", attempt+1, maxRetries, err)
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, maxRetries, lastErr)
}
