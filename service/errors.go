package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSettingsNotConfigured = errors.New("settings not configured")
	ErrGenerationFailed      = errors.New("failed to generate content")
	ErrTokenNotFound         = errors.New("no access token stored")
	ErrNoRefreshToken        = errors.New("no refresh token stored")
	ErrContactNotFound       = errors.New("no contact found for profile")
	ErrInvalidStatus         = errors.New("invalid job status")
	ErrCounterDecrease       = errors.New("job counters cannot decrease")
	ErrInvalidRow            = errors.New("invalid job row")
	ErrInvalidState          = errors.New("invalid oauth state")
)

// MissingSettingsError names the settings an operation needs but lacks
type MissingSettingsError struct {
	Fields []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrSettingsNotConfigured, strings.Join(e.Fields, ", "))
}

// Is lets callers match with errors.Is(err, ErrSettingsNotConfigured)
func (e *MissingSettingsError) Is(target error) bool {
	return target == ErrSettingsNotConfigured
}

// SendError carries the mail provider's raw response for a rejected send
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mail provider error: %d - %s", e.StatusCode, e.Body)
}
