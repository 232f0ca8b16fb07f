package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coldsend-backend/models"
)

func newApolloTest(t *testing.T, status int, body string, seen *http.Header, seenBody *map[string]interface{}) *ApolloService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.Header.Clone()
		}
		if seenBody != nil {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, seenBody)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	settings := NewSettingsService(models.Settings{ApolloAPIKey: "apollo-key"})
	return NewApolloService(settings, server.Client()).WithMatchURL(server.URL)
}

func TestLookupByLinkedIn(t *testing.T) {
	var header http.Header
	var body map[string]interface{}
	svc := newApolloTest(t, http.StatusOK, `{"person":{"name":"Ana Ruiz","title":"Staff Engineer","email":"ana@stripe.com","organization":{"name":"Stripe"}}}`, &header, &body)

	contact, err := svc.LookupByLinkedIn(context.Background(), "https://www.linkedin.com/in/anaruiz")
	if err != nil {
		t.Fatalf("LookupByLinkedIn() error = %v", err)
	}
	want := Contact{Email: "ana@stripe.com", Name: "Ana Ruiz", Title: "Staff Engineer", Company: "Stripe"}
	if *contact != want {
		t.Fatalf("contact = %+v, want %+v", *contact, want)
	}
	if header.Get("X-Api-Key") != "apollo-key" {
		t.Fatalf("X-Api-Key = %q", header.Get("X-Api-Key"))
	}
	if body["linkedin_url"] != "https://www.linkedin.com/in/anaruiz" {
		t.Fatalf("request body = %v", body)
	}
}

func TestLookupByLinkedInNoEmail(t *testing.T) {
	for _, payload := range []string{`{"person":null}`, `{"person":{"name":"Ana","email":""}}`, `{}`} {
		svc := newApolloTest(t, http.StatusOK, payload, nil, nil)
		if _, err := svc.LookupByLinkedIn(context.Background(), "https://www.linkedin.com/in/x"); !errors.Is(err, ErrContactNotFound) {
			t.Fatalf("payload %s: error = %v, want ErrContactNotFound", payload, err)
		}
	}
}

func TestLookupByLinkedInProviderError(t *testing.T) {
	svc := newApolloTest(t, http.StatusUnprocessableEntity, `{"error":"invalid linkedin_url"}`, nil, nil)

	_, err := svc.LookupByLinkedIn(context.Background(), "nope")
	if err == nil || !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "invalid linkedin_url") {
		t.Fatalf("error = %v, want status and provider text", err)
	}
}

func TestLookupByLinkedInRequiresKey(t *testing.T) {
	svc := NewApolloService(NewSettingsService(models.Settings{}), nil)
	if _, err := svc.LookupByLinkedIn(context.Background(), "https://www.linkedin.com/in/x"); !errors.Is(err, ErrSettingsNotConfigured) {
		t.Fatalf("error = %v, want ErrSettingsNotConfigured", err)
	}
}
