package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"coldsend-backend/models"

	"golang.org/x/oauth2"
)

type memoryTokenStore struct {
	mu      sync.Mutex
	record  *models.TokenRecord
	loads   int
	saves   int
	saveErr error
}

func (s *memoryTokenStore) Load(ctx context.Context) (*models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.record == nil {
		return nil, nil
	}
	copied := *s.record
	return &copied, nil
}

func (s *memoryTokenStore) Save(ctx context.Context, record *models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	copied := *record
	s.record = &copied
	return nil
}

// newTokenServer fakes the identity platform token endpoint
func newTokenServer(t *testing.T, calls *int32, form *url.Values) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		if form != nil {
			*form, _ = url.ParseQuery(string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":3600,"ext_expires_in":3600,"id_token":"header.payload.sig","scope":"Mail.Send offline_access"}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/auth/callback",
		Scopes:       MailScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://login.example.com/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestAccessTokenNotFound(t *testing.T) {
	manager := NewTokenManager(&memoryTokenStore{}, testOAuthConfig("http://unused"))

	if _, err := manager.AccessToken(context.Background()); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("AccessToken() error = %v, want ErrTokenNotFound", err)
	}
}

func TestAccessTokenCachesRecord(t *testing.T) {
	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "stored"}}
	manager := NewTokenManager(store, testOAuthConfig("http://unused"))

	for i := 0; i < 3; i++ {
		token, err := manager.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("AccessToken() error = %v", err)
		}
		if token != "stored" {
			t.Fatalf("AccessToken() = %q, want stored", token)
		}
	}
	if store.loads != 1 {
		t.Fatalf("store loads = %d, want 1", store.loads)
	}
}

func TestRefreshPersistsNewRecord(t *testing.T) {
	var calls int32
	var form url.Values
	server := newTokenServer(t, &calls, &form)

	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))

	token, err := manager.Refresh(context.Background(), "old-access")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if token != "new-access" {
		t.Fatalf("Refresh() = %q, want new-access", token)
	}
	if calls != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", calls)
	}
	if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "old-refresh" {
		t.Fatalf("token request form = %v", form)
	}

	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}
	if store.record.AccessToken != "new-access" || store.record.RefreshToken != "new-refresh" {
		t.Fatalf("stored record = %+v", store.record)
	}
	if store.record.Scope != "Mail.Send offline_access" {
		t.Fatalf("stored scope = %q", store.record.Scope)
	}
	if store.record.ExpiresAt.IsZero() {
		t.Fatal("stored expiry not set")
	}
	if got := store.record.Extra["id_token"]; got != "header.payload.sig" {
		t.Fatalf("stored id_token = %v, want header.payload.sig", got)
	}
	if got, ok := store.record.Extra["ext_expires_in"].(float64); !ok || got != 3600 {
		t.Fatalf("stored ext_expires_in = %v, want 3600", store.record.Extra["ext_expires_in"])
	}

	current, err := manager.AccessToken(context.Background())
	if err != nil || current != "new-access" {
		t.Fatalf("AccessToken() = %q, %v; want new-access", current, err)
	}
}

// TestRefreshSkipsWhenAlreadyRefreshed checks a caller holding an old token
// gets the current one without a second exchange
func TestRefreshSkipsWhenAlreadyRefreshed(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, nil)

	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))

	if _, err := manager.Refresh(context.Background(), "old-access"); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	token, err := manager.Refresh(context.Background(), "old-access")
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if token != "new-access" {
		t.Fatalf("second Refresh() = %q, want new-access", token)
	}
	if calls != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", calls)
	}
}

func TestRefreshConcurrentCallersExchangeOnce(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, nil)

	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := manager.Refresh(context.Background(), "old-access"); err != nil || token != "new-access" {
				t.Errorf("Refresh() = %q, %v", token, err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", calls)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	tests := []struct {
		name   string
		record *models.TokenRecord
	}{
		{"no record", nil},
		{"no refresh token", &models.TokenRecord{AccessToken: "old-access"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewTokenManager(&memoryTokenStore{record: tt.record}, testOAuthConfig("http://unused"))
			if _, err := manager.Refresh(context.Background(), "old-access"); !errors.Is(err, ErrNoRefreshToken) {
				t.Fatalf("Refresh() error = %v, want ErrNoRefreshToken", err)
			}
		})
	}
}

func TestRefreshExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"AADSTS70008: The refresh token has expired."}`)
	}))
	defer server.Close()

	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))

	_, err := manager.Refresh(context.Background(), "old-access")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("error = %v, want provider error text", err)
	}
	if store.saves != 0 || store.record.AccessToken != "old-access" {
		t.Fatal("failed refresh must not overwrite the stored record")
	}
}

func TestRefreshSaveFailureKeepsCache(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, nil)

	store := &memoryTokenStore{record: &models.TokenRecord{AccessToken: "old-access", RefreshToken: "old-refresh"}}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))
	if _, err := manager.AccessToken(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.saveErr = errors.New("disk full")
	if _, err := manager.Refresh(context.Background(), "old-access"); err == nil {
		t.Fatal("expected persist error")
	}

	token, err := manager.AccessToken(context.Background())
	if err != nil || token != "old-access" {
		t.Fatalf("AccessToken() = %q, %v; want old-access", token, err)
	}
}

func TestExchangeAndAuthCodeURL(t *testing.T) {
	var calls int32
	var form url.Values
	server := newTokenServer(t, &calls, &form)

	store := &memoryTokenStore{}
	manager := NewTokenManager(store, testOAuthConfig(server.URL))

	authURL := manager.AuthCodeURL("signed-state")
	for _, want := range []string{"state=signed-state", "client_id=client", "access_type=offline", "Mail.Send"} {
		if !strings.Contains(authURL, url.QueryEscape(want)) && !strings.Contains(authURL, want) {
			t.Errorf("auth URL %q missing %q", authURL, want)
		}
	}

	record, err := manager.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if form.Get("grant_type") != "authorization_code" || form.Get("code") != "auth-code" {
		t.Fatalf("token request form = %v", form)
	}
	if record.AccessToken != "new-access" || store.record.RefreshToken != "new-refresh" {
		t.Fatalf("record = %+v stored = %+v", record, store.record)
	}

	token, err := manager.AccessToken(context.Background())
	if err != nil || token != "new-access" {
		t.Fatalf("AccessToken() = %q, %v", token, err)
	}
}

func TestNewMicrosoftOAuthConfig(t *testing.T) {
	cfg := NewMicrosoftOAuthConfig("id", "secret", "", "http://localhost:3000/auth/callback")
	if !strings.Contains(cfg.Endpoint.TokenURL, "/common/") {
		t.Fatalf("token URL = %q, want common tenant", cfg.Endpoint.TokenURL)
	}
	cfg = NewMicrosoftOAuthConfig("id", "secret", "contoso", "")
	if !strings.Contains(cfg.Endpoint.AuthURL, "/contoso/") {
		t.Fatalf("auth URL = %q, want contoso tenant", cfg.Endpoint.AuthURL)
	}
}
