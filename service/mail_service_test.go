package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"coldsend-backend/storage"
)

const expiredTokenBody = `{"error":{"code":"InvalidAuthenticationToken","message":"Lifetime validation failed, the token is expired."}}`

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	stale []string
	fresh string
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, stale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stale = append(f.stale, stale)
	return f.fresh, f.err
}

// graphStub answers sendMail requests from a scripted list of responses
type graphStub struct {
	mu        sync.Mutex
	responses []stubResponse
	tokens    []string
	payloads  []graphSendMailRequest
}

type stubResponse struct {
	status int
	body   string
}

func (g *graphStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tokens = append(g.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	var payload graphSendMailRequest
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &payload)
	g.payloads = append(g.payloads, payload)

	resp := stubResponse{status: http.StatusAccepted}
	if i := len(g.tokens) - 1; i < len(g.responses) {
		resp = g.responses[i]
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func newMailTest(t *testing.T, stub *graphStub, opts ...MailServiceOption) *MailService {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	base := []MailServiceOption{
		MailWithSendURL(server.URL),
		MailWithHTTPClient(server.Client()),
	}
	return NewMailService(append(base, opts...)...)
}

var testMail = OutgoingMail{
	To:            "ana@example.com",
	Subject:       "Quick question",
	BodyHTML:      "Hi Ana,\nLoved the ledger post.",
	SignatureHTML: "<p>Krishiv</p>",
}

func TestSendSuccess(t *testing.T) {
	stub := &graphStub{}
	refresher := &fakeRefresher{fresh: "new"}
	mail := newMailTest(t, stub, MailWithTokenRefresher(refresher))

	if err := mail.Send(context.Background(), "tok", testMail, SendOptions{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(stub.tokens) != 1 || stub.tokens[0] != "tok" {
		t.Fatalf("tokens = %v, want [tok]", stub.tokens)
	}
	if refresher.calls != 0 {
		t.Fatalf("refresh calls = %d, want 0", refresher.calls)
	}

	msg := stub.payloads[0].Message
	if msg.Subject != "Quick question" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.ToRecipients[0].EmailAddress.Address != "ana@example.com" {
		t.Fatalf("recipient = %q", msg.ToRecipients[0].EmailAddress.Address)
	}
	if msg.Body.ContentType != "HTML" {
		t.Fatalf("content type = %q, want HTML", msg.Body.ContentType)
	}
	want := "<html><body>Hi Ana,<br>\nLoved the ledger post.<br><br>\n<p>Krishiv</p></body></html>"
	if msg.Body.Content != want {
		t.Fatalf("content = %q, want %q", msg.Body.Content, want)
	}
	if len(msg.Attachments) != 0 || len(msg.SingleValueExtendedProperties) != 0 {
		t.Fatal("unexpected attachment or schedule property")
	}
}

// TestSendExpiredTokenRetriesOnce checks one refresh and one resend after an expired token
func TestSendExpiredTokenRetriesOnce(t *testing.T) {
	stub := &graphStub{responses: []stubResponse{
		{status: http.StatusUnauthorized, body: expiredTokenBody},
		{status: http.StatusAccepted},
	}}
	refresher := &fakeRefresher{fresh: "fresh-token"}
	mail := newMailTest(t, stub, MailWithTokenRefresher(refresher))

	if err := mail.Send(context.Background(), "old-token", testMail, SendOptions{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("refresh calls = %d, want 1", refresher.calls)
	}
	if refresher.stale[0] != "old-token" {
		t.Fatalf("stale token = %q, want old-token", refresher.stale[0])
	}
	if len(stub.tokens) != 2 || stub.tokens[1] != "fresh-token" {
		t.Fatalf("tokens = %v, want [old-token fresh-token]", stub.tokens)
	}
}

// TestSendSecondFailureIsFinal checks there is no third attempt
func TestSendSecondFailureIsFinal(t *testing.T) {
	stub := &graphStub{responses: []stubResponse{
		{status: http.StatusUnauthorized, body: expiredTokenBody},
		{status: http.StatusUnauthorized, body: expiredTokenBody},
		{status: http.StatusAccepted},
	}}
	refresher := &fakeRefresher{fresh: "fresh-token"}
	mail := newMailTest(t, stub, MailWithTokenRefresher(refresher))

	err := mail.Send(context.Background(), "old-token", testMail, SendOptions{})
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("error = %v, want *SendError", err)
	}
	if sendErr.StatusCode != http.StatusUnauthorized || sendErr.Body != expiredTokenBody {
		t.Fatalf("SendError = %d %q", sendErr.StatusCode, sendErr.Body)
	}
	if refresher.calls != 1 {
		t.Fatalf("refresh calls = %d, want 1", refresher.calls)
	}
	if len(stub.tokens) != 2 {
		t.Fatalf("attempts = %d, want 2", len(stub.tokens))
	}
}

func TestSendRefreshFailure(t *testing.T) {
	stub := &graphStub{responses: []stubResponse{
		{status: http.StatusUnauthorized, body: expiredTokenBody},
	}}
	refresher := &fakeRefresher{err: ErrNoRefreshToken}
	mail := newMailTest(t, stub, MailWithTokenRefresher(refresher))

	err := mail.Send(context.Background(), "old-token", testMail, SendOptions{})
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("error = %v, want ErrNoRefreshToken", err)
	}
	if len(stub.tokens) != 1 {
		t.Fatalf("attempts = %d, want 1", len(stub.tokens))
	}
}

func TestSendOtherFailuresNotRetried(t *testing.T) {
	tests := []struct {
		name string
		resp stubResponse
	}{
		{"forbidden", stubResponse{http.StatusForbidden, `{"error":{"code":"ErrorAccessDenied","message":"Access is denied."}}`}},
		{"unauthorized without token code", stubResponse{http.StatusUnauthorized, `{"error":{"code":"Unauthorized","message":"Mailbox disabled"}}`}},
		{"server error", stubResponse{http.StatusInternalServerError, "upstream exploded"}},
		{"bad request", stubResponse{http.StatusBadRequest, `{"error":{"code":"ErrorInvalidRecipients"}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &graphStub{responses: []stubResponse{tt.resp}}
			refresher := &fakeRefresher{fresh: "fresh"}
			mail := newMailTest(t, stub, MailWithTokenRefresher(refresher))

			err := mail.Send(context.Background(), "tok", testMail, SendOptions{})
			var sendErr *SendError
			if !errors.As(err, &sendErr) {
				t.Fatalf("error = %v, want *SendError", err)
			}
			if sendErr.StatusCode != tt.resp.status || sendErr.Body != tt.resp.body {
				t.Fatalf("SendError = %d %q, want %d %q", sendErr.StatusCode, sendErr.Body, tt.resp.status, tt.resp.body)
			}
			if refresher.calls != 0 || len(stub.tokens) != 1 {
				t.Fatalf("refresh calls = %d attempts = %d, want 0 and 1", refresher.calls, len(stub.tokens))
			}
		})
	}
}

func TestSendWithAttachment(t *testing.T) {
	dir := t.TempDir()
	resume := "resumes/abc/Resume.PDF"
	content := []byte("%PDF-1.4 fake resume")
	if err := os.MkdirAll(filepath.Join(dir, "resumes", "abc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, resume), content, 0o600); err != nil {
		t.Fatal(err)
	}
	documents, err := storage.NewLocalStorage(dir)
	if err != nil {
		t.Fatal(err)
	}

	stub := &graphStub{}
	mail := newMailTest(t, stub, MailWithDocuments(documents))

	if err := mail.Send(context.Background(), "tok", testMail, SendOptions{AttachmentPath: resume}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	attachments := stub.payloads[0].Message.Attachments
	if len(attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(attachments))
	}
	a := attachments[0]
	if a.ODataType != "#microsoft.graph.fileAttachment" || a.Name != "Resume.PDF" || a.ContentType != "application/pdf" {
		t.Fatalf("attachment = %+v", a)
	}
	decoded, err := base64.StdEncoding.DecodeString(a.ContentBytes)
	if err != nil || string(decoded) != string(content) {
		t.Fatalf("contentBytes decode = %q, %v", decoded, err)
	}
}

func TestSendMissingAttachmentOmitted(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	documents, err := storage.NewLocalStorage(filepath.Join(dir, "documents"))
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"resumes/nope.pdf", "../secret.txt", filepath.Join(dir, "secret.txt")} {
		stub := &graphStub{}
		mail := newMailTest(t, stub, MailWithDocuments(documents))
		if err := mail.Send(context.Background(), "tok", testMail, SendOptions{AttachmentPath: key}); err != nil {
			t.Fatalf("Send(%q) error = %v", key, err)
		}
		if n := len(stub.payloads[0].Message.Attachments); n != 0 {
			t.Fatalf("Send(%q) attachments = %d, want 0", key, n)
		}
	}
}

func TestSendScheduled(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	friday := time.Date(2026, 10, 30, 12, 0, 0, 0, chicago)

	stub := &graphStub{}
	mail := newMailTest(t, stub,
		MailWithLocation(chicago),
		MailWithClock(func() time.Time { return friday }),
	)

	if err := mail.Send(context.Background(), "tok", testMail, SendOptions{ScheduleSend: true}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	props := stub.payloads[0].Message.SingleValueExtendedProperties
	if len(props) != 1 {
		t.Fatalf("extended properties = %d, want 1", len(props))
	}
	if props[0].ID != "SystemTime 0x3FEF" {
		t.Fatalf("property id = %q", props[0].ID)
	}
	if props[0].Value != "2026-11-02T15:00:00Z" {
		t.Fatalf("deferred send = %q, want 2026-11-02T15:00:00Z", props[0].Value)
	}
}

func TestIsExpiredTokenError(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{expiredTokenBody, true},
		{`{"error":{"code":"invalidauthenticationtoken"}}`, true},
		{`{"error":{"code":"Unauthorized","message":"Access token has expired or is not yet valid."}}`, true},
		{`{"error":{"code":"Unauthorized","message":"Mailbox disabled"}}`, false},
		{`not json`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := isExpiredTokenError([]byte(tt.body)); got != tt.want {
			t.Errorf("isExpiredTokenError(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
