package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"coldsend-backend/storage"
)

const (
	graphSendMailURL = "https://graph.microsoft.com/v1.0/me/sendMail"

	// PidTagDeferredSendTime; Exchange holds the message in Outbox until then
	deferredSendPropertyID = "SystemTime 0x3FEF"
)

// TokenRefresher returns a fresh access token to replace a rejected one
type TokenRefresher interface {
	Refresh(ctx context.Context, stale string) (string, error)
}

// OutgoingMail is the message handed to the mail provider
type OutgoingMail struct {
	To            string
	Subject       string
	BodyHTML      string
	SignatureHTML string
}

// SendOptions are the optional parts of a send
type SendOptions struct {
	AttachmentPath string
	ScheduleSend   bool
}

// MailService sends mail through Microsoft Graph with delegated credentials
type MailService struct {
	tokens     TokenRefresher
	documents  storage.Storage
	httpClient *http.Client
	sendURL    string
	location   *time.Location
	now        func() time.Time
}

// MailServiceOption is a functional option for MailService
type MailServiceOption func(*MailService)

// MailWithTokenRefresher sets the token refresher used after an expired-token rejection
func MailWithTokenRefresher(tokens TokenRefresher) MailServiceOption {
	return func(s *MailService) {
		s.tokens = tokens
	}
}

// MailWithDocuments sets the storage attachments are loaded from
func MailWithDocuments(documents storage.Storage) MailServiceOption {
	return func(s *MailService) {
		s.documents = documents
	}
}

// MailWithHTTPClient sets the HTTP client
func MailWithHTTPClient(client *http.Client) MailServiceOption {
	return func(s *MailService) {
		s.httpClient = client
	}
}

// MailWithSendURL overrides the Graph sendMail endpoint
func MailWithSendURL(url string) MailServiceOption {
	return func(s *MailService) {
		s.sendURL = url
	}
}

// MailWithLocation sets the reference timezone for scheduled sends
func MailWithLocation(loc *time.Location) MailServiceOption {
	return func(s *MailService) {
		s.location = loc
	}
}

// MailWithClock overrides the clock used for scheduled sends
func MailWithClock(now func() time.Time) MailServiceOption {
	return func(s *MailService) {
		s.now = now
	}
}

// NewMailService creates a new mail service
func NewMailService(opts ...MailServiceOption) *MailService {
	s := &MailService{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sendURL:    graphSendMailURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.location == nil {
		loc, err := LoadScheduleLocation("")
		if err != nil {
			loc = time.UTC
		}
		s.location = loc
	}
	return s
}

// Send delivers mail. A 401 naming an invalid or expired token triggers one
// refresh and exactly one resend; every other failure is returned as is.
func (s *MailService) Send(ctx context.Context, accessToken string, mail OutgoingMail, opts SendOptions) error {
	payload, err := s.buildPayload(ctx, mail, opts)
	if err != nil {
		return err
	}

	status, body, err := s.post(ctx, accessToken, payload)
	if err != nil {
		return err
	}
	if status == http.StatusAccepted {
		return nil
	}

	if status == http.StatusUnauthorized && isExpiredTokenError(body) && s.tokens != nil {
		log.Printf("Access token rejected, refreshing and retrying once")
		fresh, err := s.tokens.Refresh(ctx, accessToken)
		if err != nil {
			return fmt.Errorf("failed to refresh access token: %w", err)
		}

		status, body, err = s.post(ctx, fresh, payload)
		if err != nil {
			return err
		}
		if status == http.StatusAccepted {
			return nil
		}
	}

	return &SendError{StatusCode: status, Body: string(body)}
}

func (s *MailService) post(ctx context.Context, accessToken string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

type graphEmailAddress struct {
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphExtendedProperty struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type graphMessage struct {
	Subject                       string                  `json:"subject"`
	Body                          graphBody               `json:"body"`
	ToRecipients                  []graphRecipient        `json:"toRecipients"`
	Attachments                   []graphAttachment       `json:"attachments,omitempty"`
	SingleValueExtendedProperties []graphExtendedProperty `json:"singleValueExtendedProperties,omitempty"`
}

type graphSendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func (s *MailService) buildPayload(ctx context.Context, mail OutgoingMail, opts SendOptions) ([]byte, error) {
	msg := graphMessage{
		Subject: mail.Subject,
		Body: graphBody{
			ContentType: "HTML",
			Content:     composeHTML(mail.BodyHTML, mail.SignatureHTML),
		},
		ToRecipients: []graphRecipient{{EmailAddress: graphEmailAddress{Address: mail.To}}},
	}

	if opts.AttachmentPath != "" {
		attachment, err := s.loadAttachment(ctx, opts.AttachmentPath)
		switch {
		case err == nil:
			msg.Attachments = append(msg.Attachments, attachment)
		case errors.Is(err, storage.ErrNotFound):
			log.Printf("Warning: attachment %s not found, sending without it", opts.AttachmentPath)
		default:
			log.Printf("Warning: failed to load attachment %s, sending without it: %v", opts.AttachmentPath, err)
		}
	}

	if opts.ScheduleSend {
		sendAt := NextWeekdayMorning(s.now(), s.location)
		msg.SingleValueExtendedProperties = append(msg.SingleValueExtendedProperties, graphExtendedProperty{
			ID:    deferredSendPropertyID,
			Value: sendAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	return json.Marshal(graphSendMailRequest{Message: msg, SaveToSentItems: true})
}

func (s *MailService) loadAttachment(ctx context.Context, path string) (graphAttachment, error) {
	if s.documents == nil {
		return graphAttachment{}, errors.New("document storage not set")
	}

	rc, err := s.documents.Get(ctx, path)
	if err != nil {
		return graphAttachment{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return graphAttachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	name := filepath.Base(path)
	return graphAttachment{
		ODataType:    "#microsoft.graph.fileAttachment",
		Name:         name,
		ContentType:  storage.ContentType(name),
		ContentBytes: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// composeHTML wraps the body and signature into one HTML document. Plain-text
// line breaks from the model are kept as <br>.
func composeHTML(body, signature string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(strings.ReplaceAll(strings.TrimSpace(body), "\n", "<br>\n"))
	if signature != "" {
		b.WriteString("<br><br>\n")
		b.WriteString(signature)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// isExpiredTokenError reports whether a Graph error body names a bad or expired token
func isExpiredTokenError(body []byte) bool {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}

	if strings.EqualFold(payload.Error.Code, "InvalidAuthenticationToken") {
		return true
	}
	msg := strings.ToLower(payload.Error.Message)
	return strings.Contains(msg, "token") && (strings.Contains(msg, "expired") || strings.Contains(msg, "invalid"))
}
