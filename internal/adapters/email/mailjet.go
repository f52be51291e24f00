package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMailjetBaseURL is the production Mailjet API host.
const DefaultMailjetBaseURL = "https://api.mailjet.com"

// MailjetSender sends emails through the Mailjet v3.1 Send API.
type MailjetSender struct {
	baseURL   string
	apiKey    string
	apiSecret string
	from      Address
	client    *http.Client
}

// NewMailjetSender creates a MailjetSender.
// PRE: apiKey and apiSecret are Mailjet credentials
// POST: An empty baseURL targets DefaultMailjetBaseURL; an empty from uses the defaults
func NewMailjetSender(baseURL, apiKey, apiSecret string, from Address) *MailjetSender {
	if baseURL == "" {
		baseURL = DefaultMailjetBaseURL
	}
	if from.Email == "" {
		from.Email = DefaultFromEmail
	}
	if from.Name == "" {
		from.Name = DefaultFromName
	}
	return &MailjetSender{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		from:      from,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From        mailjetAddress   `json:"From"`
	To          []mailjetAddress `json:"To"`
	Subject     string           `json:"Subject"`
	TextPart    string           `json:"TextPart"`
	HTMLPart    string           `json:"HTMLPart"`
	CustomID    string           `json:"CustomID,omitempty"`
	TrackOpens  string           `json:"TrackOpens"`
	TrackClicks string           `json:"TrackClicks"`
}

type mailjetRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

type mailjetResponse struct {
	Messages []struct {
		Status string `json:"Status"`
		Errors []struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
		To []struct {
			Email       string `json:"Email"`
			MessageID   int64  `json:"MessageID"`
			MessageUUID string `json:"MessageUUID"`
		} `json:"To"`
	} `json:"Messages"`
}

// Send delivers one message to all of its recipients in a single API call.
// PRE: req has at least one recipient
// POST: Returns an error if the transport fails or Mailjet rejects the message
func (s *MailjetSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	results, err := s.post(ctx, []SendRequest{req})
	if err != nil {
		slog.Error("mailjet_send_failed", "error", err, "to", len(req.To), "subject", req.Subject)
		return SendResult{}, err
	}
	slog.Info("mailjet_sent", "to", len(req.To), "custom_id", req.CustomID)
	return results[0], nil
}

// SendBatch submits every message in one API call.
// PRE: len(reqs) > 0
// POST: Either every message was accepted or an error is returned
func (s *MailjetSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	results, err := s.post(ctx, reqs)
	if err != nil {
		slog.Error("mailjet_batch_failed", "error", err, "batch_size", len(reqs))
		return nil, err
	}
	slog.Info("mailjet_batch_sent", "count", len(reqs))
	return results, nil
}

func (s *MailjetSender) post(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	payload := mailjetRequest{Messages: make([]mailjetMessage, 0, len(reqs))}
	for _, r := range reqs {
		payload.Messages = append(payload.Messages, s.message(r))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode mailjet request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3.1/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(s.apiKey, s.apiSecret)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mailjet request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mailjet returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed mailjetResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode mailjet response: %w", err)
	}

	now := time.Now()
	results := make([]SendResult, len(reqs))
	for i, m := range parsed.Messages {
		if m.Status == "error" {
			msg := "unknown error"
			if len(m.Errors) > 0 {
				msg = m.Errors[0].ErrorMessage
			}
			return nil, fmt.Errorf("mailjet rejected message %d: %s", i, msg)
		}
		if i >= len(results) {
			continue
		}
		for _, to := range m.To {
			id := to.MessageUUID
			if to.MessageID != 0 {
				id = strconv.FormatInt(to.MessageID, 10)
			}
			results[i].MessageIDs = append(results[i].MessageIDs, id)
		}
	}
	for i := range results {
		results[i].SentAt = now
	}
	return results, nil
}

func (s *MailjetSender) message(r SendRequest) mailjetMessage {
	from := s.from
	if r.From.Email != "" {
		from = r.From
	}
	to := make([]mailjetAddress, 0, len(r.To))
	for _, rcpt := range r.To {
		to = append(to, mailjetAddress{Email: rcpt.Address, Name: rcpt.Name})
	}
	return mailjetMessage{
		From:        mailjetAddress{Email: from.Email, Name: from.Name},
		To:          to,
		Subject:     r.Subject,
		TextPart:    r.Text,
		HTMLPart:    r.HTML,
		CustomID:    r.CustomID,
		TrackOpens:  trackingFlag(r.TrackOpens),
		TrackClicks: trackingFlag(r.TrackClicks),
	}
}

func trackingFlag(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
