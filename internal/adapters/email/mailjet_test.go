package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crmmail/internal/domain/recipient"
)

type capturedRequest struct {
	Path     string
	User     string
	Password string
	Body     mailjetRequest
}

func newMailjetServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.User, captured.Password, _ = r.BasicAuth()
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured.Body); err != nil {
			t.Errorf("decode request: %v body=%q", err, string(raw))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMailjetSender_Send(t *testing.T) {
	var captured capturedRequest
	srv := newMailjetServer(t, http.StatusOK,
		`{"Messages":[{"Status":"success","To":[{"Email":"a@example.com","MessageID":111},{"Email":"b@example.com","MessageID":222}]}]}`,
		&captured)

	s := NewMailjetSender(srv.URL, "key", "secret", Address{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := s.Send(ctx, SendRequest{
		To:         []recipient.Recipient{{Address: "a@example.com", Name: "A"}, {Address: "b@example.com"}},
		Subject:    "Hello",
		HTML:       "<p>Hi</p>",
		CustomID:   "c1",
		TrackOpens: true,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(res.MessageIDs) != 2 || res.MessageIDs[0] != "111" {
		t.Errorf("MessageIDs = %v", res.MessageIDs)
	}

	if captured.Path != "/v3.1/send" {
		t.Errorf("path = %q", captured.Path)
	}
	if captured.User != "key" || captured.Password != "secret" {
		t.Errorf("basic auth = %q/%q", captured.User, captured.Password)
	}
	if len(captured.Body.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(captured.Body.Messages))
	}
	m := captured.Body.Messages[0]
	if m.From.Email != DefaultFromEmail || m.From.Name != DefaultFromName {
		t.Errorf("From = %+v", m.From)
	}
	if len(m.To) != 2 || m.To[0].Name != "A" {
		t.Errorf("To = %+v", m.To)
	}
	if m.CustomID != "c1" || m.TrackOpens != "enabled" || m.TrackClicks != "disabled" || m.HTMLPart != "<p>Hi</p>" {
		t.Errorf("message = %+v", m)
	}
}

func TestMailjetSender_SendBatchOneCall(t *testing.T) {
	var captured capturedRequest
	srv := newMailjetServer(t, http.StatusOK,
		`{"Messages":[{"Status":"success"},{"Status":"success"},{"Status":"success"}]}`, &captured)

	s := NewMailjetSender(srv.URL, "key", "secret", Address{Email: "crm@example.com", Name: "CRM"})
	reqs := []SendRequest{
		{To: []recipient.Recipient{{Address: "a@example.com"}}, Subject: "S", CustomID: "c1"},
		{To: []recipient.Recipient{{Address: "b@example.com"}}, Subject: "S", CustomID: "c1"},
		{To: []recipient.Recipient{{Address: "c@example.com"}}, Subject: "S", CustomID: "c1"},
	}
	res, err := s.SendBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(res) != 3 {
		t.Errorf("results = %d, want 3", len(res))
	}
	if len(captured.Body.Messages) != 3 {
		t.Fatalf("messages in one call = %d, want 3", len(captured.Body.Messages))
	}
	if captured.Body.Messages[2].From.Email != "crm@example.com" {
		t.Errorf("From = %+v", captured.Body.Messages[2].From)
	}
}

func TestMailjetSender_Non2xxIsError(t *testing.T) {
	var captured capturedRequest
	srv := newMailjetServer(t, http.StatusUnauthorized, `{"ErrorMessage":"API key authentication/authorization failure"}`, &captured)

	s := NewMailjetSender(srv.URL, "bad", "bad", Address{})
	_, err := s.Send(context.Background(), SendRequest{To: []recipient.Recipient{{Address: "a@example.com"}}, Subject: "S"})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should mention status", err)
	}
}

func TestMailjetSender_MessageErrorFailsBatch(t *testing.T) {
	var captured capturedRequest
	srv := newMailjetServer(t, http.StatusOK,
		`{"Messages":[{"Status":"success"},{"Status":"error","Errors":[{"ErrorMessage":"Invalid email"}]}]}`, &captured)

	s := NewMailjetSender(srv.URL, "key", "secret", Address{})
	_, err := s.SendBatch(context.Background(), []SendRequest{
		{To: []recipient.Recipient{{Address: "a@example.com"}}, Subject: "S"},
		{To: []recipient.Recipient{{Address: "bad"}}, Subject: "S"},
	})
	if err == nil || !strings.Contains(err.Error(), "Invalid email") {
		t.Errorf("err = %v, want rejection", err)
	}
}

func TestNoopSender_SendBatch(t *testing.T) {
	s := NewNoopSender()
	res, err := s.SendBatch(context.Background(), []SendRequest{{Subject: "a"}, {Subject: "b"}})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(res) != 2 || len(res[0].MessageIDs) != 1 {
		t.Errorf("results = %+v", res)
	}
}

func TestFormatAddress(t *testing.T) {
	if got := formatAddress(Address{Email: "a@example.com"}); got != "a@example.com" {
		t.Errorf("got %q", got)
	}
	if got := formatAddress(Address{Email: "a@example.com", Name: "CRM"}); got != "CRM <a@example.com>" {
		t.Errorf("got %q", got)
	}
}
