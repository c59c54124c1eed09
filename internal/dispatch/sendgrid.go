package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridTransport delivers through the SendGrid Web API v3 with a single
// JSON request per call. Any 2xx response counts as success; everything
// else, including transport-level failures, is reported in the detail.
type SendGridTransport struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSendGridTransport(apiKey string, timeout time.Duration) *SendGridTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SendGridTransport{
		apiKey:   apiKey,
		endpoint: sendGridEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }
func (t *SendGridTransport) Kind() string { return "http" }

func (t *SendGridTransport) Configured() bool {
	return t.apiKey != ""
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
	Cc []sgAddress `json:"cc,omitempty"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (t *SendGridTransport) Send(ctx context.Context, req Request) Result {
	if t.apiKey == "" {
		return Result{Detail: "sendgrid: api key not set"}
	}

	payload := sgPayload{
		Personalizations: []sgPersonalization{{
			To: toSGAddresses(req.To),
			Cc: toSGAddresses(req.Cc),
		}},
		From:    sgAddress{Email: req.Identity.FromEmail, Name: req.Identity.FromName},
		Subject: req.Subject,
		Content: []sgContent{
			{Type: "text/plain", Value: req.PlainBody},
			{Type: "text/html", Value: req.HTMLBody},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Detail: fmt.Sprintf("sendgrid: marshal payload: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Detail: fmt.Sprintf("sendgrid: build request: %v", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{Detail: fmt.Sprintf("sendgrid: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Succeeded: true, Detail: fmt.Sprintf("sendgrid: sent (status=%d)", resp.StatusCode)}
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return Result{Detail: fmt.Sprintf("sendgrid: status=%d body=%s", resp.StatusCode, string(respBody))}
}

func toSGAddresses(emails []string) []sgAddress {
	if len(emails) == 0 {
		return nil
	}
	out := make([]sgAddress, 0, len(emails))
	for _, e := range emails {
		if e != "" {
			out = append(out, sgAddress{Email: e})
		}
	}
	return out
}
