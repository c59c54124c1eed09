package dispatch

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendTransport delivers through the Resend transactional email API.
type ResendTransport struct {
	client *resend.Client
	apiKey string
}

func NewResendTransport(apiKey string) *ResendTransport {
	t := &ResendTransport{apiKey: apiKey}
	if apiKey != "" {
		t.client = resend.NewClient(apiKey)
	}
	return t
}

func (t *ResendTransport) Name() string { return "resend" }
func (t *ResendTransport) Kind() string { return "http" }

func (t *ResendTransport) Configured() bool {
	return t.apiKey != ""
}

func (t *ResendTransport) Send(ctx context.Context, req Request) Result {
	if t.client == nil {
		return Result{Detail: "resend: api key not set"}
	}

	params := &resend.SendEmailRequest{
		From:    req.Identity.FromHeader(),
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTMLBody,
		Text:    req.PlainBody,
	}
	if len(req.Cc) > 0 {
		params.Cc = req.Cc
	}

	sent, err := t.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return Result{Detail: fmt.Sprintf("resend: %v", err)}
	}
	return Result{Succeeded: true, Detail: fmt.Sprintf("resend: sent (id=%s)", sent.Id)}
}
