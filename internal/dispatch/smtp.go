package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// SMTPTransport submits messages over a fresh SMTP session per call:
// dial, STARTTLS, authenticate as the request's sender identity, submit,
// quit. Nothing is reused across calls.
type SMTPTransport struct {
	host    string
	port    int
	timeout time.Duration
}

func NewSMTPTransport(host string, port int, timeout time.Duration) *SMTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPTransport{host: host, port: port, timeout: timeout}
}

func (t *SMTPTransport) Name() string { return "smtp" }
func (t *SMTPTransport) Kind() string { return "smtp" }

func (t *SMTPTransport) Configured() bool {
	return t.host != "" && t.port != 0
}

func (t *SMTPTransport) Send(ctx context.Context, req Request) Result {
	if req.Identity.FromEmail == "" || req.Identity.SMTPPassword == "" {
		return Result{Detail: "smtp: sender identity has no credentials"}
	}

	addr := fmt.Sprintf("%s:%d", t.host, t.port)

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return Result{Detail: fmt.Sprintf("smtp: dial %s: %v", addr, err)}
	}
	defer conn.Close()

	// A hung provider must not stall the chain past the per-attempt budget.
	if err := conn.SetDeadline(deadline); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: set deadline: %v", err)}
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return Result{Detail: fmt.Sprintf("smtp: handshake: %v", err)}
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: starttls: %v", err)}
	}

	auth := smtp.PlainAuth("", req.Identity.FromEmail, NormalizeAppPassword(req.Identity.SMTPPassword), t.host)
	if err := client.Auth(auth); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: auth as %s: %v", req.Identity.FromEmail, err)}
	}

	if err := client.Mail(req.Identity.FromEmail); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: mail from: %v", err)}
	}
	for _, rcpt := range req.Recipients() {
		if err := client.Rcpt(rcpt); err != nil {
			return Result{Detail: fmt.Sprintf("smtp: rcpt %s: %v", rcpt, err)}
		}
	}

	w, err := client.Data()
	if err != nil {
		return Result{Detail: fmt.Sprintf("smtp: data: %v", err)}
	}
	if _, err := w.Write(buildMIMEMessage(req)); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: write body: %v", err)}
	}
	if err := w.Close(); err != nil {
		return Result{Detail: fmt.Sprintf("smtp: close body: %v", err)}
	}

	if err := client.Quit(); err != nil {
		// The message was accepted; a noisy QUIT is not a delivery failure.
		return Result{Succeeded: true, Detail: fmt.Sprintf("smtp: sent via %s (quit: %v)", addr, err)}
	}
	return Result{Succeeded: true, Detail: "smtp: sent via " + addr}
}

// buildMIMEMessage renders the request as a multipart/alternative message
// with plain and HTML bodies.
func buildMIMEMessage(req Request) []byte {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", req.Identity.FromHeader())
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(req.To, ", "))
	if len(req.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(req.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", req.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	plain, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	fmt.Fprint(plain, req.PlainBody)

	html, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	fmt.Fprint(html, req.HTMLBody)

	mw.Close()
	return buf.Bytes()
}
