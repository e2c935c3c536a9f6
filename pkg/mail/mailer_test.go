package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
	})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected disabled configuration to succeed: %v", err)
	}

	if mailer == nil {
		t.Fatal("expected mailer to be returned")
	}
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	if err != ErrSMTPDisabled {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
}

func TestFormatMessage(t *testing.T) {
	content := formatMessage(envelope{
		from:      "from@example.com",
		to:        []string{"to@example.com"},
		subject:   "Subject\r\nBreak",
		date:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		messageID: "<id@example.com>",
	}, "Body")
	if !strings.Contains(content, "From: from@example.com") {
		t.Fatalf("expected from header, got %q", content)
	}
	if !strings.Contains(content, "Subject: Subject  Break") {
		t.Fatalf("expected sanitised subject, got %q", content)
	}
	if !strings.Contains(content, "Date: Wed, 01 May 2024 09:00:00 +0000") {
		t.Fatalf("expected date header, got %q", content)
	}
	if !strings.Contains(content, "Message-ID: <id@example.com>") {
		t.Fatalf("expected message id header, got %q", content)
	}
	if !strings.HasSuffix(content, "Body") {
		t.Fatalf("expected body suffix, got %q", content)
	}
}

func TestNewMessageIDUsesSenderDomain(t *testing.T) {
	id := newMessageID("Accounts <no-reply@accounts.example.com>")
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@accounts.example.com>") {
		t.Fatalf("unexpected message id %q", id)
	}
	if fallback := newMessageID("not an address"); !strings.HasSuffix(fallback, "@localhost>") {
		t.Fatalf("expected localhost fallback, got %q", fallback)
	}
}

func TestSMTPMailerSendDeliversMessage(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := &smtpMailer{
		cfg: SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "no-reply@example.com"},
		dialFn: func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
			server, peer := net.Pipe()
			_ = peer.Close()
			return server, client, nil
		},
		authFn: func(smtpClient, SMTPSettings) error { return nil },
		now:    func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
	}

	err := mailer.Send(context.Background(), Message{
		To:      []string{"ada@example.com", "ada@example.com"},
		Subject: "Verify your email",
		Body:    "link",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if client.from != "no-reply@example.com" {
		t.Fatalf("unexpected sender %q", client.from)
	}
	if len(client.rcpts) != 1 || client.rcpts[0] != "ada@example.com" {
		t.Fatalf("unexpected recipients %v", client.rcpts)
	}
	if !strings.Contains(client.data.String(), "Subject: Verify your email") || !client.quit {
		t.Fatalf("unexpected transcript %q", client.data.String())
	}
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
		UseTLS:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	sm, ok := mailer.(*smtpMailer)
	if !ok {
		t.Fatalf("expected smtpMailer type")
	}

	if sm.cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to be assigned")
	}

	if sm.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout to be 10s, got %v", sm.cfg.Timeout)
	}
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "No recipients",
		Body:    "Body",
	})
	if err == nil || !strings.Contains(err.Error(), "at least one recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesFromAddress(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("expected invalid from error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesRecipientAddresses(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To: []string{"user@example.com", "bad-address"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient address") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"}
	result := uniqueAddresses(addresses)
	if len(result) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(result), result)
	}
	if result[0] != "alice@example.com" || result[1] != "bob@example.com" {
		t.Fatalf("unexpected result order/content: %v", result)
	}
}

type fakeSMTPClient struct {
	from  string
	rcpts []string
	data  bytes.Buffer
	quit  bool
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (f *fakeSMTPClient) Mail(from string) error {
	f.from = from
	return nil
}

func (f *fakeSMTPClient) Rcpt(to string) error {
	f.rcpts = append(f.rcpts, to)
	return nil
}

func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{Writer: &f.data}, nil
}

func (f *fakeSMTPClient) Quit() error {
	f.quit = true
	return nil
}

func (f *fakeSMTPClient) Close() error                    { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error            { return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }
