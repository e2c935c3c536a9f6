package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/mail"
)

// Notifier delivers lifecycle links to account holders.
type Notifier interface {
	SendVerification(ctx context.Context, account *models.Account, token string) error
	SendPasswordReset(ctx context.Context, account *models.Account, token string, expiresAt time.Time) error
}

// MailNotifierOption customises the MailNotifier.
type MailNotifierOption func(*MailNotifier)

// TokenPlaceholder marks where a link template receives the escaped token. Templates without
// it get the token appended as a "token" query parameter.
const TokenPlaceholder = "{token}"

// WithNotifierLinks sets the page templates that verification and reset links point at.
// Both pages belong to the front end, which submits the token to the API.
func WithNotifierLinks(verifyURL, resetURL string) MailNotifierOption {
	return func(n *MailNotifier) {
		if v := strings.TrimSpace(verifyURL); v != "" {
			n.verifyURL = v
		}
		if v := strings.TrimSpace(resetURL); v != "" {
			n.resetURL = v
		}
	}
}

// WithNotifierProductName overrides the product name used in subjects and bodies.
func WithNotifierProductName(name string) MailNotifierOption {
	return func(n *MailNotifier) {
		if strings.TrimSpace(name) != "" {
			n.product = strings.TrimSpace(name)
		}
	}
}

// MailNotifier renders plain text messages and hands them to a mail.Mailer.
type MailNotifier struct {
	mailer    mail.Mailer
	verifyURL string
	resetURL  string
	product   string
}

// NewMailNotifier constructs a notifier. A nil mailer is rejected.
func NewMailNotifier(mailer mail.Mailer, opts ...MailNotifierOption) (*MailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("mail notifier: mailer is required")
	}

	notifier := &MailNotifier{
		mailer:    mailer,
		verifyURL: "/verify-email/" + TokenPlaceholder,
		resetURL:  "/reset-password/" + TokenPlaceholder,
		product:   "Accounts",
	}
	for _, opt := range opts {
		opt(notifier)
	}
	for _, tmpl := range []string{notifier.verifyURL, notifier.resetURL} {
		if _, err := url.Parse(strings.ReplaceAll(tmpl, TokenPlaceholder, "x")); err != nil {
			return nil, fmt.Errorf("mail notifier: invalid link template %q: %w", tmpl, err)
		}
	}
	return notifier, nil
}

// SendVerification emails the verification link. Disabled SMTP is not an error.
func (n *MailNotifier) SendVerification(ctx context.Context, account *models.Account, token string) error {
	link := renderLink(n.verifyURL, token)
	body := fmt.Sprintf("Welcome to %s!\n\nPlease confirm your email address by visiting the link below:\n%s\n\nIf you did not create an account, you can ignore this message.\n", n.product, link)
	return n.send(ctx, account.Email, "Confirm your "+n.product+" account", body)
}

// SendPasswordReset emails the reset link together with its expiry.
func (n *MailNotifier) SendPasswordReset(ctx context.Context, account *models.Account, token string, expiresAt time.Time) error {
	link := renderLink(n.resetURL, token)
	body := fmt.Sprintf("A password reset was requested for your %s account.\n\nUse the link below to choose a new password. It expires at %s.\n%s\n\nIf you did not request a reset, you can ignore this message.\n",
		n.product, expiresAt.UTC().Format(time.RFC1123), link)
	return n.send(ctx, account.Email, "Reset your "+n.product+" password", body)
}

func (n *MailNotifier) send(ctx context.Context, to, subject, body string) error {
	err := n.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("mail notifier: send: %w", err)
	}
	return nil
}

func renderLink(tmpl, token string) string {
	if strings.Contains(tmpl, TokenPlaceholder) {
		return strings.ReplaceAll(tmpl, TokenPlaceholder, url.PathEscape(token))
	}

	sep := "?"
	if strings.Contains(tmpl, "?") {
		sep = "&"
	}
	return tmpl + sep + url.Values{"token": {token}}.Encode()
}
