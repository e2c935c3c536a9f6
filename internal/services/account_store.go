package services

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/accounts/internal/models"
)

var (
	// ErrDuplicateAccount is returned by AccountStore.Insert when the email (or a token) is already taken.
	ErrDuplicateAccount = errors.New("account store: duplicate account")
	// ErrAccountNotFound is returned by the AccountStore finders when no record matches.
	ErrAccountNotFound = errors.New("account store: account not found")

	errEmptyMatch   = errors.New("account store: conditional update requires a match predicate")
	errEmptyChanges = errors.New("account store: conditional update requires at least one change")
)

// AccountMatch is the predicate of a conditional update. Every non-empty field must hold at the
// moment the update is applied.
type AccountMatch struct {
	ID                string
	VerificationToken string
	ResetToken        string
	// ResetValidAt additionally requires reset_token_expires_at to be strictly after it.
	ResetValidAt *time.Time
}

func (m AccountMatch) empty() bool {
	return m.ID == "" && m.VerificationToken == "" && m.ResetToken == ""
}

func (m AccountMatch) matches(account *models.Account) bool {
	if m.ID != "" && account.ID != m.ID {
		return false
	}
	if m.VerificationToken != "" && (account.VerificationToken == nil || *account.VerificationToken != m.VerificationToken) {
		return false
	}
	if m.ResetToken != "" && (account.ResetToken == nil || *account.ResetToken != m.ResetToken) {
		return false
	}
	if m.ResetValidAt != nil && (account.ResetTokenExpiresAt == nil || !account.ResetTokenExpiresAt.After(*m.ResetValidAt)) {
		return false
	}
	return true
}

// AccountChanges lists the columns written by a conditional update. Nil pointers leave a column untouched.
type AccountChanges struct {
	PasswordHash           *string
	Active                 *bool
	ClearVerificationToken bool
	ResetToken             *string
	ResetTokenExpiresAt    *time.Time
	// ClearResetToken nulls both the reset token and its expiry.
	ClearResetToken bool
}

func (c AccountChanges) columns() map[string]any {
	updates := make(map[string]any, 5)
	if c.PasswordHash != nil {
		updates["password_hash"] = *c.PasswordHash
	}
	if c.Active != nil {
		updates["active"] = *c.Active
	}
	if c.ClearVerificationToken {
		updates["verification_token"] = nil
	}
	if c.ClearResetToken {
		updates["reset_token"] = nil
		updates["reset_token_expires_at"] = nil
	} else {
		if c.ResetToken != nil {
			updates["reset_token"] = *c.ResetToken
		}
		if c.ResetTokenExpiresAt != nil {
			updates["reset_token_expires_at"] = *c.ResetTokenExpiresAt
		}
	}
	return updates
}

func (c AccountChanges) apply(account *models.Account) {
	if c.PasswordHash != nil {
		account.PasswordHash = *c.PasswordHash
	}
	if c.Active != nil {
		account.Active = *c.Active
	}
	if c.ClearVerificationToken {
		account.VerificationToken = nil
	}
	if c.ClearResetToken {
		account.ResetToken = nil
		account.ResetTokenExpiresAt = nil
		return
	}
	if c.ResetToken != nil {
		token := *c.ResetToken
		account.ResetToken = &token
	}
	if c.ResetTokenExpiresAt != nil {
		expires := *c.ResetTokenExpiresAt
		account.ResetTokenExpiresAt = &expires
	}
}

// AccountStore persists accounts. ConditionalUpdate must evaluate the match and apply the changes
// as one atomic step so that concurrent callers racing on the same token see exactly one winner.
type AccountStore interface {
	Insert(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	FindByResetToken(ctx context.Context, token string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	ConditionalUpdate(ctx context.Context, match AccountMatch, changes AccountChanges) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
