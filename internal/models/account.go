package models

import "time"

// AccountState describes where an account sits in the verification lifecycle.
type AccountState string

const (
	AccountStatePendingVerification AccountState = "pending_verification"
	AccountStateActive              AccountState = "active"
)

// DefaultAccountRole is assigned when registration does not specify a role.
const DefaultAccountRole = "user"

// Account is the persisted identity record for a registered user.
type Account struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	Role         string `gorm:"not null;default:user" json:"role"`
	Active       bool   `gorm:"not null;default:false" json:"active"`

	VerificationToken   *string    `gorm:"uniqueIndex" json:"-"`
	ResetToken          *string    `gorm:"uniqueIndex" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
}

// State reports the verification state derived from the active flag.
func (a *Account) State() AccountState {
	if a.Active {
		return AccountStateActive
	}
	return AccountStatePendingVerification
}

// ResetPending reports whether a password reset token is outstanding and unexpired at now.
func (a *Account) ResetPending(now time.Time) bool {
	if a.ResetToken == nil || a.ResetTokenExpiresAt == nil {
		return false
	}
	return a.ResetTokenExpiresAt.After(now)
}
