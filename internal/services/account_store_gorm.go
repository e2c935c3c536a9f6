package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/models"
)

// GormAccountStore implements AccountStore on top of a relational database.
type GormAccountStore struct {
	db *gorm.DB
}

// NewGormAccountStore constructs a store using the provided database handle.
func NewGormAccountStore(db *gorm.DB) (*GormAccountStore, error) {
	if db == nil {
		return nil, errors.New("account store: db is required")
	}
	return &GormAccountStore{db: db}, nil
}

// Insert creates the account; unique index violations surface as ErrDuplicateAccount.
func (s *GormAccountStore) Insert(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("account store: account is required")
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("account store: insert: %w", err)
	}
	return nil
}

func (s *GormAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *GormAccountStore) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return s.findOne(ctx, "verification_token = ?", token)
}

func (s *GormAccountStore) FindByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return s.findOne(ctx, "reset_token = ?", token)
}

func (s *GormAccountStore) findOne(ctx context.Context, clause string, value string) (*models.Account, error) {
	if value == "" {
		return nil, ErrAccountNotFound
	}

	var account models.Account
	err := s.db.WithContext(ensureContext(ctx)).Where(clause, value).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account store: query: %w", err)
	}
	return &account, nil
}

// List returns every account ordered by creation time.
func (s *GormAccountStore) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ensureContext(ctx)).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("account store: list: %w", err)
	}
	return accounts, nil
}

// ConditionalUpdate issues a single UPDATE ... WHERE statement and reports the affected row count.
// The database evaluates the predicate and the write together, so a token can only be consumed once.
func (s *GormAccountStore) ConditionalUpdate(ctx context.Context, match AccountMatch, changes AccountChanges) (int64, error) {
	if match.empty() {
		return 0, errEmptyMatch
	}
	updates := changes.columns()
	if len(updates) == 0 {
		return 0, errEmptyChanges
	}

	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Account{})
	if match.ID != "" {
		query = query.Where("id = ?", match.ID)
	}
	if match.VerificationToken != "" {
		query = query.Where("verification_token = ?", match.VerificationToken)
	}
	if match.ResetToken != "" {
		query = query.Where("reset_token = ?", match.ResetToken)
	}
	if match.ResetValidAt != nil {
		query = query.Where("reset_token_expires_at > ?", *match.ResetValidAt)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return 0, ErrDuplicateAccount
		}
		return 0, fmt.Errorf("account store: conditional update: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearExpiredResetTokens nulls reset tokens whose expiry is at or before now.
func (s *GormAccountStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Account{}).
		Where("reset_token IS NOT NULL AND reset_token_expires_at <= ?", now).
		Updates(map[string]any{
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("account store: clear expired reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
