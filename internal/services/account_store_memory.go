package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charlesng35/accounts/internal/models"
)

// MemoryAccountStore is a process-local AccountStore. A single mutex guards every read and
// conditional update, which gives the same compare-and-swap guarantee as the SQL store.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	now      func() time.Time
}

// NewMemoryAccountStore returns an empty in-memory store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*models.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryAccountStore) Insert(ctx context.Context, account *models.Account) error {
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email ||
			sameToken(existing.VerificationToken, account.VerificationToken) ||
			sameToken(existing.ResetToken, account.ResetToken) {
			return ErrDuplicateAccount
		}
	}

	if err := account.BeforeCreate(nil); err != nil {
		return err
	}
	if _, exists := s.accounts[account.ID]; exists {
		return ErrDuplicateAccount
	}

	now := s.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *MemoryAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.find(ctx, func(a *models.Account) bool { return a.ID == id })
}

func (s *MemoryAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.find(ctx, func(a *models.Account) bool { return a.Email == email })
}

func (s *MemoryAccountStore) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return s.find(ctx, func(a *models.Account) bool { return sameToken(a.VerificationToken, &token) })
}

func (s *MemoryAccountStore) FindByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return s.find(ctx, func(a *models.Account) bool { return sameToken(a.ResetToken, &token) })
}

func (s *MemoryAccountStore) find(ctx context.Context, pred func(*models.Account) bool) (*models.Account, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if pred(account) {
			return cloneAccount(account), nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryAccountStore) List(ctx context.Context) ([]models.Account, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, *cloneAccount(account))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryAccountStore) ConditionalUpdate(ctx context.Context, match AccountMatch, changes AccountChanges) (int64, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return 0, err
	}
	if match.empty() {
		return 0, errEmptyMatch
	}
	if len(changes.columns()) == 0 {
		return 0, errEmptyChanges
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if changes.ResetToken != nil {
		for _, other := range s.accounts {
			if !match.matches(other) && sameToken(other.ResetToken, changes.ResetToken) {
				return 0, ErrDuplicateAccount
			}
		}
	}

	var affected int64
	now := s.now()
	for _, account := range s.accounts {
		if !match.matches(account) {
			continue
		}
		changes.apply(account)
		account.UpdatedAt = now
		affected++
	}
	return affected, nil
}

func (s *MemoryAccountStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for _, account := range s.accounts {
		if account.ResetToken != nil && account.ResetTokenExpiresAt != nil && !account.ResetTokenExpiresAt.After(now) {
			account.ResetToken = nil
			account.ResetTokenExpiresAt = nil
			cleared++
		}
	}
	return cleared, nil
}

func sameToken(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func cloneAccount(in *models.Account) *models.Account {
	out := *in
	if in.VerificationToken != nil {
		out.VerificationToken = stringPtr(*in.VerificationToken)
	}
	if in.ResetToken != nil {
		out.ResetToken = stringPtr(*in.ResetToken)
	}
	if in.ResetTokenExpiresAt != nil {
		expires := *in.ResetTokenExpiresAt
		out.ResetTokenExpiresAt = &expires
	}
	return &out
}
