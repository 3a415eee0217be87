package repository

import (
	"github.com/aprendia/aprendia/app/models"
	"gorm.io/gorm"
)

// AccountRepository defines the persistence operations on accounts
type AccountRepository interface {
	Create(account *models.Account) error
	// CreateWithProfile inserts the account and its profile in one transaction.
	CreateWithProfile(account *models.Account, profile *models.StudentProfile) error
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	Update(account *models.Account) error
	// UpdatePasswordWhereActive replaces the password hash for the active
	// account with the given email and reports how many rows changed.
	UpdatePasswordWhereActive(email string, hash string) (int64, error)
	// DeleteCascade hard-deletes the account together with its profile and
	// OAuth links in one transaction.
	DeleteCascade(id uint) error
	Count() (int64, error)
}

// ProfileRepository defines the persistence operations on student profiles
type ProfileRepository interface {
	Create(profile *models.StudentProfile) error
	GetByAccountID(accountID uint) (*models.StudentProfile, error)
	Update(profile *models.StudentProfile) error
}

// TokenRepository defines the persistence operations on the auth token ledger
type TokenRepository interface {
	// Issue supersedes any previous token for the same email and purpose and
	// inserts the new one, atomically.
	Issue(token *models.AuthToken) error
	GetByToken(token string, purpose string) (*models.AuthToken, error)
	// Consume deletes a token row; used both on success and on expiry cleanup.
	Consume(token string) error
	CountByEmail(email string, purpose string) (int64, error)
}

// OAuthLinkRepository defines the persistence operations on provider links
type OAuthLinkRepository interface {
	// Link inserts the link; an existing (provider, provider account id) pair
	// makes the insert a no-op.
	Link(link *models.OAuthLink) error
	// Upsert inserts the link or refreshes the token fields of an existing
	// (provider, provider account id) pair.
	Upsert(link *models.OAuthLink) error
	GetByProviderAccount(provider string, providerAccountID string) (*models.OAuthLink, error)
	CountByAccountID(accountID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Account   AccountRepository
	Profile   ProfileRepository
	Token     TokenRepository
	OAuthLink OAuthLinkRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:   NewAccountRepository(db),
		Profile:   NewProfileRepository(db),
		Token:     NewTokenRepository(db),
		OAuthLink: NewOAuthLinkRepository(db),
	}
}
