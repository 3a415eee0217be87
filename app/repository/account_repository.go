package repository

import (
	"github.com/aprendia/aprendia/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// CreateWithProfile inserts the account and its profile in one transaction so
// a failed profile insert never leaves a half-registered account behind.
func (r *accountRepository) CreateWithProfile(account *models.Account, profile *models.StudentProfile) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		profile.AccountID = account.ID
		return tx.Create(profile).Error
	})
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail retrieves an account by its email address. The email column uses
// a binary collation, so the match is case-sensitive as stored.
func (r *accountRepository) GetByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Update updates an existing account in the database
func (r *accountRepository) Update(account *models.Account) error {
	return r.db.Save(account).Error
}

// UpdatePasswordWhereActive replaces the password hash only when the account
// is active. Zero affected rows means the account is missing or inactive.
func (r *accountRepository) UpdatePasswordWhereActive(email string, hash string) (int64, error) {
	res := r.db.Model(&models.Account{}).
		Where("email = ? AND status = ?", email, models.STATUS_ACTIVE).
		Update("password_hash", hash)
	return res.RowsAffected, res.Error
}

// DeleteCascade removes the profile, the OAuth links and finally the account
// itself in one transaction. Deletes are unscoped so the email becomes free
// for re-registration immediately.
func (r *accountRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("account_id = ?", id).Delete(&models.StudentProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("account_id = ?", id).Delete(&models.OAuthLink{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Account{}, id).Error
	})
}

// Count returns the total number of accounts
func (r *accountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Count(&count).Error
	return count, err
}
