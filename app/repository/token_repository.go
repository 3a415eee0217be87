package repository

import (
	"github.com/aprendia/aprendia/app/models"
	"gorm.io/gorm"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Issue deletes every live token for the same email and purpose, then inserts
// the new one. The transaction keeps concurrent issuance for one email from
// leaving two live tokens behind; the last writer wins.
func (r *tokenRepository) Issue(token *models.AuthToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND purpose = ?", token.Email, token.Purpose).
			Delete(&models.AuthToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

// GetByToken retrieves a token by its secret, scoped to one purpose so a
// verification code can never be resolved by the reset flow or vice versa.
func (r *tokenRepository) GetByToken(token string, purpose string) (*models.AuthToken, error) {
	var row models.AuthToken
	err := r.db.Where("token = ? AND purpose = ?", token, purpose).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Consume deletes the token row by its secret
func (r *tokenRepository) Consume(token string) error {
	return r.db.Where("token = ?", token).Delete(&models.AuthToken{}).Error
}

// CountByEmail returns the number of live tokens for an email and purpose
func (r *tokenRepository) CountByEmail(email string, purpose string) (int64, error) {
	var count int64
	err := r.db.Model(&models.AuthToken{}).
		Where("email = ? AND purpose = ?", email, purpose).
		Count(&count).Error
	return count, err
}
