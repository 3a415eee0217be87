package repository

import (
	"github.com/aprendia/aprendia/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// oauthLinkRepository implements the OAuthLinkRepository interface
type oauthLinkRepository struct {
	db *gorm.DB
}

// NewOAuthLinkRepository creates a new OAuth link repository instance
func NewOAuthLinkRepository(db *gorm.DB) OAuthLinkRepository {
	return &oauthLinkRepository{db: db}
}

// Link inserts the link and silently skips when the (provider, provider
// account id) pair already exists. Losing a token refresh is preferred over
// re-pointing an existing link at another account.
func (r *oauthLinkRepository) Link(link *models.OAuthLink) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_account_id"}},
		DoNothing: true,
	}).Create(link).Error
}

// Upsert inserts the link or refreshes the token fields of the existing pair
func (r *oauthLinkRepository) Upsert(link *models.OAuthLink) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "scope", "expires_at"}),
	}).Create(link).Error
}

// GetByProviderAccount retrieves a link by its provider pair
func (r *oauthLinkRepository) GetByProviderAccount(provider string, providerAccountID string) (*models.OAuthLink, error) {
	var link models.OAuthLink
	err := r.db.Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// CountByAccountID returns the number of links owned by an account
func (r *oauthLinkRepository) CountByAccountID(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OAuthLink{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
