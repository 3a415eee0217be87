package repository

import (
	"github.com/aprendia/aprendia/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates a new student profile in the database
func (r *profileRepository) Create(profile *models.StudentProfile) error {
	return r.db.Create(profile).Error
}

// GetByAccountID retrieves the profile owned by the given account
func (r *profileRepository) GetByAccountID(accountID uint) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	err := r.db.Where("account_id = ?", accountID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update updates an existing profile in the database
func (r *profileRepository) Update(profile *models.StudentProfile) error {
	return r.db.Save(profile).Error
}
