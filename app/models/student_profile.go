package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ONBOARDING_PENDING  = "pending"
	ONBOARDING_COMPLETE = "complete"
)

// ErrOnboardingDone is returned when a completed profile is asked to complete again.
var ErrOnboardingDone = errors.New("onboarding is already complete")

// StudentProfile holds the role-specific profile data owned 1:1 by an Account.
// The onboarding state gates the post-login redirect decision.
type StudentProfile struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AccountID  uint       `gorm:"uniqueIndex" json:"account_id"`
	Name       string     `gorm:"type:varchar(100)" json:"name" validate:"required,min=1,max=100"`
	Lastname   string     `gorm:"type:varchar(100);default:''" json:"lastname" validate:"max=100"`
	Phone      string     `gorm:"type:varchar(32);default:''" json:"phone" validate:"max=32"`
	Birthdate  *time.Time `gorm:"type:date;default:null" json:"birthdate"`
	Specialty  string     `gorm:"type:varchar(100);default:''" json:"specialty" validate:"max=100"`
	Onboarding string     `gorm:"type:varchar(20);default:'pending'" json:"onboarding" validate:"oneof=pending complete"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *StudentProfile) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// OnboardingComplete reports whether the profile finished onboarding.
func (p *StudentProfile) OnboardingComplete() bool {
	return p.Onboarding == ONBOARDING_COMPLETE
}

// CompleteOnboarding transitions the profile from pending to complete.
// The transition is one-way; completing twice is rejected.
func (p *StudentProfile) CompleteOnboarding() error {
	if p.Onboarding == ONBOARDING_COMPLETE {
		return ErrOnboardingDone
	}
	p.Onboarding = ONBOARDING_COMPLETE
	return nil
}
