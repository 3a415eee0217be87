package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_STUDENT = "student"
	ROLE_ADMIN   = "admin"
	ROLE_COMPANY = "company"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"

	VERIFICATION_UNVERIFIED = "unverified"
	VERIFICATION_VERIFIED   = "verified"
)

// ErrAlreadyVerified is returned when a verified account is asked to verify again.
var ErrAlreadyVerified = errors.New("account email is already verified")

// Account is the authentication identity record. The password hash is nil for
// accounts that only ever signed in through an OAuth provider.
type Account struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;type:varchar(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin" json:"email" validate:"required,email,min=5,max=255"`
	PasswordHash *string        `gorm:"type:varchar(255)" json:"-"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role" validate:"oneof=student admin company"`
	Status       string         `gorm:"type:varchar(20);default:'active'" json:"status" validate:"oneof=active inactive"`
	Verification string         `gorm:"type:varchar(20);default:'unverified'" json:"-" validate:"oneof=unverified verified"`
	VerifiedAt   *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	AvatarURL    string         `gorm:"type:varchar(512);default:''" json:"avatar_url"`
	LastLoginAt  *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Profile    *StudentProfile `gorm:"foreignKey:AccountID" json:"-"`
	OAuthLinks []OAuthLink     `gorm:"foreignKey:AccountID" json:"-"`
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// NewAccount builds a local-registration account with a hashed password.
func NewAccount(email string, password string) (*Account, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	a := &Account{
		Email:        email,
		PasswordHash: &pw,
		Role:         ROLE_STUDENT,
		Status:       STATUS_ACTIVE,
		Verification: VERIFICATION_UNVERIFIED,
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies the given password against the account's stored hash.
// Accounts without a local credential (OAuth-only) never match.
func (a *Account) CheckPassword(password string) bool {
	if a.PasswordHash == nil {
		return false
	}
	return CheckPasswordHash(password, *a.PasswordHash)
}

// SetPassword hashes and sets a new password for the account.
func (a *Account) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = &hash
	return nil
}

// IsActive reports whether the account status is active.
func (a *Account) IsActive() bool {
	return a.Status == STATUS_ACTIVE
}

// IsVerified reports whether the account email has been verified.
func (a *Account) IsVerified() bool {
	return a.Verification == VERIFICATION_VERIFIED
}

// MarkVerified transitions the account from unverified to verified.
// The transition is one-way; verifying twice is rejected.
func (a *Account) MarkVerified(now time.Time) error {
	if a.Verification == VERIFICATION_VERIFIED {
		return ErrAlreadyVerified
	}
	a.Verification = VERIFICATION_VERIFIED
	a.VerifiedAt = &now
	return nil
}

// HasLocalCredential reports whether the account can authenticate with a password.
func (a *Account) HasLocalCredential() bool {
	return a.PasswordHash != nil
}
