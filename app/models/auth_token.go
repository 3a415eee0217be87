package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	PURPOSE_VERIFY_EMAIL   = "verify_email"
	PURPOSE_RESET_PASSWORD = "reset_password"

	VerificationCodeTTL = 15 * time.Minute
	ResetTokenTTL       = 1 * time.Hour
)

// AuthToken is a single-use, expiring secret issued for email verification or
// password reset. The purpose column keeps the two flows from ever accepting
// each other's secrets, regardless of generation entropy.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"index;type:varchar(255)" json:"email"`
	Token     string    `gorm:"uniqueIndex;type:varchar(64)" json:"-"`
	Purpose   string    `gorm:"index;type:varchar(32)" json:"purpose"`
	ExpiresAt time.Time `gorm:"type:timestamp" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewVerificationToken issues a 6-digit email verification code valid for 15 minutes.
func NewVerificationToken(email string) (*AuthToken, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return nil, err
	}

	return &AuthToken{
		Email:     email,
		Token:     fmt.Sprintf("%06d", n.Int64()),
		Purpose:   PURPOSE_VERIFY_EMAIL,
		ExpiresAt: time.Now().Add(VerificationCodeTTL),
	}, nil
}

// NewResetToken issues a 32-byte hex password reset token valid for 1 hour.
func NewResetToken(email string) (*AuthToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return &AuthToken{
		Email:     email,
		Token:     hex.EncodeToString(b),
		Purpose:   PURPOSE_RESET_PASSWORD,
		ExpiresAt: time.Now().Add(ResetTokenTTL),
	}, nil
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *AuthToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
