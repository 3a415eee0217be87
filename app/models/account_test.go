package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountHashesPassword(t *testing.T) {
	account, err := NewAccount("laura@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ROLE_STUDENT, account.Role)
	assert.Equal(t, STATUS_ACTIVE, account.Status)
	assert.Equal(t, VERIFICATION_UNVERIFIED, account.Verification)
	require.NotNil(t, account.PasswordHash)
	assert.NotEqual(t, "secret123", *account.PasswordHash)
	assert.True(t, account.CheckPassword("secret123"))
	assert.False(t, account.CheckPassword("wrong"))
}

func TestNewAccountRejectsInvalidEmail(t *testing.T) {
	_, err := NewAccount("not-an-email", "secret123")
	assert.Error(t, err)
}

func TestCheckPasswordWithoutLocalCredential(t *testing.T) {
	account := &Account{Email: "oauth@example.com"}

	assert.False(t, account.HasLocalCredential())
	assert.False(t, account.CheckPassword(""))
	assert.False(t, account.CheckPassword("anything"))
}

func TestSetPassword(t *testing.T) {
	account := &Account{Email: "oauth@example.com"}
	require.NoError(t, account.SetPassword("newsecret"))

	assert.True(t, account.HasLocalCredential())
	assert.True(t, account.CheckPassword("newsecret"))
}

func TestMarkVerifiedIsOneWay(t *testing.T) {
	account := &Account{Verification: VERIFICATION_UNVERIFIED}
	now := time.Now()

	require.NoError(t, account.MarkVerified(now))
	assert.True(t, account.IsVerified())
	require.NotNil(t, account.VerifiedAt)
	assert.Equal(t, now, *account.VerifiedAt)

	err := account.MarkVerified(now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	assert.Equal(t, now, *account.VerifiedAt)
}
