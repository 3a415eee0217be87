package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
)

func registerStudent(t *testing.T, env *testEnv, email string) *models.Account {
	t.Helper()

	result, err := env.service.Register(RegisterInput{
		Name:     "Laura",
		Lastname: "Martinez",
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)

	account, err := env.accounts.GetByEmail(email)
	require.NoError(t, err)
	require.Equal(t, result.ID, account.ID)
	return account
}

func TestRegisterCreatesVerifiedAccountWithCompleteProfile(t *testing.T) {
	env := newTestEnv()

	result, err := env.service.Register(RegisterInput{
		Name:      "Laura",
		Lastname:  "Martinez",
		Email:     "laura@example.com",
		Password:  "secret123",
		Specialty: "frontend",
	})
	require.NoError(t, err)
	assert.Equal(t, "laura@example.com", result.Email)
	assert.Equal(t, models.ROLE_STUDENT, result.Role)

	account, err := env.accounts.GetByEmail("laura@example.com")
	require.NoError(t, err)
	assert.True(t, account.IsVerified())
	assert.True(t, account.IsActive())
	assert.True(t, account.HasLocalCredential())
	assert.True(t, account.CheckPassword("secret123"))
	assert.True(t, strings.HasPrefix(account.AvatarURL, "https://www.gravatar.com/avatar/"))

	profile, ok := env.state.profiles[account.ID]
	require.True(t, ok)
	assert.True(t, profile.OnboardingComplete())
	assert.Equal(t, "frontend", profile.Specialty)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")

	_, err := env.service.Register(RegisterInput{
		Name:     "Otra",
		Lastname: "Persona",
		Email:    "laura@example.com",
		Password: "different1",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidatesInput(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.Register(RegisterInput{
		Name:     "Laura",
		Lastname: "Martinez",
		Email:    "not-an-email",
		Password: "123",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "Email")
	assert.Contains(t, appErr.Fields, "Password")
}

func TestResendVerificationKeepsSingleLiveCode(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")

	require.NoError(t, env.service.ResendVerification("laura@example.com"))
	firstCode := env.notifier.lastCode
	require.NoError(t, env.service.ResendVerification("laura@example.com"))

	count, err := env.service.repos.Token.CountByEmail("laura@example.com", models.PURPOSE_VERIFY_EMAIL)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 2, env.notifier.verificationSent)

	// The superseded code is gone, only the latest one resolves.
	_, err = env.service.repos.Token.GetByToken(firstCode, models.PURPOSE_VERIFY_EMAIL)
	assert.Error(t, err)
	_, err = env.service.repos.Token.GetByToken(env.notifier.lastCode, models.PURPOSE_VERIFY_EMAIL)
	assert.NoError(t, err)
}

func TestResendVerificationUnknownEmail(t *testing.T) {
	env := newTestEnv()

	err := env.service.ResendVerification("nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, env.notifier.verificationSent)
}

func TestResendVerificationNotifierFailureKeepsCode(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	env.notifier.failWith = errSMTPDown

	err := env.service.ResendVerification("laura@example.com")
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	// The code was committed before the delivery attempt and survives it.
	count, cerr := env.service.repos.Token.CountByEmail("laura@example.com", models.PURPOSE_VERIFY_EMAIL)
	require.NoError(t, cerr)
	assert.Equal(t, int64(1), count)
}

func TestVerifyEmailConsumesCode(t *testing.T) {
	env := newTestEnv()
	account := registerStudent(t, env, "laura@example.com")
	account.Verification = models.VERIFICATION_UNVERIFIED
	account.VerifiedAt = nil

	require.NoError(t, env.service.ResendVerification("laura@example.com"))
	code := env.notifier.lastCode
	require.Len(t, code, 6)

	require.NoError(t, env.service.VerifyEmail(code))
	assert.True(t, account.IsVerified())

	// Single use: the same code is unknown afterwards.
	err := env.service.VerifyEmail(code)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestVerifyEmailExpiredCodeIsDeleted(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	require.NoError(t, env.service.ResendVerification("laura@example.com"))
	code := env.notifier.lastCode

	env.service.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })

	err := env.service.VerifyEmail(code)
	assert.ErrorIs(t, err, apperr.ErrExpired)

	// Expiry detection removed the row, so a retry sees an unknown code.
	err = env.service.VerifyEmail(code)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestVerifyEmailUnknownCode(t *testing.T) {
	env := newTestEnv()

	err := env.service.VerifyEmail("000000")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestVerifyEmailAccountGoneReadsAsInvalidCode(t *testing.T) {
	env := newTestEnv()
	account := registerStudent(t, env, "laura@example.com")

	require.NoError(t, env.service.ResendVerification("laura@example.com"))
	code := env.notifier.lastCode

	// A live code for an account that was removed in the meantime must not
	// leak the account's fate; the caller just sees an unusable code.
	require.NoError(t, env.service.repos.Account.DeleteCascade(account.ID))

	err := env.service.VerifyEmail(code)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestForgotPasswordUnknownEmailStaysSilent(t *testing.T) {
	env := newTestEnv()

	err := env.service.ForgotPassword("nobody@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 0, env.notifier.resetSent)

	count, err := env.service.repos.Token.CountByEmail("nobody@example.com", models.PURPOSE_RESET_PASSWORD)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestForgotPasswordKeepsSingleLiveToken(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")

	require.NoError(t, env.service.ForgotPassword("laura@example.com"))
	require.NoError(t, env.service.ForgotPassword("laura@example.com"))

	count, err := env.service.repos.Token.CountByEmail("laura@example.com", models.PURPOSE_RESET_PASSWORD)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 2, env.notifier.resetSent)
}

func TestForgotPasswordNotifierFailure(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	env.notifier.failWith = errSMTPDown

	err := env.service.ForgotPassword("laura@example.com")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestResetPasswordReplacesHashAndConsumesToken(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	require.NoError(t, env.service.ForgotPassword("laura@example.com"))
	token := env.notifier.lastResetToken
	require.Len(t, token, 64)

	require.NoError(t, env.service.ResetPassword(token, "brandnew1"))

	account, err := env.accounts.GetByEmail("laura@example.com")
	require.NoError(t, err)
	assert.True(t, account.CheckPassword("brandnew1"))
	assert.False(t, account.CheckPassword("secret123"))

	// Single use: replaying the token fails.
	err = env.service.ResetPassword(token, "anotherone1")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestResetPasswordInactiveAccount(t *testing.T) {
	env := newTestEnv()
	account := registerStudent(t, env, "laura@example.com")
	require.NoError(t, env.service.ForgotPassword("laura@example.com"))
	token := env.notifier.lastResetToken

	account.Status = models.STATUS_INACTIVE

	err := env.service.ResetPassword(token, "brandnew1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The token is not consumed by the failed attempt.
	count, cerr := env.service.repos.Token.CountByEmail("laura@example.com", models.PURPOSE_RESET_PASSWORD)
	require.NoError(t, cerr)
	assert.Equal(t, int64(1), count)
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	env := newTestEnv()

	err := env.service.ResetPassword("whatever", "123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	require.NoError(t, env.service.ForgotPassword("laura@example.com"))
	token := env.notifier.lastResetToken

	env.service.WithClock(func() time.Time { return time.Now().Add(61 * time.Minute) })

	err := env.service.ResetPassword(token, "brandnew1")
	assert.ErrorIs(t, err, apperr.ErrExpired)
}

func TestValidateResetTokenDoesNotConsume(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")
	require.NoError(t, env.service.ForgotPassword("laura@example.com"))
	token := env.notifier.lastResetToken

	require.NoError(t, env.service.ValidateResetToken(token))
	require.NoError(t, env.service.ValidateResetToken(token))

	// Still usable for the actual reset.
	assert.NoError(t, env.service.ResetPassword(token, "brandnew1"))
}

func TestValidateResetTokenUnknown(t *testing.T) {
	env := newTestEnv()

	err := env.service.ValidateResetToken("deadbeef")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestAuthenticateSuccessStampsLastLogin(t *testing.T) {
	env := newTestEnv()
	registerStudent(t, env, "laura@example.com")

	account, err := env.service.Authenticate("laura@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, account.LastLoginAt)
}

func TestAuthenticateUniformFailureMessage(t *testing.T) {
	env := newTestEnv()
	account := registerStudent(t, env, "laura@example.com")

	_, unknownErr := env.service.Authenticate("nobody@example.com", "secret123")
	_, wrongErr := env.service.Authenticate("laura@example.com", "wrongpass")
	require.Error(t, unknownErr)
	require.Error(t, wrongErr)

	// Unknown email and wrong password are indistinguishable to the caller.
	assert.Equal(t, apperr.Message(unknownErr), apperr.Message(wrongErr))
	assert.ErrorIs(t, unknownErr, apperr.ErrUnauth)
	assert.ErrorIs(t, wrongErr, apperr.ErrUnauth)

	account.Status = models.STATUS_INACTIVE
	_, inactiveErr := env.service.Authenticate("laura@example.com", "secret123")
	assert.Equal(t, apperr.Message(unknownErr), apperr.Message(inactiveErr))
}

func TestAuthenticateOAuthOnlyAccountHasNoLocalCredential(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.CompleteOAuthRegistration(CompleteOAuthInput{
		Email:             "oauth@example.com",
		Name:              "Pablo",
		Lastname:          "Ruiz",
		Provider:          "google",
		ProviderAccountID: "g-123",
	})
	require.NoError(t, err)

	_, err = env.service.Authenticate("oauth@example.com", "")
	assert.ErrorIs(t, err, apperr.ErrUnauth)
}
