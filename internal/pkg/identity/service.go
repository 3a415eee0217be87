// Package identity implements the account lifecycle: registration, email
// verification, password reset, OAuth linking and the post-login routing
// decision. All state lives in the injected repositories; the engine itself
// is stateless and safe for concurrent use.
package identity

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/app/repository"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
	"github.com/aprendia/aprendia/internal/pkg/mail"
	"github.com/aprendia/aprendia/internal/pkg/utils"
)

// Service is the identity lifecycle engine
type Service struct {
	repos    *repository.Repositories
	notifier mail.Notifier
	now      func() time.Time
	validate *validator.Validate
}

// NewService creates the engine over the given repositories and notifier
func NewService(repos *repository.Repositories, notifier mail.Notifier) *Service {
	return &Service{
		repos:    repos,
		notifier: notifier,
		now:      time.Now,
		validate: validator.New(),
	}
}

// WithClock overrides the engine clock, used by expiry tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput carries the local registration form fields
type RegisterInput struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	Lastname  string     `json:"lastname" validate:"required,min=1,max=100"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=6"`
	Phone     string     `json:"phone" validate:"max=32"`
	Birthdate *time.Time `json:"birthdate"`
	Specialty string     `json:"specialty" validate:"max=100"`
}

// RegisterResult identifies the freshly created account
type RegisterResult struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates an account plus its student profile. Registration collects
// every onboarding field synchronously, so the profile is complete right away
// and this deployment also marks the email verified without a code round-trip.
func (s *Service) Register(in RegisterInput) (*RegisterResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.repos.Account.GetByEmail(in.Email); err == nil {
		return nil, apperr.New(apperr.ErrConflict, "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not check existing account")
	}

	account, err := models.NewAccount(in.Email, in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not create account")
	}
	if err := account.MarkVerified(s.now()); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not verify account")
	}
	account.AvatarURL = utils.GetGravatarURL(account.Email, 200)

	profile := &models.StudentProfile{
		Name:       in.Name,
		Lastname:   in.Lastname,
		Phone:      in.Phone,
		Birthdate:  in.Birthdate,
		Specialty:  in.Specialty,
		Onboarding: models.ONBOARDING_COMPLETE,
	}

	if err := s.repos.Account.CreateWithProfile(account, profile); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not store account")
	}

	return &RegisterResult{ID: account.ID, Email: account.Email, Role: account.Role}, nil
}

// ResendVerification issues a fresh 6-digit verification code for the email,
// superseding any earlier code, and mails it. A notifier failure is reported
// but does not invalidate the already committed code.
func (s *Service) ResendVerification(email string) error {
	account, err := s.repos.Account.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrNotFound, "no account with this email")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}

	token, err := models.NewVerificationToken(email)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not generate verification code")
	}
	if err := s.repos.Token.Issue(token); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not store verification code")
	}

	if err := s.notifier.SendVerificationCode(email, s.profileName(account.ID), token.Token); err != nil {
		return apperr.Wrap(err, apperr.ErrUpstream, "could not send verification email")
	}
	return nil
}

// VerifyEmail consumes a verification code and marks the account verified.
// An expired code is deleted on detection and reported as expired.
func (s *Service) VerifyEmail(code string) error {
	token, err := s.repos.Token.GetByToken(code, models.PURPOSE_VERIFY_EMAIL)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrInvalid, "invalid verification code")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up verification code")
	}

	if token.Expired(s.now()) {
		if err := s.repos.Token.Consume(token.Token); err != nil {
			return apperr.Wrap(err, apperr.ErrInternal, "could not clean up expired code")
		}
		return apperr.New(apperr.ErrExpired, "verification code expired")
	}

	account, err := s.repos.Account.GetByEmail(token.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The account vanished after the code was issued; to the caller
			// the code is simply no longer valid.
			return apperr.New(apperr.ErrInvalid, "invalid verification code")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}

	// Re-verifying an already verified account is a no-op; the code is still
	// consumed below so it cannot be replayed.
	if err := account.MarkVerified(s.now()); err == nil {
		if err := s.repos.Account.Update(account); err != nil {
			return apperr.Wrap(err, apperr.ErrInternal, "could not update account")
		}
	}

	if err := s.repos.Token.Consume(token.Token); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not consume verification code")
	}
	return nil
}

// ForgotPassword issues a reset token and mails it. When no account matches
// the email it reports success without sending anything, so callers cannot
// probe which addresses are registered.
func (s *Service) ForgotPassword(email string) error {
	account, err := s.repos.Account.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}

	token, err := models.NewResetToken(email)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not generate reset token")
	}
	if err := s.repos.Token.Issue(token); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not store reset token")
	}

	if err := s.notifier.SendPasswordReset(email, s.profileName(account.ID), token.Token); err != nil {
		return apperr.Wrap(err, apperr.ErrUpstream, "could not send reset email")
	}
	return nil
}

// ValidateResetToken checks a reset token without consuming it, so the UI can
// validate before rendering the reset form. Expired tokens are still cleaned
// up on detection.
func (s *Service) ValidateResetToken(tokenStr string) error {
	token, err := s.repos.Token.GetByToken(tokenStr, models.PURPOSE_RESET_PASSWORD)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrInvalid, "invalid reset token")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up reset token")
	}

	if token.Expired(s.now()) {
		if err := s.repos.Token.Consume(token.Token); err != nil {
			return apperr.Wrap(err, apperr.ErrInternal, "could not clean up expired token")
		}
		return apperr.New(apperr.ErrExpired, "reset token expired")
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash of the
// matching active account. Inactive accounts are not eligible.
func (s *Service) ResetPassword(tokenStr string, password string) error {
	if len(password) < 6 {
		return apperr.WithFields(
			apperr.New(apperr.ErrValidation, "password must be at least 6 characters"),
			map[string]any{"password": "min length is 6"},
		)
	}

	token, err := s.repos.Token.GetByToken(tokenStr, models.PURPOSE_RESET_PASSWORD)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrInvalid, "invalid reset token")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up reset token")
	}

	if token.Expired(s.now()) {
		if err := s.repos.Token.Consume(token.Token); err != nil {
			return apperr.Wrap(err, apperr.ErrInternal, "could not clean up expired token")
		}
		return apperr.New(apperr.ErrExpired, "reset token expired")
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not hash password")
	}

	rows, err := s.repos.Account.UpdatePasswordWhereActive(token.Email, hash)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not update password")
	}
	if rows == 0 {
		return apperr.New(apperr.ErrNotFound, "account not found or inactive")
	}

	if err := s.repos.Token.Consume(token.Token); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not consume reset token")
	}
	return nil
}

// Authenticate checks a local credential and returns the account on success
func (s *Service) Authenticate(email string, password string) (*models.Account, error) {
	account, err := s.repos.Account.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrUnauth, "there is a problem with the login process")
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}
	if !account.IsActive() || !account.CheckPassword(password) {
		return nil, apperr.New(apperr.ErrUnauth, "there is a problem with the login process")
	}

	now := s.now()
	account.LastLoginAt = &now
	if err := s.repos.Account.Update(account); err != nil {
		log.Printf("could not update last login for account %d: %v", account.ID, err)
	}

	return account, nil
}

// profileName resolves the display name for notification emails; a missing
// profile just means an empty name.
func (s *Service) profileName(accountID uint) string {
	profile, err := s.repos.Profile.GetByAccountID(accountID)
	if err != nil {
		return ""
	}
	return profile.Name
}

// validateInput maps validator failures onto the validation error with
// per-field messages.
func (s *Service) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(err, apperr.ErrValidation, "invalid input")
	}

	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		case "min":
			fields[fe.Field()] = "min length is " + fe.Param()
		case "max":
			fields[fe.Field()] = "max length is " + fe.Param()
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return apperr.WithFields(apperr.New(apperr.ErrValidation, "invalid input"), fields)
}
