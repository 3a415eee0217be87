package identity

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/internal/pkg/apperr"
	"github.com/aprendia/aprendia/internal/pkg/utils"
)

// LinkOAuthInput carries the provider credential reported by the OAuth bridge
type LinkOAuthInput struct {
	Provider          string     `json:"provider" validate:"required"`
	ProviderAccountID string     `json:"providerAccountId" validate:"required"`
	AccessToken       string     `json:"accessToken"`
	RefreshToken      string     `json:"refreshToken"`
	Scope             string     `json:"scope"`
	ExpiresAt         *time.Time `json:"expiresAt"`
}

// LinkOAuth attaches a provider credential to the authenticated caller's
// account. A pair already linked elsewhere makes the call a silent no-op.
func (s *Service) LinkOAuth(sessionEmail string, in LinkOAuthInput) error {
	if err := s.validateInput(in); err != nil {
		return err
	}

	account, err := s.repos.Account.GetByEmail(sessionEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrNotFound, "no account for the current session")
		}
		return apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}

	link := &models.OAuthLink{
		AccountID:         account.ID,
		Provider:          in.Provider,
		ProviderAccountID: in.ProviderAccountID,
		AccessToken:       in.AccessToken,
		RefreshToken:      in.RefreshToken,
		Scope:             in.Scope,
		ExpiresAt:         in.ExpiresAt,
	}
	if err := s.repos.OAuthLink.Link(link); err != nil {
		return apperr.Wrap(err, apperr.ErrInternal, "could not link provider account")
	}
	return nil
}

// CompleteOAuthInput carries the registration-completion form of a brand-new
// OAuth identity plus the provider credential from the bridge.
type CompleteOAuthInput struct {
	Email     string     `json:"email" validate:"required,email"`
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	Lastname  string     `json:"lastname" validate:"required,min=1,max=100"`
	Phone     string     `json:"phone" validate:"max=32"`
	Birthdate *time.Time `json:"birthdate"`
	Specialty string     `json:"specialty" validate:"max=100"`
	AvatarURL string     `json:"avatarUrl"`

	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"providerAccountId"`
	AccessToken       string     `json:"accessToken"`
	RefreshToken      string     `json:"refreshToken"`
	Scope             string     `json:"scope"`
	ExpiresAt         *time.Time `json:"expiresAt"`
}

// CompleteOAuthResult identifies the account created by the completion call
type CompleteOAuthResult struct {
	AccountID uint `json:"userId"`
}

// CompleteOAuthRegistration creates the account for a new OAuth identity once
// the completion form collected the required profile fields. A leftover
// account from a previously abandoned attempt on the same email is discarded
// first. Provider emails are trusted, so the account starts verified. Failing
// to store the provider link is logged but does not fail the registration.
func (s *Service) CompleteOAuthRegistration(in CompleteOAuthInput) (*CompleteOAuthResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.repos.Account.GetByEmail(in.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, apperr.ErrInternal, "could not check existing account")
	}
	if err == nil {
		profile, perr := s.repos.Profile.GetByAccountID(existing.ID)
		abandoned := errors.Is(perr, gorm.ErrRecordNotFound) || (perr == nil && !profile.OnboardingComplete())
		if perr != nil && !errors.Is(perr, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(perr, apperr.ErrInternal, "could not check existing profile")
		}
		if !abandoned {
			return nil, apperr.New(apperr.ErrConflict, "an account with this email already exists")
		}
		if err := s.repos.Account.DeleteCascade(existing.ID); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrInternal, "could not discard abandoned registration")
		}
	}

	now := s.now()
	avatar := in.AvatarURL
	if avatar == "" {
		avatar = utils.GetGravatarURL(in.Email, 200)
	}
	account := &models.Account{
		Email:        in.Email,
		Role:         models.ROLE_STUDENT,
		Status:       models.STATUS_ACTIVE,
		Verification: models.VERIFICATION_VERIFIED,
		VerifiedAt:   &now,
		AvatarURL:    avatar,
	}
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

	if in.Provider != "" && in.ProviderAccountID != "" {
		link := &models.OAuthLink{
			AccountID:         account.ID,
			Provider:          in.Provider,
			ProviderAccountID: in.ProviderAccountID,
			AccessToken:       in.AccessToken,
			RefreshToken:      in.RefreshToken,
			Scope:             in.Scope,
			ExpiresAt:         in.ExpiresAt,
		}
		if err := s.repos.OAuthLink.Upsert(link); err != nil {
			log.Printf("could not link provider %s for account %d: %v", in.Provider, account.ID, err)
		}
	}

	return &CompleteOAuthResult{AccountID: account.ID}, nil
}

// Sign-in intents distinguished by the routing decision. OAuth login and
// OAuth registration share one external handshake, so the caller declares
// which one it meant to start.
const (
	IntentLogin        = "login"
	IntentRegistration = "registration"
)

// Routes the post-authentication controller can land on.
const (
	RouteLogin                = "login"
	RouteNoAccount            = "login_no_account"
	RouteCompleteRegistration = "complete_registration"
	RouteOnboarding           = "onboarding"
	RouteHome                 = "home"
)

// RouteQuery describes the state the routing decision runs on
type RouteQuery struct {
	Authenticated bool
	Email         string
	Intent        string
}

// NextRoute decides where a caller goes after sign-in. A login-intent caller
// without an account is rejected (the controller must destroy the freshly
// created session) so the OAuth handshake cannot act as backdoor
// registration. Any store failure is a hard error, never a silent fallback.
func (s *Service) NextRoute(q RouteQuery) (string, error) {
	if !q.Authenticated {
		return RouteLogin, nil
	}

	account, err := s.repos.Account.GetByEmail(q.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if q.Intent == IntentRegistration {
				return RouteCompleteRegistration, nil
			}
			return RouteNoAccount, nil
		}
		return "", apperr.Wrap(err, apperr.ErrInternal, "could not look up account")
	}

	profile, err := s.repos.Profile.GetByAccountID(account.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RouteOnboarding, nil
		}
		return "", apperr.Wrap(err, apperr.ErrInternal, "could not look up profile")
	}
	if !profile.OnboardingComplete() {
		return RouteOnboarding, nil
	}
	return RouteHome, nil
}
