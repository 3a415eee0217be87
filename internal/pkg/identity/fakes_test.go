package identity

import (
	"errors"

	"gorm.io/gorm"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/app/repository"
)

// In-memory repositories backing the engine tests. They mirror the semantics
// of the gorm implementations: record-not-found lookups return
// gorm.ErrRecordNotFound, Issue supersedes per email and purpose, Link skips
// an existing provider pair.

type fakeState struct {
	accounts map[uint]*models.Account
	profiles map[uint]*models.StudentProfile
	tokens   map[string]*models.AuthToken
	links    map[string]*models.OAuthLink
	nextID   uint
}

func newFakeState() *fakeState {
	return &fakeState{
		accounts: make(map[uint]*models.Account),
		profiles: make(map[uint]*models.StudentProfile),
		tokens:   make(map[string]*models.AuthToken),
		links:    make(map[string]*models.OAuthLink),
	}
}

func (st *fakeState) id() uint {
	st.nextID++
	return st.nextID
}

func linkKey(provider, providerAccountID string) string {
	return provider + "|" + providerAccountID
}

type fakeAccountRepo struct {
	st *fakeState

	updateErr error
}

func (r *fakeAccountRepo) Create(account *models.Account) error {
	account.ID = r.st.id()
	r.st.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) CreateWithProfile(account *models.Account, profile *models.StudentProfile) error {
	if err := r.Create(account); err != nil {
		return err
	}
	profile.ID = r.st.id()
	profile.AccountID = account.ID
	r.st.profiles[account.ID] = profile
	return nil
}

func (r *fakeAccountRepo) GetByID(id uint) (*models.Account, error) {
	if a, ok := r.st.accounts[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) GetByEmail(email string) (*models.Account, error) {
	for _, a := range r.st.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) Update(account *models.Account) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.st.accounts[account.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.st.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) UpdatePasswordWhereActive(email string, hash string) (int64, error) {
	for _, a := range r.st.accounts {
		if a.Email == email && a.Status == models.STATUS_ACTIVE {
			h := hash
			a.PasswordHash = &h
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeAccountRepo) DeleteCascade(id uint) error {
	delete(r.st.accounts, id)
	delete(r.st.profiles, id)
	for k, l := range r.st.links {
		if l.AccountID == id {
			delete(r.st.links, k)
		}
	}
	return nil
}

func (r *fakeAccountRepo) Count() (int64, error) {
	return int64(len(r.st.accounts)), nil
}

type fakeProfileRepo struct {
	st *fakeState
}

func (r *fakeProfileRepo) Create(profile *models.StudentProfile) error {
	profile.ID = r.st.id()
	r.st.profiles[profile.AccountID] = profile
	return nil
}

func (r *fakeProfileRepo) GetByAccountID(accountID uint) (*models.StudentProfile, error) {
	if p, ok := r.st.profiles[accountID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProfileRepo) Update(profile *models.StudentProfile) error {
	if _, ok := r.st.profiles[profile.AccountID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.st.profiles[profile.AccountID] = profile
	return nil
}

type fakeTokenRepo struct {
	st *fakeState
}

func (r *fakeTokenRepo) Issue(token *models.AuthToken) error {
	for k, t := range r.st.tokens {
		if t.Email == token.Email && t.Purpose == token.Purpose {
			delete(r.st.tokens, k)
		}
	}
	token.ID = r.st.id()
	r.st.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) GetByToken(token string, purpose string) (*models.AuthToken, error) {
	if t, ok := r.st.tokens[token]; ok && t.Purpose == purpose {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) Consume(token string) error {
	delete(r.st.tokens, token)
	return nil
}

func (r *fakeTokenRepo) CountByEmail(email string, purpose string) (int64, error) {
	var n int64
	for _, t := range r.st.tokens {
		if t.Email == email && t.Purpose == purpose {
			n++
		}
	}
	return n, nil
}

type fakeLinkRepo struct {
	st *fakeState
}

func (r *fakeLinkRepo) Link(link *models.OAuthLink) error {
	k := linkKey(link.Provider, link.ProviderAccountID)
	if _, ok := r.st.links[k]; ok {
		return nil
	}
	link.ID = r.st.id()
	r.st.links[k] = link
	return nil
}

func (r *fakeLinkRepo) Upsert(link *models.OAuthLink) error {
	k := linkKey(link.Provider, link.ProviderAccountID)
	if existing, ok := r.st.links[k]; ok {
		existing.AccessToken = link.AccessToken
		existing.RefreshToken = link.RefreshToken
		existing.Scope = link.Scope
		existing.ExpiresAt = link.ExpiresAt
		return nil
	}
	link.ID = r.st.id()
	r.st.links[k] = link
	return nil
}

func (r *fakeLinkRepo) GetByProviderAccount(provider string, providerAccountID string) (*models.OAuthLink, error) {
	if l, ok := r.st.links[linkKey(provider, providerAccountID)]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLinkRepo) CountByAccountID(accountID uint) (int64, error) {
	var n int64
	for _, l := range r.st.links {
		if l.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// fakeNotifier records delivery attempts and can be told to fail.
type fakeNotifier struct {
	verificationSent int
	resetSent        int
	lastCode         string
	lastResetToken   string
	failWith         error
}

func (n *fakeNotifier) SendVerificationCode(to string, name string, code string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.verificationSent++
	n.lastCode = code
	return nil
}

func (n *fakeNotifier) SendPasswordReset(to string, name string, token string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.resetSent++
	n.lastResetToken = token
	return nil
}

var errSMTPDown = errors.New("smtp connection refused")

type testEnv struct {
	state    *fakeState
	accounts *fakeAccountRepo
	notifier *fakeNotifier
	service  *Service
}

func newTestEnv() *testEnv {
	st := newFakeState()
	accounts := &fakeAccountRepo{st: st}
	repos := &repository.Repositories{
		Account:   accounts,
		Profile:   &fakeProfileRepo{st: st},
		Token:     &fakeTokenRepo{st: st},
		OAuthLink: &fakeLinkRepo{st: st},
	}
	notifier := &fakeNotifier{}
	return &testEnv{
		state:    st,
		accounts: accounts,
		notifier: notifier,
		service:  NewService(repos, notifier),
	}
}
