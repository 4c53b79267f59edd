package auth

import (
	"context"
	"errors"

	"github.com/Reinhardt254/online-bookstore/internal/domain/user"
	"github.com/Reinhardt254/online-bookstore/internal/security"
)

// Keep this small interface so tests can fake it easily.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (user.User, error)
	Create(ctx context.Context, email, passwordHash string, firstName, lastName *string) (user.User, error)
	CreateFromGoogle(ctx context.Context, email, googleID string, firstName, lastName, avatar *string) (user.User, error)
	LinkGoogleAccount(ctx context.Context, id int64, googleID string, avatar *string) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

var (
	// ErrInvalidCredentials is the single undifferentiated failure for every
	// credential check. Callers must not be able to tell an unknown email from
	// a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileWithoutEmail rejects provider profiles that carry no email
	// address at all, which we cannot map to an account.
	ErrProfileWithoutEmail = errors.New("google profile has no email")
)

// Service orchestrates the credential store, the password hasher and the
// token manager for every authentication flow.
type Service struct {
	users      UserStore
	tokens     *Manager
	bcryptCost int
}

func NewService(users UserStore, tokens *Manager, bcryptCost int) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// LoginResult is what every successful authentication hands back: a signed
// bearer token plus the user record with the hash stripped.
type LoginResult struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// ValidateCredentials looks the user up by email and checks the password.
// Any miss (unknown email, passwordless account, wrong password) returns
// ErrInvalidCredentials. No side effects.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if !u.HasPassword() {
		return user.User{}, ErrInvalidCredentials
	}

	if err := security.CheckPassword(*u.PasswordHash, password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// Login mints a token for an already-validated user. No persistence writes.
func (s *Service) Login(u user.User) (LoginResult, error) {
	token, err := s.tokens.Generate(u)

	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: u.Public()}, nil
}

// Register creates a password account and immediately logs it in, so the two
// flows stay composed instead of duplicated. A duplicate email surfaces as
// user.ErrEmailTaken from the unique index, never from a racy pre-read.
func (s *Service) Register(ctx context.Context, email, password string, firstName, lastName *string) (LoginResult, error) {
	hash, err := security.HashPassword(password, s.bcryptCost)

	if err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.Create(ctx, email, hash, firstName, lastName)

	if err != nil {
		return LoginResult{}, err
	}

	return s.Login(u)
}

// GoogleProfile is the provider-supplied identity we map onto a local user.
type GoogleProfile struct {
	ID         string
	Emails     []string
	GivenName  string
	FamilyName string
	Photos     []string
}

func (p GoogleProfile) primaryEmail() string {
	return p.Emails[0]
}

func (p GoogleProfile) firstPhoto() *string {
	if len(p.Photos) == 0 {
		return nil
	}
	photo := p.Photos[0]
	return &photo
}

// GoogleLogin is an upsert-by-priority: an account already carrying the
// google id wins, otherwise an existing account with the same email gets
// linked, otherwise a fresh passwordless account is created. Either way the
// result is a normal login.
func (s *Service) GoogleLogin(ctx context.Context, p GoogleProfile) (LoginResult, error) {
	if p.ID == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	if len(p.Emails) == 0 {
		return LoginResult{}, ErrProfileWithoutEmail
	}

	u, err := s.users.GetByGoogleID(ctx, p.ID)

	if err == nil {
		return s.Login(u)
	}

	if !errors.Is(err, user.ErrNotFound) {
		return LoginResult{}, err
	}

	u, err = s.upsertByEmail(ctx, p)

	if err != nil {
		return LoginResult{}, err
	}

	return s.Login(u)
}

func (s *Service) upsertByEmail(ctx context.Context, p GoogleProfile) (user.User, error) {
	existing, err := s.users.GetByEmail(ctx, p.primaryEmail())

	if err == nil {
		// Returning user who originally registered with a password: link the
		// google id to that row. The UPDATE returns the canonical row, we never
		// hand-patch the in-memory record.
		return s.users.LinkGoogleAccount(ctx, existing.ID, p.ID, p.firstPhoto())
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}

	var first, last *string

	if p.GivenName != "" {
		first = &p.GivenName
	}

	if p.FamilyName != "" {
		last = &p.FamilyName
	}

	created, err := s.users.CreateFromGoogle(ctx, p.primaryEmail(), p.ID, first, last, p.firstPhoto())

	if err == nil {
		return created, nil
	}

	// A concurrent callback for the same brand-new account can win the insert.
	// The unique index on google_id turns that race into a retryable lookup.
	if errors.Is(err, user.ErrGoogleIDTaken) {
		return s.users.GetByGoogleID(ctx, p.ID)
	}

	// A concurrent password registration can also win the insert. That row has
	// no google id yet, so fall back to linking it by email.
	if errors.Is(err, user.ErrEmailTaken) {
		raced, lookupErr := s.users.GetByEmail(ctx, p.primaryEmail())

		if lookupErr != nil {
			return user.User{}, lookupErr
		}

		return s.users.LinkGoogleAccount(ctx, raced.ID, p.ID, p.firstPhoto())
	}

	return user.User{}, err
}

// ChangePassword confirms the current password and overwrites the stored
// hash. Accounts without a password (Google-only) cannot use this path. The
// caller's existing token stays valid until its own expiry.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if !u.HasPassword() {
		return ErrInvalidCredentials
	}

	if err := security.CheckPassword(*u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := security.HashPassword(next, s.bcryptCost)

	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// Profile is a pure projection; the caller already resolved the user from a
// verified token.
func (s *Service) Profile(u user.User) user.User {
	return u.Public()
}
