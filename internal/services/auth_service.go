package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/platform/mail"
	"github.com/primemart/api/internal/repositories"
)

var (
	// ErrAuthInvalidInput indicates a malformed registration or login request.
	ErrAuthInvalidInput = errors.New("auth service: invalid input")
	// ErrAuthEmailTaken indicates an account already exists for the email.
	ErrAuthEmailTaken = errors.New("auth service: email already registered")
	// ErrAuthOTPNotFound indicates no code was requested for the email.
	ErrAuthOTPNotFound = errors.New("auth service: otp not found")
	// ErrAuthOTPInvalid covers both a mismatched and an expired code.
	ErrAuthOTPInvalid = errors.New("auth service: otp invalid or expired")
	// ErrAuthInvalidCredentials is returned for unknown emails and wrong
	// passwords alike so responses do not leak which one failed.
	ErrAuthInvalidCredentials = errors.New("auth service: invalid credentials")
	// ErrAuthAccountBlocked indicates a suspended or deactivated account.
	ErrAuthAccountBlocked = errors.New("auth service: account is not active")
)

const (
	otpLength      = 6
	bcryptCost     = 10
	defaultOTPTTL  = 5 * time.Minute
	defaultCountry = "India"
)

// SessionIssuer signs session tokens for authenticated users.
type SessionIssuer interface {
	Issue(userID, email, role string) (string, error)
}

// AuthServiceDeps bundles collaborators for the auth service.
type AuthServiceDeps struct {
	Users       repositories.UserRepository
	OTPs        repositories.OTPRepository
	Tokens      SessionIssuer
	Mailer      mail.Sender
	OTPTTL      time.Duration
	IDGenerator func() string
	Clock       func() time.Time
}

type authService struct {
	users  repositories.UserRepository
	otps   repositories.OTPRepository
	tokens SessionIssuer
	mailer mail.Sender
	otpTTL time.Duration
	idGen  func() string
	clock  func() time.Time
}

var _ AuthService = (*authService)(nil)

// NewAuthService constructs the registration and login service.
func NewAuthService(deps AuthServiceDeps) (AuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("auth service: user repository is required")
	}
	if deps.OTPs == nil {
		return nil, errors.New("auth service: otp repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth service: session issuer is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("auth service: mailer is required")
	}

	ttl := deps.OTPTTL
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "usr_" + ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &authService{
		users:  deps.Users,
		otps:   deps.OTPs,
		tokens: deps.Tokens,
		mailer: deps.Mailer,
		otpTTL: ttl,
		idGen:  idGen,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

// RequestRegistrationOTP issues a fresh 6-digit code for the email. Sending
// the email is the primary effect here: a delivery failure fails the request.
func (s *authService) RequestRegistrationOTP(ctx context.Context, email string) error {
	email, err := normaliseEmail(email)
	if err != nil {
		return err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: %s", ErrAuthEmailTaken, email)
	} else if !isRepositoryNotFound(err) {
		return err
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("auth service: generate otp: %w", err)
	}

	now := s.clock()
	otp := domain.RegistrationOTP{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.otps.Put(ctx, otp); err != nil {
		return err
	}

	msg := mail.Message{
		To:      email,
		Subject: "Your PrimeMart verification code",
		HTML: fmt.Sprintf(
			"<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
			code, int(s.otpTTL.Minutes()),
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("auth service: send otp email: %w", err)
	}
	return nil
}

// VerifyRegistrationOTP checks the code without consuming it.
func (s *authService) VerifyRegistrationOTP(ctx context.Context, email string, code string) error {
	email, err := normaliseEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrAuthInvalidInput)
	}

	otp, err := s.otps.Get(ctx, email)
	if err != nil {
		if isRepositoryNotFound(err) {
			return fmt.Errorf("%w: %s", ErrAuthOTPNotFound, email)
		}
		return err
	}
	if otp.Code != code {
		return fmt.Errorf("%w: code mismatch", ErrAuthOTPInvalid)
	}
	if s.clock().After(otp.ExpiresAt) {
		return fmt.Errorf("%w: code expired", ErrAuthOTPInvalid)
	}
	return nil
}

// Register validates the code, creates the account, and signs in the user.
func (s *authService) Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return AuthSession{}, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return AuthSession{}, fmt.Errorf("%w: name is required", ErrAuthInvalidInput)
	}
	if len(cmd.Password) < 6 {
		return AuthSession{}, fmt.Errorf("%w: password must be at least 6 characters", ErrAuthInvalidInput)
	}

	if err := s.VerifyRegistrationOTP(ctx, email, cmd.Code); err != nil {
		return AuthSession{}, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthSession{}, fmt.Errorf("%w: %s", ErrAuthEmailTaken, email)
	} else if !isRepositoryNotFound(err) {
		return AuthSession{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcryptCost)
	if err != nil {
		return AuthSession{}, fmt.Errorf("auth service: hash password: %w", err)
	}

	now := s.clock()
	user := domain.User{
		ID:            s.idGen(),
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		Mobile:        strings.TrimSpace(cmd.Mobile),
		Role:          domain.RoleUser,
		AccountStatus: domain.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cmd.ShippingAddress != nil {
		user.ShippingAddress = *cmd.ShippingAddress
	}
	if strings.TrimSpace(user.ShippingAddress.Country) == "" {
		user.ShippingAddress.Country = defaultCountry
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if isRepositoryConflict(err) {
			return AuthSession{}, fmt.Errorf("%w: %s", ErrAuthEmailTaken, email)
		}
		return AuthSession{}, err
	}

	// Consuming the code is best effort; the account already exists.
	_ = s.otps.Delete(ctx, email)

	token, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return AuthSession{}, fmt.Errorf("auth service: issue token: %w", err)
	}
	return AuthSession{Token: token, User: user}, nil
}

// Login verifies the credentials and signs a fresh session token.
func (s *authService) Login(ctx context.Context, cmd LoginCommand) (AuthSession, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return AuthSession{}, err
	}
	if cmd.Password == "" {
		return AuthSession{}, fmt.Errorf("%w: password is required", ErrAuthInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepositoryNotFound(err) {
			return AuthSession{}, ErrAuthInvalidCredentials
		}
		return AuthSession{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return AuthSession{}, ErrAuthInvalidCredentials
	}

	if user.AccountStatus != domain.AccountActive {
		return AuthSession{}, fmt.Errorf("%w: %s", ErrAuthAccountBlocked, user.AccountStatus)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return AuthSession{}, fmt.Errorf("auth service: issue token: %w", err)
	}
	return AuthSession{Token: token, User: user}, nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: a valid email is required", ErrAuthInvalidInput)
	}
	return email, nil
}

// generateOTPCode draws a zero-padded 6-digit code from crypto/rand.
func generateOTPCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
