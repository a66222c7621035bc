package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/repositories"
)

var (
	// ErrUserInvalidInput signals the caller provided invalid data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the user could not be located.
	ErrUserNotFound = errors.New("user: not found")
)

var validRoles = []domain.Role{domain.RoleUser, domain.RoleAdmin}

var validAccountStatuses = []domain.AccountStatus{
	domain.AccountActive,
	domain.AccountSuspended,
	domain.AccountDeactivated,
}

// UserServiceDeps bundles the dependencies required to construct a user service instance.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

var _ UserService = (*userService)(nil)

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &userService{
		users: deps.Users,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Me returns the caller's profile. The password hash is stripped before the
// profile leaves the service.
func (s *userService) Me(ctx context.Context, userID string) (User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return scrubCredentials(user), nil
}

// UpdateShippingAddress replaces the saved default address. Shipping
// snapshots on existing orders are never touched.
func (s *userService) UpdateShippingAddress(ctx context.Context, cmd UpdateShippingAddressCommand) (User, error) {
	user, err := s.findUser(ctx, cmd.UserID)
	if err != nil {
		return User{}, err
	}

	address, err := sanitizeShippingAddress(cmd.Address)
	if err != nil {
		return User{}, err
	}

	user.ShippingAddress = address
	user.UpdatedAt = s.clock()

	if err := s.users.Update(ctx, domain.User(user)); err != nil {
		return User{}, s.translate(err)
	}
	return scrubCredentials(user), nil
}

func (s *userService) ListUsers(ctx context.Context, pager Pagination) (domain.CursorPage[User], error) {
	page, err := s.users.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[User]{}, s.translate(err)
	}
	for i := range page.Items {
		page.Items[i] = scrubCredentials(page.Items[i])
	}
	return page, nil
}

func (s *userService) SetRole(ctx context.Context, cmd SetRoleCommand) (User, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(string(cmd.Role))))
	if !containsRole(role) {
		return User{}, fmt.Errorf("%w: invalid role %q", ErrUserInvalidInput, cmd.Role)
	}

	user, err := s.findUser(ctx, cmd.UserID)
	if err != nil {
		return User{}, err
	}

	if user.Role == role {
		return scrubCredentials(user), nil
	}

	user.Role = role
	user.UpdatedAt = s.clock()

	if err := s.users.Update(ctx, domain.User(user)); err != nil {
		return User{}, s.translate(err)
	}
	return scrubCredentials(user), nil
}

func (s *userService) SetAccountStatus(ctx context.Context, cmd SetAccountStatusCommand) (User, error) {
	status := domain.AccountStatus(strings.ToLower(strings.TrimSpace(string(cmd.Status))))
	if !containsAccountStatus(status) {
		return User{}, fmt.Errorf("%w: invalid account status %q", ErrUserInvalidInput, cmd.Status)
	}

	user, err := s.findUser(ctx, cmd.UserID)
	if err != nil {
		return User{}, err
	}

	if user.AccountStatus == status {
		return scrubCredentials(user), nil
	}

	user.AccountStatus = status
	user.UpdatedAt = s.clock()

	if err := s.users.Update(ctx, domain.User(user)); err != nil {
		return User{}, s.translate(err)
	}
	return scrubCredentials(user), nil
}

// DeleteUser removes an account permanently. Admins cannot delete their own
// account, which keeps at least the acting admin alive.
func (s *userService) DeleteUser(ctx context.Context, actorID string, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	if userID == strings.TrimSpace(actorID) {
		return fmt.Errorf("%w: cannot delete your own account", ErrUserInvalidInput)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return s.translate(err)
	}
	return nil
}

func (s *userService) findUser(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, s.translate(err)
	}
	return user, nil
}

func (s *userService) translate(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("user: repository unavailable: %w", err)
		}
	}

	return err
}

func scrubCredentials(user User) User {
	user.PasswordHash = ""
	return user
}

func sanitizeShippingAddress(address ShippingAddress) (ShippingAddress, error) {
	cleaned := ShippingAddress{
		FullName: strings.TrimSpace(address.FullName),
		Phone:    strings.TrimSpace(address.Phone),
		Street:   strings.TrimSpace(address.Street),
		City:     strings.TrimSpace(address.City),
		State:    strings.TrimSpace(address.State),
		Pincode:  strings.TrimSpace(address.Pincode),
		Country:  strings.TrimSpace(address.Country),
	}

	if cleaned.Street == "" {
		return ShippingAddress{}, fmt.Errorf("%w: street is required", ErrUserInvalidInput)
	}
	if cleaned.City == "" {
		return ShippingAddress{}, fmt.Errorf("%w: city is required", ErrUserInvalidInput)
	}
	if cleaned.Pincode == "" {
		return ShippingAddress{}, fmt.Errorf("%w: pincode is required", ErrUserInvalidInput)
	}
	if cleaned.Country == "" {
		cleaned.Country = defaultCountry
	}

	return cleaned, nil
}

func containsRole(role domain.Role) bool {
	for _, candidate := range validRoles {
		if candidate == role {
			return true
		}
	}
	return false
}

func containsAccountStatus(status domain.AccountStatus) bool {
	for _, candidate := range validAccountStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}
