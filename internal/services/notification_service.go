package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/repositories"
)

const (
	notificationIDPrefix  = "ntf_"
	notificationFeedLimit = 20
)

var (
	// ErrNotificationInvalidInput signals the caller provided invalid data.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
	// ErrNotificationNotFound indicates the notification could not be located.
	ErrNotificationNotFound = errors.New("notification: not found")
)

var knownNotificationTypes = map[domain.NotificationType]bool{
	domain.NotificationOrderPlaced:   true,
	domain.NotificationOrderApproved: true,
	domain.NotificationOrderRejected: true,
}

// NotificationServiceDeps bundles collaborators for the notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Clock         func() time.Time
	IDGenerator   func() string
}

type notificationService struct {
	notifications repositories.NotificationRepository
	clock         func() time.Time
	newID         func() string
}

var _ NotificationService = (*notificationService)(nil)

// NewNotificationService wires dependencies into a concrete NotificationService implementation.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: notification repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return notificationIDPrefix + ulid.Make().String()
		}
	}

	return &notificationService{
		notifications: deps.Notifications,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

// Publish appends an entry to the admin activity feed. Callers treat it as
// advisory; they log the returned error and move on.
func (s *notificationService) Publish(ctx context.Context, cmd PublishNotificationCommand) (Notification, error) {
	if !knownNotificationTypes[cmd.Type] {
		return Notification{}, fmt.Errorf("%w: unknown notification type %q", ErrNotificationInvalidInput, cmd.Type)
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Notification{}, fmt.Errorf("%w: order id is required", ErrNotificationInvalidInput)
	}
	message := strings.TrimSpace(cmd.Message)
	if message == "" {
		return Notification{}, fmt.Errorf("%w: message is required", ErrNotificationInvalidInput)
	}

	notification := Notification{
		ID:        s.newID(),
		Type:      cmd.Type,
		OrderID:   orderID,
		UserID:    strings.TrimSpace(cmd.UserID),
		Message:   message,
		CreatedAt: s.clock(),
	}

	if err := s.notifications.Insert(ctx, domain.Notification(notification)); err != nil {
		return Notification{}, s.translate(err)
	}
	return notification, nil
}

func (s *notificationService) ListLatest(ctx context.Context) ([]Notification, error) {
	items, err := s.notifications.ListLatest(ctx, notificationFeedLimit)
	if err != nil {
		return nil, s.translate(err)
	}
	return items, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID string) (Notification, error) {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return Notification{}, fmt.Errorf("%w: notification id is required", ErrNotificationInvalidInput)
	}

	notification, err := s.notifications.MarkRead(ctx, notificationID, s.clock())
	if err != nil {
		return Notification{}, s.translate(err)
	}
	return notification, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, s.clock())
	if err != nil {
		return 0, s.translate(err)
	}
	return count, nil
}

func (s *notificationService) ClearRead(ctx context.Context) (int64, error) {
	count, err := s.notifications.ClearRead(ctx)
	if err != nil {
		return 0, s.translate(err)
	}
	return count, nil
}

func (s *notificationService) translate(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrNotificationNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("notification: repository unavailable: %w", err)
		}
	}

	return err
}
