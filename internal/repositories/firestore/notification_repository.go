package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/primemart/api/internal/domain"
	pfirestore "github.com/primemart/api/internal/platform/firestore"
)

const notificationCollection = "notifications"

// NotificationRepository stores the admin activity feed in Firestore.
type NotificationRepository struct {
	base     *pfirestore.BaseRepository[notificationDocument]
	provider *pfirestore.Provider
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[notificationDocument](provider, notificationCollection, nil, nil)
	return &NotificationRepository{base: base, provider: provider}, nil
}

// Insert appends an entry to the feed.
func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	if r == nil || r.base == nil {
		return errors.New("notification repository not initialised")
	}
	if strings.TrimSpace(notification.ID) == "" {
		return errors.New("notification repository: notification id is required")
	}

	ref, err := r.base.DocumentRef(ctx, notification.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainNotification(notification)); err != nil {
		return pfirestore.WrapError("notifications.insert", err)
	}
	return nil
}

// ListLatest returns the newest entries in the feed.
func (r *NotificationRepository) ListLatest(ctx context.Context, limit int) ([]domain.Notification, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("notification repository not initialised")
	}
	if limit <= 0 {
		limit = 20
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainNotification(doc.ID, doc.Data))
	}
	return items, nil
}

// MarkRead flags a single entry as read and returns the updated entry.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.Notification, error) {
	if r == nil || r.base == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return domain.Notification{}, errors.New("notification repository: notification id is required")
	}

	readAt = readAt.UTC()
	if _, err := r.base.Update(ctx, notificationID, []firestore.Update{
		{Path: "isRead", Value: true},
		{Path: "readAt", Value: readAt},
	}); err != nil {
		return domain.Notification{}, err
	}

	doc, err := r.base.Get(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	return toDomainNotification(doc.ID, doc.Data), nil
}

// MarkAllRead flags every unread entry and reports how many were updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, readAt time.Time) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("notification repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isRead", "==", false)
	})
	if err != nil {
		return 0, err
	}

	readAt = readAt.UTC()
	var updated int64
	for _, doc := range docs {
		if _, err := r.base.Update(ctx, doc.ID, []firestore.Update{
			{Path: "isRead", Value: true},
			{Path: "readAt", Value: readAt},
		}); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// ClearRead deletes every read entry and reports how many were removed.
func (r *NotificationRepository) ClearRead(ctx context.Context) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("notification repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isRead", "==", true)
	})
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, doc := range docs {
		ref, err := r.base.DocumentRef(ctx, doc.ID)
		if err != nil {
			return removed, err
		}
		if _, err := ref.Delete(ctx); err != nil {
			return removed, pfirestore.WrapError("notifications.clearRead", err)
		}
		removed++
	}
	return removed, nil
}

type notificationDocument struct {
	Type      string     `firestore:"type"`
	OrderID   string     `firestore:"orderId,omitempty"`
	UserID    string     `firestore:"userId,omitempty"`
	Message   string     `firestore:"message"`
	IsRead    bool       `firestore:"isRead"`
	ReadAt    *time.Time `firestore:"readAt,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

func toDomainNotification(id string, doc notificationDocument) domain.Notification {
	return domain.Notification{
		ID:        id,
		Type:      domain.NotificationType(doc.Type),
		OrderID:   doc.OrderID,
		UserID:    doc.UserID,
		Message:   doc.Message,
		IsRead:    doc.IsRead,
		ReadAt:    doc.ReadAt,
		CreatedAt: doc.CreatedAt,
	}
}

func fromDomainNotification(notification domain.Notification) notificationDocument {
	return notificationDocument{
		Type:      string(notification.Type),
		OrderID:   strings.TrimSpace(notification.OrderID),
		UserID:    strings.TrimSpace(notification.UserID),
		Message:   notification.Message,
		IsRead:    notification.IsRead,
		ReadAt:    notification.ReadAt,
		CreatedAt: notification.CreatedAt,
	}
}
