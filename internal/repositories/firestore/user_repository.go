package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/primemart/api/internal/domain"
	pfirestore "github.com/primemart/api/internal/platform/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const userCollection = "users"

// UserRepository persists account profiles in Firestore. Emails are stored
// lowercased so login lookups are case insensitive.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil)
	return &UserRepository{base: base, provider: provider}, nil
}

// Insert creates the account document. A duplicate ID surfaces as a conflict.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user repository: user id is required")
	}

	ref, err := r.base.DocumentRef(ctx, user.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainUser(user)); err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

// Update overwrites the account document.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user repository: user id is required")
	}

	_, err := r.base.Set(ctx, user.ID, fromDomainUser(user))
	return err
}

// Delete removes the account document. Absent documents surface as not found.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user repository: user id is required")
	}

	// A Firestore delete of an absent document is a no-op, so probe first to
	// keep not-found semantics for callers.
	if _, err := r.base.Get(ctx, userID); err != nil {
		return err
	}

	ref, err := r.base.DocumentRef(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("users.delete", err)
	}
	return nil
}

// FindByID loads the account by its document ID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// FindByEmail resolves the account registered under the given email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, errors.New("user repository: email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(docs) == 0 {
		return domain.User{}, pfirestore.WrapError("users.findByEmail", status.Error(codes.NotFound, "user not found"))
	}
	return toDomainUser(docs[0].ID, docs[0].Data), nil
}

// List returns accounts newest first using an opaque cursor token.
func (r *UserRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.User], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.User]{}, errors.New("user repository not initialised")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.User]{}, fmt.Errorf("user repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.User]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainUser(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.User]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// Count returns the total number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("user repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return countAll(ctx, client.Collection(userCollection).Query, "users.count")
}

type userDocument struct {
	Name            string                  `firestore:"name"`
	Email           string                  `firestore:"email"`
	PasswordHash    string                  `firestore:"passwordHash"`
	Mobile          string                  `firestore:"mobile,omitempty"`
	Role            string                  `firestore:"role"`
	AccountStatus   string                  `firestore:"accountStatus"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

type shippingAddressDocument struct {
	FullName string `firestore:"fullName,omitempty"`
	Phone    string `firestore:"phone,omitempty"`
	Street   string `firestore:"street,omitempty"`
	City     string `firestore:"city,omitempty"`
	State    string `firestore:"state,omitempty"`
	Pincode  string `firestore:"pincode,omitempty"`
	Country  string `firestore:"country,omitempty"`
}

func toDomainUser(id string, doc userDocument) domain.User {
	user := domain.User{
		ID:              id,
		Name:            doc.Name,
		Email:           strings.TrimSpace(doc.Email),
		PasswordHash:    doc.PasswordHash,
		Mobile:          strings.TrimSpace(doc.Mobile),
		Role:            domain.Role(doc.Role),
		AccountStatus:   domain.AccountStatus(doc.AccountStatus),
		ShippingAddress: toDomainShippingAddress(doc.ShippingAddress),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.AccountStatus == "" {
		user.AccountStatus = domain.AccountActive
	}
	return user
}

func fromDomainUser(user domain.User) userDocument {
	doc := userDocument{
		Name:            strings.TrimSpace(user.Name),
		Email:           strings.ToLower(strings.TrimSpace(user.Email)),
		PasswordHash:    user.PasswordHash,
		Mobile:          strings.TrimSpace(user.Mobile),
		Role:            string(user.Role),
		AccountStatus:   string(user.AccountStatus),
		ShippingAddress: fromDomainShippingAddress(user.ShippingAddress),
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
	if doc.Role == "" {
		doc.Role = string(domain.RoleUser)
	}
	if doc.AccountStatus == "" {
		doc.AccountStatus = string(domain.AccountActive)
	}
	return doc
}

func toDomainShippingAddress(doc shippingAddressDocument) domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: strings.TrimSpace(doc.FullName),
		Phone:    strings.TrimSpace(doc.Phone),
		Street:   strings.TrimSpace(doc.Street),
		City:     strings.TrimSpace(doc.City),
		State:    strings.TrimSpace(doc.State),
		Pincode:  strings.TrimSpace(doc.Pincode),
		Country:  strings.TrimSpace(doc.Country),
	}
}

func fromDomainShippingAddress(addr domain.ShippingAddress) shippingAddressDocument {
	return shippingAddressDocument{
		FullName: strings.TrimSpace(addr.FullName),
		Phone:    strings.TrimSpace(addr.Phone),
		Street:   strings.TrimSpace(addr.Street),
		City:     strings.TrimSpace(addr.City),
		State:    strings.TrimSpace(addr.State),
		Pincode:  strings.TrimSpace(addr.Pincode),
		Country:  strings.TrimSpace(addr.Country),
	}
}

// CollectionName exposes the Firestore collection for migration tooling.
func (r *UserRepository) CollectionName() string {
	return userCollection
}

// DocumentPath constructs the document path for the provided user id.
func (r *UserRepository) DocumentPath(userID string) string {
	return fmt.Sprintf("%s/%s", userCollection, strings.TrimSpace(userID))
}
