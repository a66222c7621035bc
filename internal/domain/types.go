package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// CursorPage carries a page of results plus the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Role enumerates the account roles recognised by the API.
type Role string

const (
	// RoleUser is the default role for registered shoppers.
	RoleUser Role = "user"
	// RoleAdmin grants access to the admin surface.
	RoleAdmin Role = "admin"
)

// AccountStatus describes whether a user may authenticate.
type AccountStatus string

const (
	// AccountActive allows login.
	AccountActive AccountStatus = "active"
	// AccountSuspended blocks login until an admin lifts the suspension.
	AccountSuspended AccountStatus = "suspended"
	// AccountDeactivated marks a self-closed account.
	AccountDeactivated AccountStatus = "deactivated"
)

// ShippingAddress is the address snapshot stored on users and copied onto orders.
type ShippingAddress struct {
	FullName string
	Phone    string
	Street   string
	City     string
	State    string
	Pincode  string
	Country  string
}

// User is a registered shopper or admin account.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Mobile          string
	Role            Role
	AccountStatus   AccountStatus
	ShippingAddress ShippingAddress
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RegistrationOTP is a short-lived email verification code. One document is
// kept per email; a fresh request overwrites the previous code.
type RegistrationOTP struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ProductImage stores the public URL and blob object path of a catalog image.
type ProductImage struct {
	URL      string
	PublicID string
}

// Product is a catalog entry. Price is in rupees.
type Product struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Category    string
	Stock       int
	Image       ProductImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
