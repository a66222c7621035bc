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

// lowStockThreshold marks a product for the dashboard low-stock panel.
const lowStockThreshold = 10

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog mutation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogConflict indicates a concurrent write collided with the mutation.
	ErrCatalogConflict = errors.New("catalog service: conflict")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	IDGenerator func() string
	Clock       func() time.Time
}

type catalogService struct {
	repo  repositories.ProductRepository
	idGen func() string
	clock func() time.Time
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, fmt.Errorf("catalog service: product repository is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "prd_" + ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &catalogService{
		repo:  deps.Products,
		idGen: idGen,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	if s.repo == nil {
		return domain.CursorPage[Product]{}, ErrCatalogRepositoryMissing
	}

	repoFilter := repositories.ProductListFilter{
		Category: normalizeFilterPointer(filter.Category),
		Pagination: domain.Pagination{
			PageSize:  filter.Pagination.PageSize,
			PageToken: strings.TrimSpace(filter.Pagination.PageToken),
		},
	}

	page, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translate(err)
	}
	return page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s.repo == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translate(err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	if s.repo == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.Price <= 0 {
		return Product{}, fmt.Errorf("%w: price must be positive", ErrCatalogInvalidInput)
	}
	if cmd.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrCatalogInvalidInput)
	}

	now := s.clock()
	product := domain.Product{
		ID:          s.idGen(),
		Name:        name,
		Price:       cmd.Price,
		Description: strings.TrimSpace(cmd.Description),
		Category:    strings.TrimSpace(cmd.Category),
		Stock:       cmd.Stock,
		Image: domain.ProductImage{
			URL:      strings.TrimSpace(cmd.ImageURL),
			PublicID: strings.TrimSpace(cmd.ImagePublicID),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return Product{}, s.translate(err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	if s.repo == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translate(err)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name cannot be empty", ErrCatalogInvalidInput)
		}
		product.Name = name
	}
	if cmd.Price != nil {
		if *cmd.Price <= 0 {
			return Product{}, fmt.Errorf("%w: price must be positive", ErrCatalogInvalidInput)
		}
		product.Price = *cmd.Price
	}
	if cmd.Description != nil {
		product.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Category != nil {
		product.Category = strings.TrimSpace(*cmd.Category)
	}
	if cmd.Stock != nil {
		if *cmd.Stock < 0 {
			return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrCatalogInvalidInput)
		}
		product.Stock = *cmd.Stock
	}
	if cmd.ImageURL != nil {
		product.Image.URL = strings.TrimSpace(*cmd.ImageURL)
	}
	if cmd.ImagePublicID != nil {
		product.Image.PublicID = strings.TrimSpace(*cmd.ImagePublicID)
	}
	product.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, s.translate(err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.repo == nil {
		return ErrCatalogRepositoryMissing
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return s.translate(err)
	}
	return nil
}

func (s *catalogService) ListLowStock(ctx context.Context, limit int) ([]Product, error) {
	if s.repo == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	if limit <= 0 {
		limit = 5
	}

	products, err := s.repo.ListLowStock(ctx, lowStockThreshold, limit)
	if err != nil {
		return nil, s.translate(err)
	}
	return products, nil
}

func (s *catalogService) translate(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogProductNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		}
	}
	return err
}

func normalizeFilterPointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
