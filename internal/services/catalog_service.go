// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
)

// ImageStore persists uploaded product images.
type ImageStore interface {
	ValidateImage(file multipart.File) error
	UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

type CatalogService struct {
	store  repository.Store
	images ImageStore
}

// DefaultProducts is the catalog installed into an empty database.
func DefaultProducts() []models.Product {
	return []models.Product{
		{
			Name:        "Mild Pineapple & Habanero Marmalade",
			Description: "Sweet pineapple with a gentle habanero warmth. Great on cheese boards and toast.",
			Price:       decimal.NewFromInt(60),
			ImageURL:    "/images/mild-marmalade.jpg",
			HeatLevel:   1,
			Stock:       100,
		},
		{
			Name:        "Xtra Hot Pineapple & Habanero Marmalade",
			Description: "The same pineapple base with a serious habanero kick, for glazes and the brave.",
			Price:       decimal.NewFromInt(60),
			ImageURL:    "/images/xtra-hot-marmalade.jpg",
			HeatLevel:   3,
			Stock:       100,
		},
	}
}

func NewCatalogService(store repository.Store, images ImageStore) *CatalogService {
	return &CatalogService{
		store:  store,
		images: images,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

// SeedDefaults installs DefaultProducts when the catalog is empty and
// reports how many were added.
func (s *CatalogService) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		count, err := tx.Products().Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, product := range DefaultProducts() {
			product := product
			if err := tx.Products().Create(ctx, &product); err != nil {
				return fmt.Errorf("failed to seed %q: %w", product.Name, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		logrus.WithField("count", added).Info("Seeded default catalog")
	}
	return added, nil
}

func (s *CatalogService) SetProductImage(ctx context.Context, id uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	if err := s.images.ValidateImage(file); err != nil {
		return nil, err
	}

	upload, err := s.images.UploadFile(ctx, file, header, ProductImageOptions)
	if err != nil {
		return nil, err
	}

	if err := s.store.Products().UpdateImage(ctx, id, upload.URL); err != nil {
		// The stored object would be orphaned.
		if delErr := s.images.DeleteFile(ctx, upload.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", upload.Key).Warn("Failed to remove unused product image")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": id,
		"key":        upload.Key,
	}).Info("Product image updated")

	return s.GetProduct(ctx, id)
}
