package collections

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
)

// Service exposes curated collection management.
type Service interface {
	CreateCollection(ctx context.Context, input CreateCollectionInput) (*models.Collection, error)
	UpdateCollection(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*models.Collection, error)
	DeleteCollection(ctx context.Context, id uuid.UUID) error
	GetCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	GetCollectionBySlug(ctx context.Context, slug string) (*models.Collection, error)
	ListCollections(ctx context.Context, activeOnly bool) ([]models.Collection, error)
	SetProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) (*models.Collection, error)
}

// CreateCollectionInput holds the validated payload to create a collection.
type CreateCollectionInput struct {
	Name        string
	Description *string
	IsActive    bool
	ProductIDs  []uuid.UUID
}

// UpdateCollectionInput holds optional mutation values for a collection.
type UpdateCollectionInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

type service struct {
	repo *Repository
}

// NewService constructs a collection service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collection repository required")
	}
	return &service{repo: repo}, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (s *service) CreateCollection(ctx context.Context, input CreateCollectionInput) (*models.Collection, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection name is required")
	}

	collection := &models.Collection{
		Name:        name,
		Slug:        slugify(name),
		Description: input.Description,
		IsActive:    input.IsActive,
	}
	if err := s.repo.Create(ctx, collection); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "creating collection")
	}
	if len(input.ProductIDs) > 0 {
		return s.SetProducts(ctx, collection.ID, input.ProductIDs)
	}
	return collection, nil
}

func (s *service) UpdateCollection(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*models.Collection, error) {
	collection, err := s.loadCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection name cannot be empty")
		}
		collection.Name = name
		collection.Slug = slugify(name)
	}
	if input.Description != nil {
		collection.Description = input.Description
	}
	if input.IsActive != nil {
		collection.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, collection); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating collection")
	}
	return collection, nil
}

func (s *service) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadCollection(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting collection")
	}
	return nil
}

func (s *service) GetCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	return s.loadCollection(ctx, id)
}

func (s *service) GetCollectionBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	collection, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading collection")
	}
	return collection, nil
}

func (s *service) ListCollections(ctx context.Context, activeOnly bool) ([]models.Collection, error) {
	collectionList, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing collections")
	}
	return collectionList, nil
}

func (s *service) SetProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) (*models.Collection, error) {
	collection, err := s.loadCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	if len(products) != len(productIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more products do not exist")
	}

	if err := s.repo.ReplaceProducts(ctx, collection, products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "setting collection products")
	}
	return s.loadCollection(ctx, id)
}

func (s *service) loadCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	collection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading collection")
	}
	return collection, nil
}
