package collections

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
)

func setupCollectionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS collections (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  price TEXT NOT NULL DEFAULT '0',
  category_id TEXT,
  new_arrival INTEGER NOT NULL DEFAULT 0,
  images TEXT NOT NULL DEFAULT '{}',
  sizes TEXT NOT NULL DEFAULT '{}',
  colors TEXT NOT NULL DEFAULT '{}',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS collection_products (
  collection_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  PRIMARY KEY (collection_id, product_id)
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO products (id, name, slug, price) VALUES (?, ?, ?, '499')",
		id, name, name,
	).Error)
	return id
}

func TestCollectionLifecycle(t *testing.T) {
	db := setupCollectionsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	teeID := seedProduct(t, db, "tee")
	capID := seedProduct(t, db, "cap")

	collection, err := svc.CreateCollection(ctx, CreateCollectionInput{
		Name:       "Monsoon Drop",
		IsActive:   true,
		ProductIDs: []uuid.UUID{teeID, capID},
	})
	require.NoError(t, err)
	require.Equal(t, "monsoon-drop", collection.Slug)
	require.Len(t, collection.Products, 2)

	bySlug, err := svc.GetCollectionBySlug(ctx, "monsoon-drop")
	require.NoError(t, err)
	require.Equal(t, collection.ID, bySlug.ID)

	active := false
	updated, err := svc.UpdateCollection(ctx, collection.ID, UpdateCollectionInput{IsActive: &active})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	visible, err := svc.ListCollections(ctx, true)
	require.NoError(t, err)
	require.Empty(t, visible)

	trimmed, err := svc.SetProducts(ctx, collection.ID, []uuid.UUID{teeID})
	require.NoError(t, err)
	require.Len(t, trimmed.Products, 1)

	require.NoError(t, svc.DeleteCollection(ctx, collection.ID))
	_, err = svc.GetCollection(ctx, collection.ID)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestSetProductsRejectsUnknownIDs(t *testing.T) {
	db := setupCollectionsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	collection, err := svc.CreateCollection(ctx, CreateCollectionInput{
		Name:     "Essentials",
		IsActive: true,
	})
	require.NoError(t, err)

	_, err = svc.SetProducts(ctx, collection.ID, []uuid.UUID{uuid.New()})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
