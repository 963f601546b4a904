package sargam

import (
	"fmt"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
	"github.com/himanishpuri/sargam/pkg/sargam/storage"
)

// sqliteCatalog adapts storage.CatalogStore to the CatalogSource interface.
type sqliteCatalog struct {
	store *storage.CatalogStore
}

// NewSQLiteCatalog opens the catalog database at dbPath. An empty database
// is seeded with the built-in raagas so a fresh deployment behaves like one
// without a database.
func NewSQLiteCatalog(dbPath string) (CatalogSource, error) {
	store, err := storage.NewCatalogStoreWithPath(dbPath)
	if err != nil {
		return nil, err
	}

	n, err := store.Count()
	if err != nil {
		store.Close()
		return nil, err
	}
	if n == 0 {
		if _, err := store.Seed(raaga.BuiltinDefinitions()); err != nil {
			store.Close()
			return nil, fmt.Errorf("seeding catalog: %w", err)
		}
	}

	return &sqliteCatalog{store: store}, nil
}

func (c *sqliteCatalog) Definitions() ([]models.RaagaDefinition, error) {
	return c.store.Definitions()
}

func (c *sqliteCatalog) Close() error {
	return c.store.Close()
}

// staticCatalog serves a fixed list of definitions.
type staticCatalog []models.RaagaDefinition

// StaticCatalog wraps defs as a CatalogSource.
func StaticCatalog(defs []models.RaagaDefinition) CatalogSource {
	return staticCatalog(defs)
}

func (c staticCatalog) Definitions() ([]models.RaagaDefinition, error) {
	return c, nil
}

func (staticCatalog) Close() error { return nil }
