//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "sargam.sqlite3"
const errStoreNil = "catalog store is nil"

var ErrDuplicateRaaga = errors.New("raaga already exists")

// CatalogStore persists raaga definitions so a deployment can extend the
// built-in catalog without a rebuild.
type CatalogStore struct {
	DB *gorm.DB
	db *sql.DB
}

// RaagaRecord is one row of raaga_records. Patterns are stored as
// space-separated swaram names.
type RaagaRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Position    int    `gorm:"index:idx_raaga_position"`
	Name        string `gorm:"uniqueIndex:idx_raaga_name;not null"`
	Tradition   string `gorm:"type:varchar(16)"`
	Arohana     string
	Avarohana   string
	Description string
	CreatedAt   time.Time
}

func NewCatalogStore() (*CatalogStore, error) {
	dbPath := os.Getenv("SARGAM_CATALOG_DB")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewCatalogStoreWithPath(dbPath)
}

func NewCatalogStoreWithPath(dbPath string) (*CatalogStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RaagaRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &CatalogStore{DB: db, db: sqlDB}, nil
}

func (c *CatalogStore) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Add appends def after the last stored raaga. A name that differs from a
// stored one only in case is a duplicate.
func (c *CatalogStore) Add(def models.RaagaDefinition) error {
	if c == nil || c.DB == nil {
		return errors.New(errStoreNil)
	}
	if err := raaga.ValidateDefinition(def); err != nil {
		return err
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, def.Name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrDuplicateRaaga, def.Name)
		}
		pos, err := nextPosition(tx)
		if err != nil {
			return err
		}
		return insert(tx, def, pos)
	})
}

// Seed inserts every definition whose name is not stored yet, in order,
// after the existing rows. Existing rows keep their content and position.
// It returns how many rows were inserted.
func (c *CatalogStore) Seed(defs []models.RaagaDefinition) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errStoreNil)
	}
	for _, d := range defs {
		if err := raaga.ValidateDefinition(d); err != nil {
			return 0, err
		}
	}

	inserted := 0
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		pos, err := nextPosition(tx)
		if err != nil {
			return err
		}
		for _, d := range defs {
			taken, err := nameTaken(tx, d.Name)
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			if err := insert(tx, d, pos); err != nil {
				return err
			}
			pos++
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Definitions loads every stored raaga ordered by position.
func (c *CatalogStore) Definitions() ([]models.RaagaDefinition, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errStoreNil)
	}

	var rows []RaagaRecord
	if err := c.DB.Order("position ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying raagas: %w", err)
	}

	out := make([]models.RaagaDefinition, 0, len(rows))
	for _, r := range rows {
		def := r.definition()
		if err := raaga.ValidateDefinition(def); err != nil {
			return nil, fmt.Errorf("stored raaga %d: %w", r.ID, err)
		}
		out = append(out, def)
	}
	return out, nil
}

func (c *CatalogStore) Count() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errStoreNil)
	}
	var n int64
	if err := c.DB.Model(&RaagaRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting raagas: %w", err)
	}
	return n, nil
}

// nameTaken reports whether a stored raaga has name ignoring case, the
// same folding raaga.NewCatalog applies when it loads the rows.
func nameTaken(tx *gorm.DB, name string) (bool, error) {
	var names []string
	if err := tx.Model(&RaagaRecord{}).Pluck("name", &names).Error; err != nil {
		return false, fmt.Errorf("checking raaga %s: %w", name, err)
	}
	key := strings.ToLower(name)
	for _, n := range names {
		if strings.ToLower(n) == key {
			return true, nil
		}
	}
	return false, nil
}

func nextPosition(tx *gorm.DB) (int, error) {
	var last int64
	row := tx.Model(&RaagaRecord{}).Select("COALESCE(MAX(position), -1)").Row()
	if err := row.Scan(&last); err != nil {
		return 0, fmt.Errorf("reading last position: %w", err)
	}
	return int(last) + 1, nil
}

func insert(tx *gorm.DB, def models.RaagaDefinition, pos int) error {
	rec := RaagaRecord{
		Position:    pos,
		Name:        def.Name,
		Tradition:   string(def.Tradition),
		Arohana:     joinPattern(def.Arohana),
		Avarohana:   joinPattern(def.Avarohana),
		Description: def.Description,
	}
	if err := tx.Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateRaaga, def.Name)
		}
		return fmt.Errorf("creating raaga %s: %w", def.Name, err)
	}
	return nil
}

func (r RaagaRecord) definition() models.RaagaDefinition {
	return models.RaagaDefinition{
		Name:        r.Name,
		Tradition:   models.Tradition(r.Tradition),
		Arohana:     splitPattern(r.Arohana),
		Avarohana:   splitPattern(r.Avarohana),
		Description: r.Description,
	}
}

func joinPattern(p []models.SwaramName) string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}

func splitPattern(s string) []models.SwaramName {
	fields := strings.Fields(s)
	out := make([]models.SwaramName, len(fields))
	for i, f := range fields {
		out[i] = models.SwaramName(f)
	}
	return out
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}
