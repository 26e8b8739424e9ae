// Package testutil builds real databases and fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/infrastructure/database/postgres"
	"github.com/your-org/pharmacy-pos/internal/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TenantID is the tenant every fixture belongs to
const TenantID uint = 1

// Owner, Pharmacist and Attendant are fixture actors of TenantID
var (
	Owner      = actor.Actor{ID: 10, Role: actor.RoleOwner, TenantID: TenantID}
	Pharmacist = actor.Actor{ID: 20, Role: actor.RolePharmacist, TenantID: TenantID}
	Attendant  = actor.Actor{ID: 30, Role: actor.RoleAttendant, TenantID: TenantID}
)

// Config returns a configuration suitable for tests
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Pharmacy POS", Environment: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-at-least-32-characters",
			Issuer:            "pharmacy-identity",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{RateLimitPerMinute: 1000},
		Ledger: config.LedgerConfig{
			ReceiptPrefix:     "RCP",
			DefaultPageSize:   20,
			MaxPageSize:       100,
			PostCommitTimeout: 5 * time.Second,
			AdjustLockTTL:     5 * time.Second,
		},
	}
}

// NewDB opens a migrated SQLite database in a temp dir. It uses a single connection,
// so code under test must only touch the transaction while one is open.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, postgres.NewMigration(db, logger.Discard()).RunAutoMigrations())
	return db
}

// ProductOption tweaks a fixture product
type ProductOption func(*product.CreateProductRequest)

// WithStock sets the opening packs and loose units. Loose units are normalized.
func WithStock(packs, units int) ProductOption {
	return func(r *product.CreateProductRequest) {
		r.InitialPacks = packs
		r.InitialUnits = units
	}
}

// WithUnit sets the unit type and pack size
func WithUnit(unitType stock.UnitType, unitsPerPack int) ProductOption {
	return func(r *product.CreateProductRequest) {
		r.UnitType = unitType
		r.UnitsPerPack = unitsPerPack
	}
}

// WithPrice sets the selling price per pack
func WithPrice(price string) ProductOption {
	return func(r *product.CreateProductRequest) {
		r.SellingPricePerPack = decimal.RequireFromString(price)
	}
}

// CreateProduct creates an active product through the catalog service. The default
// is 10 tablets per pack at 12.50 a pack with 2 packs in stock.
func CreateProduct(t *testing.T, db *gorm.DB, sku string, opts ...ProductOption) *product.Product {
	t.Helper()

	req := &product.CreateProductRequest{
		SKU:                 sku,
		Name:                "Product " + sku,
		UnitType:            stock.UnitTablets,
		UnitsPerPack:        10,
		SellingPricePerPack: decimal.RequireFromString("12.50"),
		MinStockLevel:       1,
		MaxStockLevel:       100,
		InitialPacks:        2,
	}
	for _, opt := range opts {
		opt(req)
	}

	p, err := product.NewService(db, Config()).Create(context.Background(), Owner, req)
	require.NoError(t, err)
	return p
}

// SetLoose writes packs and loose units directly, bypassing normalization, to build
// states like 2 packs + 3 loose that a sale can leave behind
func SetLoose(t *testing.T, db *gorm.DB, productID uint, packs, loose int) {
	t.Helper()
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", productID).Updates(map[string]any{
		"stock_full_packs":  packs,
		"stock_loose_units": loose,
	}).Error)
}

// Reload reads a product back from the database
func Reload(t *testing.T, db *gorm.DB, productID uint) *product.Product {
	t.Helper()
	p, err := product.FindForTenant(db, TenantID, productID)
	require.NoError(t, err)
	return p
}
