// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/reconciliation"
	"github.com/your-org/pharmacy-pos/internal/domain/sale"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []any {
	return []any{
		&product.Product{},
		&sale.Sale{},
		&sale.SaleItem{},
		&audit.Entry{},
		&reconciliation.Case{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the ledger's hot queries
func (m *Migration) CreateIndexes() error {
	m.logger.Info("Creating additional database indexes")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_tenant_status ON products(tenant_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_products_tenant_name ON products(tenant_id, name)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_tenant_created ON sales(tenant_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_attendant ON sales(attendant_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale_line ON sale_items(sale_id, line_no)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_audit_tenant_product_created ON stock_audit_entries(tenant_id, product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_audit_tenant_action ON stock_audit_entries(tenant_id, action)",

		// Reconciliation indexes
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_tenant_status ON reconciliation_cases(tenant_id, status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_sale ON reconciliation_cases(sale_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("Database indexes created")
	return nil
}

// SeedInitialData creates a demo catalog for development, once per tenant
func (m *Migration) SeedInitialData(ctx context.Context, cfg *config.Config, tenantID uint) error {
	m.logger.Info("Seeding initial data")

	var count int64
	if err := m.db.Model(&product.Product{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		m.logger.WithField("tenant_id", tenantID).Info("Seed products already exist")
		return nil
	}

	owner := actor.Actor{ID: 1, Role: actor.RoleOwner, TenantID: tenantID}
	catalog := product.NewService(m.db, cfg)

	seeds := []product.CreateProductRequest{
		{
			SKU:                 "PARA-500",
			Name:                "Paracetamol 500mg",
			UnitType:            stock.UnitTablets,
			UnitsPerPack:        10,
			SellingPricePerPack: decimal.RequireFromString("12.50"),
			CostPricePerPack:    decimal.RequireFromString("8.00"),
			MinStockLevel:       5,
			MaxStockLevel:       200,
			InitialPacks:        50,
		},
		{
			SKU:                 "AMOX-250",
			Name:                "Amoxicillin 250mg",
			UnitType:            stock.UnitCapsules,
			UnitsPerPack:        21,
			SellingPricePerPack: decimal.RequireFromString("45.00"),
			CostPricePerPack:    decimal.RequireFromString("30.00"),
			MinStockLevel:       3,
			MaxStockLevel:       60,
			InitialPacks:        12,
		},
		{
			SKU:                 "COUGH-100",
			Name:                "Cough Syrup 100ml",
			UnitType:            stock.UnitBottles,
			UnitsPerPack:        1,
			SellingPricePerPack: decimal.RequireFromString("18.00"),
			CostPricePerPack:    decimal.RequireFromString("11.00"),
			MinStockLevel:       4,
			MaxStockLevel:       40,
			InitialPacks:        20,
		},
		{
			SKU:                 "HC-CREAM",
			Name:                "Hydrocortisone Cream 1%",
			UnitType:            stock.UnitTubes,
			UnitsPerPack:        1,
			SellingPricePerPack: decimal.RequireFromString("22.00"),
			CostPricePerPack:    decimal.RequireFromString("14.00"),
			MinStockLevel:       2,
			MaxStockLevel:       30,
			InitialPacks:        8,
		},
	}

	for i := range seeds {
		p, err := catalog.Create(ctx, owner, &seeds[i])
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", seeds[i].SKU, err)
		}
		m.logger.WithFields(logrus.Fields{"product_id": p.ID, "sku": p.SKU}).Info("Seeded product")
	}

	m.logger.Info("Initial data seeded successfully")
	return nil
}
