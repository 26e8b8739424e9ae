// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"github.com/your-org/pharmacy-pos/internal/pkg/validation"
	"gorm.io/gorm"
)

// Service handles the catalog data the ledger operates on
type Service struct {
	db        *gorm.DB
	config    *config.Config
	tx        *database.Transactor
	validator *validation.Validator
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		tx:        database.NewTransactor(db, cfg.Database.TxIsolation),
		validator: validation.New(),
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU                 string          `json:"sku" validate:"required,max=100"`
	Name                string          `json:"name" validate:"required,max=255"`
	UnitType            stock.UnitType  `json:"unit_type" validate:"required,max=30"`
	UnitsPerPack        int             `json:"units_per_pack" validate:"gte=1"`
	SellingPricePerPack decimal.Decimal `json:"selling_price_per_pack"`
	CostPricePerPack    decimal.Decimal `json:"cost_price_per_pack"`
	MinStockLevel       int             `json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel       int             `json:"max_stock_level" validate:"gte=0"`
	InitialPacks        int             `json:"initial_packs" validate:"gte=0"`
	InitialUnits        int             `json:"initial_units" validate:"gte=0"`
}

// UpdateStatusRequest represents a status change
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=active inactive discontinued"`
}

// Create adds a product with its opening stock. Opening units are normalized into packs.
func (s *Service) Create(ctx context.Context, a actor.Actor, req *CreateProductRequest) (*Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.SellingPricePerPack.IsNegative() || req.CostPricePerPack.IsNegative() {
		return nil, apperrors.ValidationWithFields("request validation failed", map[string]string{
			"pricing": "prices must not be negative",
		})
	}

	opening, err := stock.Restock(stock.Record{
		UnitsPerPack:  req.UnitsPerPack,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
		UnitType:      req.UnitType,
	}, req.InitialPacks, req.InitialUnits)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	product := &Product{
		TenantID: a.TenantID,
		SKU:      req.SKU,
		Name:     req.Name,
		Status:   StatusActive,
		Pricing: Pricing{
			SellingPricePerPack: req.SellingPricePerPack,
			CostPricePerPack:    req.CostPricePerPack,
		},
		Stock: opening,
	}

	err = s.tx.Run(ctx, "product creation", func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Product{}).Where("tenant_id = ? AND sku = ?", a.TenantID, req.SKU).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check sku: %w", err)
		}
		if existing > 0 {
			return apperrors.ValidationWithFields("request validation failed", map[string]string{
				"sku": fmt.Sprintf("product with sku '%s' already exists", req.SKU),
			})
		}

		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		after := product.Stock.Snapshot()
		_, err := audit.Append(tx, audit.Record{
			TenantID:    a.TenantID,
			ProductID:   product.ID,
			PerformedBy: a.ID,
			Details: audit.CreateDetails{
				Name:         product.Name,
				SKU:          product.SKU,
				UnitType:     product.Stock.UnitType,
				UnitsPerPack: product.Stock.UnitsPerPack,
				InitialPacks: req.InitialPacks,
				InitialUnits: req.InitialUnits,
			},
			Next: &after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// SetStatus changes whether a product can be sold
func (s *Service) SetStatus(ctx context.Context, a actor.Actor, id uint, req *UpdateStatusRequest) (*Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var product *Product
	err := s.tx.Run(ctx, "product status change", func(tx *gorm.DB) error {
		p, err := FindForTenant(tx, a.TenantID, id)
		if err != nil {
			return err
		}
		if p.Status == req.Status {
			product = p
			return nil
		}

		previous := p.Status
		if err := tx.Model(p).Update("status", req.Status).Error; err != nil {
			return fmt.Errorf("failed to update product status: %w", err)
		}
		p.Status = req.Status

		if _, err := audit.Append(tx, audit.Record{
			TenantID:    a.TenantID,
			ProductID:   p.ID,
			PerformedBy: a.ID,
			Details: audit.UpdateDetails{
				Field: "status",
				From:  string(previous),
				To:    string(req.Status),
			},
		}); err != nil {
			return err
		}

		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// Get retrieves a single product of a tenant
func (s *Service) Get(ctx context.Context, tenantID, id uint) (*Product, error) {
	return FindForTenant(s.db.WithContext(ctx), tenantID, id)
}

// ProductListRequest represents product listing filters
type ProductListRequest struct {
	Status Status `form:"status"`
	Search string `form:"search"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ProductListResponse is one page of products
type ProductListResponse struct {
	Products   []Product           `json:"products"`
	Pagination database.Pagination `json:"pagination"`
}

// List returns a tenant's products ordered by name
func (s *Service) List(ctx context.Context, tenantID uint, req *ProductListRequest) (*ProductListResponse, error) {
	if req.Status != "" && !IsValidStatus(req.Status) {
		return nil, apperrors.ValidationWithFields("invalid filter", map[string]string{
			"status": "must be one of [active inactive discontinued]",
		})
	}
	page := database.NormalizePage(req.Page, req.Limit, s.config.Ledger.DefaultPageSize, s.config.Ledger.MaxPageSize)

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ?", tenantID)
		if req.Status != "" {
			db = db.Where("status = ?", req.Status)
		}
		if req.Search != "" {
			pattern := "%" + strings.ToLower(req.Search) + "%"
			db = db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	products := []Product{}
	if err := s.db.WithContext(ctx).Scopes(filter, page.Scope).Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductListResponse{
		Products:   products,
		Pagination: page.Describe(total),
	}, nil
}

// FindForTenant loads a product scoped to its tenant. Pass a transaction to read
// that transaction's uncommitted stock.
func FindForTenant(db *gorm.DB, tenantID, id uint) (*Product, error) {
	var product Product
	if err := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// SaveStock persists the stock columns of p using the caller's transaction
func SaveStock(tx *gorm.DB, p *Product) error {
	result := tx.Model(&Product{}).Where("id = ? AND tenant_id = ?", p.ID, p.TenantID).Updates(map[string]any{
		"stock_full_packs":  p.Stock.FullPacks,
		"stock_loose_units": p.Stock.LooseUnits,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save stock for product %d: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// ListLowStock returns active products at or below their reorder threshold
func ListLowStock(db *gorm.DB, tenantID uint) ([]Product, error) {
	var products []Product
	err := db.
		Where("tenant_id = ? AND status = ?", tenantID, StatusActive).
		Where("stock_full_packs * CASE WHEN stock_units_per_pack < 1 THEN 1 ELSE stock_units_per_pack END + stock_loose_units <= " +
			"stock_min_stock_level * CASE WHEN stock_units_per_pack < 1 THEN 1 ELSE stock_units_per_pack END").
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock products: %w", err)
	}
	return products, nil
}
