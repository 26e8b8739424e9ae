// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"github.com/your-org/pharmacy-pos/internal/pkg/metrics"
	"github.com/your-org/pharmacy-pos/internal/pkg/validation"
	"gorm.io/gorm"
)

// Service handles manual stock movements and stock reports
type Service struct {
	db        *gorm.DB
	config    *config.Config
	tx        *database.Transactor
	validator *validation.Validator
	audit     *audit.Service
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, logger logrus.FieldLogger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		tx:        database.NewTransactor(db, cfg.Database.TxIsolation),
		validator: validation.New(),
		audit:     audit.NewService(db, cfg),
		metrics:   m,
		logger:    logger.WithField("module", "inventory"),
	}
}

// AdjustStockRequest represents a manual stock movement
type AdjustStockRequest struct {
	Mode     AdjustMode     `json:"mode" validate:"required,oneof=add_packs add_units remove_packs set_packs"`
	Quantity int            `json:"quantity" validate:"gte=0,max=1000000"`
	Reason   MovementReason `json:"reason" validate:"omitempty,oneof=purchase return damage expiry adjustment recount"`
	Notes    string         `json:"notes" validate:"max=1000"`
}

// AdjustStockResponse is the product's stock before and after the movement
type AdjustStockResponse struct {
	ProductID uint           `json:"product_id"`
	Previous  stock.Snapshot `json:"previous_stock"`
	Updated   stock.Snapshot `json:"updated_stock"`
	AuditID   uint           `json:"audit_entry_id"`
}

// HistoryRequest filters the stock history
type HistoryRequest struct {
	ProductID uint         `form:"product_id"`
	Action    audit.Action `form:"action"`
	Page      int          `form:"page"`
	Limit     int          `form:"limit"`
}

// AdjustStock moves stock by hand and records the movement in the audit trail in the
// same transaction
func (s *Service) AdjustStock(ctx context.Context, a actor.Actor, productID uint, req *AdjustStockRequest) (*AdjustStockResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Mode != ModeSetPacks && req.Quantity < 1 {
		return nil, apperrors.ValidationWithFields("request validation failed", map[string]string{
			"quantity": "must be greater than or equal to 1",
		})
	}

	var response *AdjustStockResponse
	err := s.tx.Run(ctx, "stock adjustment", func(tx *gorm.DB) error {
		p, err := product.FindForTenant(tx, a.TenantID, productID)
		if err != nil {
			return err
		}

		before := p.Stock
		next, details, err := s.move(p, req)
		if err != nil {
			return err
		}

		p.Stock = next
		if err := product.SaveStock(tx, p); err != nil {
			return err
		}

		entry, err := audit.Append(tx, audit.StockChange(a.TenantID, p.ID, a.ID, details, before, next))
		if err != nil {
			return err
		}

		response = &AdjustStockResponse{
			ProductID: p.ID,
			Previous:  before.Snapshot(),
			Updated:   next.Snapshot(),
			AuditID:   entry.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockAdjusted(string(req.Mode))
	s.logger.WithFields(logrus.Fields{
		"tenant_id":  a.TenantID,
		"product_id": productID,
		"actor_id":   a.ID,
		"mode":       req.Mode,
		"quantity":   req.Quantity,
		"total":      response.Updated.TotalUnits,
	}).Info("Stock adjusted")
	return response, nil
}

// move computes the new stock record and the audit details for one movement
func (s *Service) move(p *product.Product, req *AdjustStockRequest) (stock.Record, audit.Details, error) {
	switch req.Mode {
	case ModeAddPacks, ModeAddUnits:
		packs, units := req.Quantity, 0
		if req.Mode == ModeAddUnits {
			packs, units = 0, req.Quantity
		}
		next, err := stock.Restock(p.Stock, packs, units)
		if err != nil {
			return stock.Record{}, nil, apperrors.Validation(err.Error())
		}
		return next, audit.StockAddDetails{
			Mode:   string(req.Mode),
			Packs:  packs,
			Units:  units,
			Reason: string(req.Reason),
			Notes:  req.Notes,
		}, nil

	case ModeRemovePacks:
		next, err := stock.RemovePacks(p.Stock, req.Quantity)
		if err != nil {
			if errors.Is(err, stock.ErrInsufficientStock) {
				// only sealed packs can be removed, so availability is counted in packs
				return stock.Record{}, nil, apperrors.InsufficientStock(p.Name, p.Stock.FullPacks, req.Quantity).
					WithDetail("unit", "packs")
			}
			return stock.Record{}, nil, apperrors.Validation(err.Error())
		}
		return next, audit.StockRemoveDetails{
			Packs:  req.Quantity,
			Reason: string(req.Reason),
			Notes:  req.Notes,
		}, nil

	case ModeSetPacks:
		next, err := stock.SetPacks(p.Stock, req.Quantity)
		if err != nil {
			return stock.Record{}, nil, apperrors.Validation(err.Error())
		}
		return next, audit.StockAdjustDetails{
			Mode:     string(req.Mode),
			Quantity: req.Quantity,
			Reason:   string(req.Reason),
			Notes:    req.Notes,
		}, nil
	}

	return stock.Record{}, nil, fmt.Errorf("invalid adjustment mode: %s", req.Mode)
}

// StockHistory returns a page of the tenant's audit trail, newest first
func (s *Service) StockHistory(ctx context.Context, tenantID uint, req HistoryRequest) (*audit.HistoryResponse, error) {
	if req.Action != "" && !audit.IsValidAction(req.Action) {
		return nil, apperrors.ValidationWithFields("invalid filter", map[string]string{
			"action": "must be a known audit action",
		})
	}

	return s.audit.History(ctx, audit.HistoryRequest{
		TenantID:  tenantID,
		ProductID: req.ProductID,
		Action:    req.Action,
		Page:      req.Page,
		Limit:     req.Limit,
	})
}

// LowStock lists active products at or below their reorder threshold. The report is
// advisory and never blocks a sale.
func (s *Service) LowStock(ctx context.Context, tenantID uint) ([]LowStockItem, error) {
	products, err := product.ListLowStock(s.db.WithContext(ctx), tenantID)
	if err != nil {
		return nil, err
	}

	items := make([]LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, newLowStockItem(p))
	}
	return items, nil
}
