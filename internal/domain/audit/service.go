// internal/domain/audit/service.go
package audit

import (
	"context"
	"fmt"

	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"gorm.io/gorm"
)

// Record describes one entry to append
type Record struct {
	TenantID    uint
	ProductID   uint
	PerformedBy uint
	Details     Details
	Previous    *stock.Snapshot
	Next        *stock.Snapshot
}

// Append writes an entry using the caller's transaction. There is no update or
// delete counterpart.
func Append(tx *gorm.DB, rec Record) (*Entry, error) {
	if rec.Details == nil {
		return nil, fmt.Errorf("audit details are required")
	}

	entry := &Entry{
		TenantID:      rec.TenantID,
		ProductID:     rec.ProductID,
		Action:        rec.Details.Action(),
		PerformedBy:   rec.PerformedBy,
		Details:       Payload{Details: rec.Details},
		PreviousState: rec.Previous,
		NewState:      rec.Next,
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to write %s audit entry: %w", entry.Action, err)
	}
	return entry, nil
}

// StockChange is a convenience for entries that move a product from one stock state to another
func StockChange(tenantID, productID, performedBy uint, details Details, before, after stock.Record) Record {
	return Record{
		TenantID:    tenantID,
		ProductID:   productID,
		PerformedBy: performedBy,
		Details:     details,
		Previous:    snapshotPtr(before.Snapshot()),
		Next:        snapshotPtr(after.Snapshot()),
	}
}

// Service serves audit history
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new audit service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// HistoryRequest filters the audit trail
type HistoryRequest struct {
	TenantID  uint
	ProductID uint
	Action    Action
	Page      int
	Limit     int
}

// HistoryResponse is one page of entries, newest first
type HistoryResponse struct {
	Entries    []Entry             `json:"entries"`
	Pagination database.Pagination `json:"pagination"`
}

// History returns audit entries for a tenant, optionally narrowed to a product and action
func (s *Service) History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	page := database.NormalizePage(req.Page, req.Limit, s.config.Ledger.DefaultPageSize, s.config.Ledger.MaxPageSize)

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ?", req.TenantID)
		if req.ProductID > 0 {
			db = db.Where("product_id = ?", req.ProductID)
		}
		if req.Action != "" {
			db = db.Where("action = ?", req.Action)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}

	entries := []Entry{}
	if err := s.db.WithContext(ctx).Scopes(filter, page.Scope).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve audit entries: %w", err)
	}

	return &HistoryResponse{
		Entries:    entries,
		Pagination: page.Describe(total),
	}, nil
}

// IsValidAction checks an action filter
func IsValidAction(action Action) bool {
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete, ActionStockAdjust, ActionStockAdd, ActionStockRemove, ActionSale:
		return true
	}
	return false
}
