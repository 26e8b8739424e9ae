// internal/domain/reconciliation/service.go
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/sale"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"github.com/your-org/pharmacy-pos/internal/pkg/metrics"
	"github.com/your-org/pharmacy-pos/internal/pkg/validation"
	"gorm.io/gorm"
)

const moduleName = "reconciliation"

// lockReleaseTimeout bounds the release call made after the request may have ended
const lockReleaseTimeout = 3 * time.Second

// Locker obtains short-lived distributed locks
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Service handles reconciliation cases
type Service struct {
	db        *gorm.DB
	config    *config.Config
	tx        *database.Transactor
	validator *validation.Validator
	locker    Locker
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
}

// NewService creates a new reconciliation service. locker and m may be nil; without
// a locker adjustments rely on the conditional status update alone.
func NewService(db *gorm.DB, cfg *config.Config, locker Locker, m *metrics.Metrics, logger logrus.FieldLogger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		tx:        database.NewTransactor(db, cfg.Database.TxIsolation),
		validator: validation.New(),
		locker:    locker,
		metrics:   m,
		logger:    logger.WithField("module", moduleName),
	}
}

// ResolveRequest represents a status change on a case
type ResolveRequest struct {
	Status Status  `json:"status" validate:"required,oneof=investigating resolved adjusted"`
	Notes  string  `json:"notes" validate:"max=2000"`
	Action *Action `json:"action,omitempty" validate:"omitempty,oneof=stock_adjusted write_off customer_return"`
}

// AdjustRequest represents a stock correction settling a case
type AdjustRequest struct {
	Quantity int    `json:"adjustment_quantity" validate:"gte=1,max=1000000"`
	Notes    string `json:"notes" validate:"max=2000"`
}

// AdjustResult is the settled case and the product's new stock
type AdjustResult struct {
	Case         *Case          `json:"case"`
	UpdatedStock stock.Snapshot `json:"updated_stock"`
}

// StatusStats aggregates cases of one status
type StatusStats struct {
	Status       Status `json:"status"`
	Count        int64  `json:"count"`
	TotalDeficit int64  `json:"total_deficit"`
}

// Stats summarizes a tenant's cases
type Stats struct {
	ByStatus    []StatusStats `json:"by_status"`
	Open        int64         `json:"open"`
	OpenDeficit int64         `json:"open_deficit"`
}

// OpenCase records an oversold sale line as a pending case. Lines without a deficit
// are ignored.
func (s *Service) OpenCase(ctx context.Context, sl *sale.Sale, w sale.StockWarning) error {
	if w.Deficit <= 0 {
		return nil
	}

	c := &Case{
		TenantID:       sl.TenantID,
		SaleID:         sl.ID,
		ReceiptNumber:  sl.ReceiptNumber,
		ProductID:      w.ProductID,
		ProductName:    w.ProductName,
		AttendantID:    sl.AttendantID,
		QuantitySold:   w.Requested,
		AvailableStock: w.Available,
		Deficit:        w.Deficit,
		Status:         StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create reconciliation case: %w", err)
	}

	s.metrics.CaseTransitioned(string(StatusPending))
	s.logger.WithFields(logrus.Fields{
		"case_id":    c.ID,
		"sale_id":    c.SaleID,
		"product_id": c.ProductID,
		"deficit":    c.Deficit,
	}).Info("Reconciliation case opened")
	return nil
}

// List returns a tenant's cases, newest first, optionally filtered by status
func (s *Service) List(ctx context.Context, tenantID uint, status Status) ([]Case, error) {
	if status != "" && !IsValidStatus(status) {
		return nil, apperrors.ValidationWithFields("invalid filter", map[string]string{
			"status": "must be one of [pending investigating resolved adjusted]",
		})
	}

	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	cases := []Case{}
	if err := query.Order("created_at DESC, id DESC").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve reconciliation cases: %w", err)
	}
	return cases, nil
}

// Stats groups a tenant's cases by status with summed deficits
func (s *Service) Stats(ctx context.Context, tenantID uint) (*Stats, error) {
	var rows []StatusStats
	err := s.db.WithContext(ctx).
		Model(&Case{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(deficit), 0) AS total_deficit").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reconciliation cases: %w", err)
	}

	stats := &Stats{ByStatus: rows}
	if stats.ByStatus == nil {
		stats.ByStatus = []StatusStats{}
	}
	for _, row := range rows {
		if row.Status == StatusPending || row.Status == StatusInvestigating {
			stats.Open += row.Count
			stats.OpenDeficit += row.TotalDeficit
		}
	}
	return stats, nil
}

// Resolve moves a case forward. Resolved and adjusted stamp the resolver; adjusted
// also needs an action. Closed cases cannot be resolved again.
func (s *Service) Resolve(ctx context.Context, a actor.Actor, id uint, req *ResolveRequest) (*Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Status == StatusAdjusted && req.Action == nil {
		return nil, apperrors.ValidationWithFields("request validation failed", map[string]string{
			"action": "is required when status is adjusted",
		})
	}

	var updated *Case
	err := s.tx.Run(ctx, "reconciliation resolution", func(tx *gorm.DB) error {
		c, err := findCase(tx, a.TenantID, id)
		if err != nil {
			return err
		}
		if c.IsTerminal() {
			return apperrors.InvalidState(fmt.Sprintf("reconciliation case is already %s", c.Status)).
				WithDetail("current_status", c.Status)
		}
		if !c.CanTransitionTo(req.Status) {
			return apperrors.InvalidState(fmt.Sprintf("reconciliation case cannot move from %s to %s", c.Status, req.Status)).
				WithDetail("current_status", c.Status)
		}

		updates := map[string]any{"status": req.Status}
		if req.Notes != "" {
			updates["notes"] = req.Notes
		}
		if req.Status == StatusResolved || req.Status == StatusAdjusted {
			now := time.Now().UTC()
			updates["resolved_by"] = a.ID
			updates["resolved_at"] = now
			if req.Action != nil {
				updates["action"] = *req.Action
			}
		}

		result := tx.Model(&Case{}).Where("id = ? AND status = ?", c.ID, c.Status).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update reconciliation case: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.InvalidState("reconciliation case was changed by another request")
		}

		updated, err = findCase(tx, a.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CaseTransitioned(string(updated.Status))
	s.logger.WithFields(logrus.Fields{
		"case_id":  updated.ID,
		"status":   updated.Status,
		"actor_id": a.ID,
	}).Info("Reconciliation case updated")
	return updated, nil
}

// AdjustFromCase puts adjustment quantity units back on the case's product, audits it
// against the case and closes the case as adjusted. Only pending cases qualify.
func (s *Service) AdjustFromCase(ctx context.Context, a actor.Actor, id uint, req *AdjustRequest) (*AdjustResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"tenant_id": a.TenantID,
		"case_id":   id,
		"actor_id":  a.ID,
	})

	if s.locker != nil {
		key := fmt.Sprintf("reconciliation:case:%d:%d", a.TenantID, id)
		lock, err := s.locker.Obtain(ctx, key, s.config.Ledger.AdjustLockTTL, nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			return nil, apperrors.InvalidState("reconciliation case is already being adjusted")
		case err != nil:
			log.WithError(err).Warn("Could not reach lock service, continuing without lock")
		default:
			defer releaseLock(ctx, lock, log)
		}
	}

	var result *AdjustResult
	err := s.tx.Run(ctx, "reconciliation adjustment", func(tx *gorm.DB) error {
		var c Case
		err := tx.Where("id = ? AND tenant_id = ? AND status = ?", id, a.TenantID, StatusPending).First(&c).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("pending reconciliation case", id)
			}
			return fmt.Errorf("failed to retrieve reconciliation case: %w", err)
		}

		p, err := product.FindForTenant(tx, a.TenantID, c.ProductID)
		if err != nil {
			return err
		}

		before := p.Stock
		next, err := stock.Apply(p.Stock, req.Quantity, stock.ModeIncrement)
		if err != nil {
			return apperrors.Validation(err.Error())
		}
		p.Stock = next
		if err := product.SaveStock(tx, p); err != nil {
			return err
		}

		caseID := c.ID
		if _, err := audit.Append(tx, audit.StockChange(a.TenantID, p.ID, a.ID, audit.StockAdjustDetails{
			Mode:                 "reconciliation",
			Quantity:             req.Quantity,
			Reason:               "reconciliation",
			Notes:                req.Notes,
			ReconciliationCaseID: &caseID,
		}, before, next)); err != nil {
			return err
		}

		now := time.Now().UTC()
		action := ActionStockAdjusted
		updates := map[string]any{
			"status":      StatusAdjusted,
			"action":      action,
			"resolved_by": a.ID,
			"resolved_at": now,
		}
		if req.Notes != "" {
			updates["notes"] = req.Notes
		}
		res := tx.Model(&Case{}).Where("id = ? AND status = ?", c.ID, StatusPending).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update reconciliation case: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("pending reconciliation case", id)
		}

		c.Status = StatusAdjusted
		c.Action = &action
		c.ResolvedBy = &a.ID
		c.ResolvedAt = &now
		if req.Notes != "" {
			c.Notes = req.Notes
		}

		result = &AdjustResult{
			Case:         &c,
			UpdatedStock: next.Snapshot(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CaseTransitioned(string(StatusAdjusted))
	s.metrics.StockAdjusted("reconciliation")
	log.WithFields(logrus.Fields{
		"product_id": result.Case.ProductID,
		"quantity":   req.Quantity,
		"total":      result.UpdatedStock.TotalUnits,
	}).Info("Stock adjusted from reconciliation case")
	return result, nil
}

// releaseLock frees the case lock even when ctx is already cancelled, so an aborted
// request does not hold the case until the TTL runs out
func releaseLock(ctx context.Context, lock *redislock.Lock, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()

	if err := lock.Release(ctx); err != nil {
		log.WithError(err).Warn("Failed to release reconciliation case lock")
	}
}

func findCase(tx *gorm.DB, tenantID, id uint) (*Case, error) {
	var c Case
	if err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("reconciliation case", id)
		}
		return nil, fmt.Errorf("failed to retrieve reconciliation case: %w", err)
	}
	return &c, nil
}
