// internal/domain/sale/service.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"github.com/your-org/pharmacy-pos/internal/pkg/metrics"
	"github.com/your-org/pharmacy-pos/internal/pkg/postcommit"
	"github.com/your-org/pharmacy-pos/internal/pkg/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const moduleName = "sale"

// ShortfallRecorder opens a reconciliation case for an oversold line
type ShortfallRecorder interface {
	OpenCase(ctx context.Context, s *Sale, w StockWarning) error
}

// Service coordinates checkouts
type Service struct {
	db         *gorm.DB
	config     *config.Config
	tx         *database.Transactor
	validator  *validation.Validator
	shortfalls ShortfallRecorder
	dispatcher *postcommit.Dispatcher
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	tracer     trace.Tracer
	now        func() time.Time
	receipts   func(prefix string, now time.Time) string
}

// Option customizes a Service
type Option func(*Service)

// WithClock sets the clock receipt numbers are stamped with
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithReceiptNumbers replaces GenerateReceiptNumber
func WithReceiptNumbers(generate func(prefix string, now time.Time) string) Option {
	return func(s *Service) {
		s.receipts = generate
	}
}

// NewService creates a new sale service. shortfalls, dispatcher and m may be nil.
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	shortfalls ShortfallRecorder,
	dispatcher *postcommit.Dispatcher,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
	opts ...Option,
) *Service {
	s := &Service{
		db:         db,
		config:     cfg,
		tx:         database.NewTransactor(db, cfg.Database.TxIsolation),
		validator:  validation.New(),
		shortfalls: shortfalls,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.WithField("module", moduleName),
		tracer:     otel.Tracer("pharmacy-pos/sale"),
		now:        time.Now,
		receipts:   GenerateReceiptNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ItemRequest is one requested line
type ItemRequest struct {
	ProductID uint `json:"product_id" validate:"gt=0"`
	Quantity  int  `json:"quantity" validate:"gte=1,max=1000000"`
}

// SaleRequest represents a checkout
type SaleRequest struct {
	Items         []ItemRequest   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required,oneof=cash card mobile_money insurance"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	IgnoreStock   bool            `json:"ignore_stock"`
}

// SaleResult is the outcome of a committed sale
type SaleResult struct {
	Sale      *Sale           `json:"sale"`
	ChangeDue decimal.Decimal `json:"change_due"`
	Warnings  []StockWarning  `json:"warnings,omitempty"`
}

// lineResult carries what the audit entry of a line needs
type lineResult struct {
	product *product.Product
	before  stock.Record
	after   stock.Record
	applied bool
	deficit int
}

// ProcessSale prices the items, moves stock and records the sale in one transaction.
// With IgnoreStock the sale commits even when lines are oversold; each oversold line
// gets a warning on the sale and a reconciliation case after commit. The caller is
// responsible for deciding whether the actor may set IgnoreStock.
func (s *Service) ProcessSale(ctx context.Context, a actor.Actor, req *SaleRequest) (*SaleResult, error) {
	ctx, span := s.tracer.Start(ctx, "sale.ProcessSale", trace.WithAttributes(
		attribute.Int("tenant.id", int(a.TenantID)),
		attribute.Int("sale.items", len(req.Items)),
		attribute.Bool("sale.ignore_stock", req.IgnoreStock),
	))
	defer span.End()

	result, err := s.processSale(ctx, a, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.SaleFailed(errorCode(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("sale.receipt_number", result.Sale.ReceiptNumber))
	s.metrics.SaleCommitted(req.IgnoreStock, len(result.Warnings))
	return result, nil
}

func (s *Service) processSale(ctx context.Context, a actor.Actor, req *SaleRequest) (*SaleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.AmountPaid.IsNegative() {
		return nil, apperrors.ValidationWithFields("request validation failed", map[string]string{
			"amount_paid": "must be greater than or equal to 0",
		})
	}

	log := s.logger.WithFields(logrus.Fields{
		"tenant_id":    a.TenantID,
		"attendant_id": a.ID,
		"ignore_stock": req.IgnoreStock,
	})

	sale := &Sale{
		TenantID:      a.TenantID,
		AttendantID:   a.ID,
		AmountPaid:    req.AmountPaid,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusCompleted,
		Metadata: Metadata{
			IgnoreStock:   req.IgnoreStock,
			StockWarnings: []StockWarning{},
		},
	}

	err := s.tx.Run(ctx, "sale", func(tx *gorm.DB) error {
		lines := make([]lineResult, 0, len(req.Items))
		subtotal := decimal.Zero

		for i, item := range req.Items {
			line, warning, err := s.applyLine(tx, log, a, item, req.IgnoreStock)
			if err != nil {
				return err
			}
			if warning != nil {
				sale.Metadata.StockWarnings = append(sale.Metadata.StockWarnings, *warning)
			}

			p := line.product
			unitPrice := p.UnitPrice()
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			subtotal = subtotal.Add(lineTotal)

			sale.Items = append(sale.Items, SaleItem{
				LineNo:      i + 1,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				UnitPrice:   unitPrice.Round(4),
				LineTotal:   lineTotal,
				UnitType:    p.Stock.UnitType,
			})
			lines = append(lines, line)
		}

		sale.Subtotal = subtotal
		sale.TotalAmount = subtotal
		if req.AmountPaid.LessThan(sale.TotalAmount) {
			return apperrors.InsufficientPayment(sale.TotalAmount.StringFixed(2), req.AmountPaid.StringFixed(2))
		}
		sale.ChangeDue = req.AmountPaid.Sub(sale.TotalAmount)
		sale.ReceiptNumber = s.receipts(s.config.Ledger.ReceiptPrefix, s.now())

		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for i, line := range lines {
			item := sale.Items[i]
			rec := audit.StockChange(a.TenantID, item.ProductID, a.ID, audit.SaleDetails{
				SaleID:        sale.ID,
				ReceiptNumber: sale.ReceiptNumber,
				LineNo:        item.LineNo,
				Quantity:      item.Quantity,
				UnitPrice:     item.UnitPrice,
				LineTotal:     item.LineTotal,
				IgnoreStock:   req.IgnoreStock,
				Deficit:       line.deficit,
				StockApplied:  line.applied,
			}, line.before, line.after)
			if _, err := audit.Append(tx, rec); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"sale_id":        sale.ID,
		"receipt_number": sale.ReceiptNumber,
		"total_amount":   sale.TotalAmount.String(),
		"warnings":       len(sale.Metadata.StockWarnings),
	}).Info("Sale completed")

	for _, line := range sale.Items {
		s.metrics.UnitsSoldBy(string(stock.PolicyFor(line.UnitType)), line.Quantity)
	}
	s.queueReconciliation(sale)

	result := &SaleResult{
		Sale:      sale,
		ChangeDue: sale.ChangeDue,
	}
	if len(sale.Metadata.StockWarnings) > 0 {
		result.Warnings = sale.Metadata.StockWarnings
	}
	return result, nil
}

// applyLine loads one product inside the sale transaction and takes the line's
// quantity off its stock. Later lines for the same product see this line's change.
func (s *Service) applyLine(tx *gorm.DB, log logrus.FieldLogger, a actor.Actor, item ItemRequest, ignoreStock bool) (lineResult, *StockWarning, error) {
	p, err := product.FindForTenant(tx, a.TenantID, item.ProductID)
	if err != nil {
		return lineResult{}, nil, err
	}
	if !p.IsActive() {
		return lineResult{}, nil, apperrors.InactiveProduct(p.Name, string(p.Status))
	}

	line := lineResult{product: p, before: p.Stock, after: p.Stock}
	available := p.Stock.TotalUnits()
	lineLog := log.WithFields(logrus.Fields{
		"product_id": p.ID,
		"requested":  item.Quantity,
		"available":  available,
	})

	var warning *StockWarning
	if !ignoreStock {
		if item.Quantity > available {
			return lineResult{}, nil, apperrors.InsufficientStock(p.Name, available, item.Quantity)
		}
	} else if item.Quantity > available {
		line.deficit = item.Quantity - available
		warning = &StockWarning{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   item.Quantity,
			Available:   available,
			Deficit:     line.deficit,
		}
	}

	next, err := stock.Apply(p.Stock, item.Quantity, stock.ModeDecrement)
	if err != nil {
		if !errors.Is(err, stock.ErrInsufficientStock) {
			return lineResult{}, nil, fmt.Errorf("failed to apply stock for product %d: %w", p.ID, err)
		}
		if item.Quantity <= available {
			// only the whole-unit path can refuse a covered quantity
			lineLog.WithFields(logrus.Fields{
				"unit_type":      p.Stock.UnitType,
				"units_per_pack": p.Stock.UnitsPerPack,
			}).Warn("Whole-unit product has more than one unit per pack; pack arithmetic cannot cover the sale")
		}
		if !ignoreStock {
			return lineResult{}, nil, apperrors.InsufficientStock(p.Name, available, item.Quantity)
		}
		lineLog.WithError(err).Warn("Override sale left stock unchanged for oversold line")
		return line, warning, nil
	}

	p.Stock = next
	if err := product.SaveStock(tx, p); err != nil {
		return lineResult{}, nil, err
	}
	line.after = next
	line.applied = true
	return line, warning, nil
}

// queueReconciliation opens one case per oversold line after commit
func (s *Service) queueReconciliation(sale *Sale) {
	if s.dispatcher == nil || s.shortfalls == nil {
		return
	}
	for _, w := range sale.Metadata.StockWarnings {
		if w.Deficit <= 0 {
			continue
		}
		warning := w
		s.dispatcher.Go("reconciliation_case", logrus.Fields{
			"module":     moduleName,
			"sale_id":    sale.ID,
			"product_id": warning.ProductID,
			"deficit":    warning.Deficit,
		}, func(ctx context.Context) error {
			return s.shortfalls.OpenCase(ctx, sale, warning)
		})
	}
}

// GetSale retrieves a sale with its lines in order
func (s *Service) GetSale(ctx context.Context, tenantID, id uint) (*Sale, error) {
	var sale Sale
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("sale", id)
		}
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}
	return &sale, nil
}

func errorCode(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Code
	}
	return apperrors.CodeInternal
}
