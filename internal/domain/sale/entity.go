// internal/domain/sale/entity.go
package sale

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
)

// Status represents the sale status
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// PaymentMethod represents how the customer paid
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentInsurance   PaymentMethod = "insurance"
)

// StockWarning records a line sold past available stock
type StockWarning struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Deficit     int    `json:"deficit"`
}

// Metadata records whether enforcement was relaxed and by how much
type Metadata struct {
	IgnoreStock   bool           `gorm:"not null;default:false" json:"ignore_stock"`
	StockWarnings []StockWarning `gorm:"type:text;serializer:json" json:"stock_warnings"`
}

// Sale is one completed checkout
type Sale struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TenantID      uint   `gorm:"not null;index;uniqueIndex:idx_sales_tenant_receipt" json:"tenant_id"`
	ReceiptNumber string `gorm:"not null;size:50;uniqueIndex:idx_sales_tenant_receipt" json:"receipt_number"`
	AttendantID   uint   `gorm:"not null;index" json:"attendant_id"`

	// Financial Information
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_paid"`
	ChangeDue     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"change_due"`
	PaymentMethod PaymentMethod   `gorm:"not null;size:20" json:"payment_method"`
	Status        Status          `gorm:"not null;size:20;default:'completed'" json:"status"`

	Metadata Metadata `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// SaleItem is one line of a sale. Name, price and unit type are snapshots taken at
// sale time and never change afterwards.
type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"not null;index" json:"sale_id"`
	LineNo      int             `gorm:"not null" json:"line_no"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"not null;size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	UnitType    stock.UnitType  `gorm:"not null;size:30" json:"unit_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName overrides
func (Sale) TableName() string     { return "sales" }
func (SaleItem) TableName() string { return "sale_items" }

// HasShortfall reports whether any line was oversold
func (s *Sale) HasShortfall() bool {
	for _, w := range s.Metadata.StockWarnings {
		if w.Deficit > 0 {
			return true
		}
	}
	return false
}

// GenerateReceiptNumber builds a receipt number of the form PREFIX-YYYYMMDDHHMMSS-XXXXXX.
// The random suffix makes collisions unlikely, not impossible; the per-tenant unique
// index turns a collision into a retryable failure.
func GenerateReceiptNumber(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}
