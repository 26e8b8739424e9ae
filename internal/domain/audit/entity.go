// internal/domain/audit/entity.go
package audit

import (
	"errors"
	"time"

	"github.com/your-org/pharmacy-pos/internal/domain/stock"
	"gorm.io/gorm"
)

// Action is the kind of stock-affecting operation an entry records
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionStockAdjust Action = "stock_adjust"
	ActionStockAdd    Action = "stock_add"
	ActionStockRemove Action = "stock_remove"
	ActionSale        Action = "sale"
)

// ErrAppendOnly is returned by any attempt to change a written entry
var ErrAppendOnly = errors.New("audit entries are append-only")

// Entry is one line of the stock audit trail
type Entry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TenantID      uint            `gorm:"not null;index" json:"tenant_id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	Action        Action          `gorm:"not null;size:20;index" json:"action"`
	PerformedBy   uint            `gorm:"not null;index" json:"performed_by"`
	Details       Payload         `gorm:"type:text;not null" json:"details"`
	PreviousState *stock.Snapshot `gorm:"type:text;serializer:json" json:"previous_state,omitempty"`
	NewState      *stock.Snapshot `gorm:"type:text;serializer:json" json:"new_state,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// TableName overrides
func (Entry) TableName() string { return "stock_audit_entries" }

// BeforeUpdate rejects updates
func (e *Entry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BeforeDelete rejects deletes
func (e *Entry) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// snapshotPtr is a small helper for optional states
func snapshotPtr(s stock.Snapshot) *stock.Snapshot {
	return &s
}
