// internal/domain/reconciliation/entity.go
package reconciliation

import (
	"time"
)

// Status represents where a case is in its resolution
type Status string

const (
	StatusPending       Status = "pending"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusAdjusted      Status = "adjusted"
)

// Action records how an adjusted case was settled
type Action string

const (
	ActionStockAdjusted  Action = "stock_adjusted"
	ActionWriteOff       Action = "write_off"
	ActionCustomerReturn Action = "customer_return"
)

// transitions lists the statuses each status may move to. Resolved and adjusted are terminal.
var transitions = map[Status][]Status{
	StatusPending:       {StatusInvestigating, StatusResolved, StatusAdjusted},
	StatusInvestigating: {StatusResolved, StatusAdjusted},
}

// Case tracks one oversold sale line until someone accounts for the deficit
type Case struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TenantID       uint       `gorm:"not null;index" json:"tenant_id"`
	SaleID         uint       `gorm:"not null;index" json:"sale_id"`
	ReceiptNumber  string     `gorm:"not null;size:50" json:"receipt_number"`
	ProductID      uint       `gorm:"not null;index" json:"product_id"`
	ProductName    string     `gorm:"not null;size:255" json:"product_name"`
	AttendantID    uint       `gorm:"not null;index" json:"attendant_id"`
	QuantitySold   int        `gorm:"not null" json:"quantity_sold"`
	AvailableStock int        `gorm:"not null" json:"available_stock"`
	Deficit        int        `gorm:"not null" json:"deficit"`
	Status         Status     `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Action         *Action    `gorm:"size:30" json:"action,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes"`
	ResolvedBy     *uint      `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides
func (Case) TableName() string { return "reconciliation_cases" }

// CanTransitionTo reports whether the case may move to next
func (c *Case) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[c.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the case is closed
func (c *Case) IsTerminal() bool {
	return len(transitions[c.Status]) == 0
}

// IsValidStatus checks a status value
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusInvestigating, StatusResolved, StatusAdjusted:
		return true
	}
	return false
}
