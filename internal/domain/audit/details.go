// internal/domain/audit/details.go
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-pos/internal/domain/stock"
)

// Details is the action-specific payload of an entry. Each action has exactly one
// concrete shape.
type Details interface {
	Action() Action
}

// CreateDetails records a new product and its opening stock
type CreateDetails struct {
	Name         string         `json:"name"`
	SKU          string         `json:"sku"`
	UnitType     stock.UnitType `json:"unit_type"`
	UnitsPerPack int            `json:"units_per_pack"`
	InitialPacks int            `json:"initial_packs"`
	InitialUnits int            `json:"initial_units"`
}

// UpdateDetails records one changed product attribute
type UpdateDetails struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// DeleteDetails records a product being retired
type DeleteDetails struct {
	Reason string `json:"reason,omitempty"`
}

// SaleDetails records one sale line
type SaleDetails struct {
	SaleID        uint            `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	LineNo        int             `json:"line_no"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	IgnoreStock   bool            `json:"ignore_stock"`
	Deficit       int             `json:"deficit,omitempty"`
	// StockApplied is false when an override sale could not decrement stock at all
	StockApplied bool `json:"stock_applied"`
}

// StockAddDetails records packs or loose units received
type StockAddDetails struct {
	Mode   string `json:"mode"`
	Packs  int    `json:"packs"`
	Units  int    `json:"units"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// StockRemoveDetails records whole packs taken off the shelf
type StockRemoveDetails struct {
	Packs  int    `json:"packs"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// StockAdjustDetails records a correction, either a physical recount or a
// reconciliation adjustment
type StockAdjustDetails struct {
	Mode                 string `json:"mode"`
	Quantity             int    `json:"quantity"`
	Reason               string `json:"reason,omitempty"`
	Notes                string `json:"notes,omitempty"`
	ReconciliationCaseID *uint  `json:"reconciliation_case_id,omitempty"`
}

func (CreateDetails) Action() Action      { return ActionCreate }
func (UpdateDetails) Action() Action      { return ActionUpdate }
func (DeleteDetails) Action() Action      { return ActionDelete }
func (SaleDetails) Action() Action        { return ActionSale }
func (StockAddDetails) Action() Action    { return ActionStockAdd }
func (StockRemoveDetails) Action() Action { return ActionStockRemove }
func (StockAdjustDetails) Action() Action { return ActionStockAdjust }

// Payload stores Details as a {"kind", "data"} JSON envelope
type Payload struct {
	Details
}

type envelope struct {
	Kind Action          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Value implements driver.Valuer
func (p Payload) Value() (driver.Value, error) {
	if p.Details == nil {
		return nil, fmt.Errorf("audit payload is empty")
	}
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *Payload) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	case nil:
		p.Details = nil
		return nil
	default:
		return fmt.Errorf("unsupported audit payload type %T", value)
	}
}

// MarshalJSON writes the envelope
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Details == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(p.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s details: %w", p.Details.Action(), err)
	}
	return json.Marshal(envelope{Kind: p.Details.Action(), Data: data})
}

// UnmarshalJSON decodes the envelope into the concrete type for its kind
func (p *Payload) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		p.Details = nil
		return nil
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("failed to decode audit payload: %w", err)
	}

	d, err := decodeDetails(env.Kind, env.Data)
	if err != nil {
		return err
	}
	p.Details = d
	return nil
}

func decodeDetails(kind Action, data json.RawMessage) (Details, error) {
	switch kind {
	case ActionCreate:
		return decode[CreateDetails](kind, data)
	case ActionUpdate:
		return decode[UpdateDetails](kind, data)
	case ActionDelete:
		return decode[DeleteDetails](kind, data)
	case ActionSale:
		return decode[SaleDetails](kind, data)
	case ActionStockAdd:
		return decode[StockAddDetails](kind, data)
	case ActionStockRemove:
		return decode[StockRemoveDetails](kind, data)
	case ActionStockAdjust:
		return decode[StockAdjustDetails](kind, data)
	default:
		return nil, fmt.Errorf("unknown audit payload kind %q", kind)
	}
}

func decode[T Details](kind Action, data json.RawMessage) (Details, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s details: %w", kind, err)
	}
	return v, nil
}
