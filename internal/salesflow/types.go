package salesflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Stage is the phase of the sales order workflow
type Stage string

const (
	StageProposal        Stage = "Proposal"
	StageClosing         Stage = "Closing"
	StagePaymentFollowup Stage = "Payment Followup"
)

// legacyProposal is the older name some records still carry
const legacyProposal = "Proposal or Negotiation"

// ParseStage maps a stage name to a Stage. Unknown names return false.
func ParseStage(s string) (Stage, bool) {
	switch strings.TrimSpace(s) {
	case string(StageProposal), legacyProposal:
		return StageProposal, true
	case string(StageClosing):
		return StageClosing, true
	case string(StagePaymentFollowup):
		return StagePaymentFollowup, true
	}
	return "", false
}

// Status is the outcome recorded in the Closing stage
type Status string

const (
	StatusNone Status = ""
	StatusWon  Status = "Won"
	StatusLost Status = "Lost"
	StatusPaid Status = "Paid"
)

// ParseStatus accepts Won, Lost, Paid or an empty value (also "none")
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StatusNone, nil
	case "won":
		return StatusWon, nil
	case "lost":
		return StatusLost, nil
	case "paid":
		return StatusPaid, nil
	}
	return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ParseAmount turns user or server text into a decimal; anything unparseable is zero
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PriceText holds a price as typed. The API sends it as a string or a number.
type PriceText string

func (p *PriceText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = PriceText(n.String())
	return nil
}

// ProductRef is a product the visit recorded interest in
type ProductRef struct {
	ID          int64  `json:"id"`
	ProductName string `json:"product_name"`
}

// LineItem is one priced product line of an order
type LineItem struct {
	Product     int64     `json:"product"`
	ProductName string    `json:"product_name,omitempty"`
	Price       PriceText `json:"price"`
}

// Visit is a field-sales contact record
type Visit struct {
	ID                 int64        `json:"id"`
	CompanyName        string       `json:"company_name"`
	ProductsInterested []ProductRef `json:"products_interested"`
	SalesItems         []LineItem   `json:"sales_items,omitempty"`
	AcquisitionStage   string       `json:"acquisition_stage,omitempty"`
}

// Payment is an amount collected against one product line
type Payment struct {
	Product int64           `json:"product"`
	Amount  decimal.Decimal `json:"amount"`
}

// MarshalJSON writes the amount as a JSON number
func (p Payment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Product int64       `json:"product"`
		Amount  json.Number `json:"amount"`
	}{p.Product, json.Number(p.Amount.String())})
}

// Sale is the order created from a visit
type Sale struct {
	ID           int64      `json:"id"`
	IsOrderFinal bool       `json:"is_order_final"`
	Status       Status     `json:"status"`
	ReasonLost   string     `json:"reason_lost,omitempty"`
	Items        []LineItem `json:"items,omitempty"`
	Payments     []Payment  `json:"payments,omitempty"`
}

// PayloadItem is a line item as sent to the upsert endpoint
type PayloadItem struct {
	Product int64
	Price   decimal.Decimal
}

func (p PayloadItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Product int64       `json:"product"`
		Price   json.Number `json:"price"`
	}{p.Product, json.Number(p.Price.String())})
}

// SubmitPayload is the stage dependent body for POST /sales/create-from-visit/{id}/
type SubmitPayload struct {
	Items        []PayloadItem `json:"items"`
	IsOrderFinal *bool         `json:"is_order_final,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	ReasonLost   *string       `json:"reason_lost,omitempty"`
	Payments     []Payment     `json:"payments,omitempty"`
}

// Draft is the unsaved form state kept locally per visit
type Draft struct {
	Stage   Stage
	IsFinal bool
	Status  Status
	Reason  string
	Prices  map[int64]string
}
