package salesflow

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Workflow is the editable state of one visit's sales order
type Workflow struct {
	VisitID     int64
	CompanyName string
	Items       []LineItem
	Stage       Stage
	IsFinal     bool
	Status      Status
	Reason      string
	Payments    map[int64]string

	// Sale is the server record this state was built from, nil before the first save
	Sale *Sale

	drafts *DraftStore
	log    zerolog.Logger
}

// NewWorkflow builds a workflow detached from any server record
func NewWorkflow(visitID int64, items []LineItem, drafts *DraftStore, log zerolog.Logger) *Workflow {
	return &Workflow{
		VisitID:  visitID,
		Items:    items,
		Stage:    StageProposal,
		Payments: map[int64]string{},
		drafts:   drafts,
		log:      log,
	}
}

// PricesLocked reports whether line prices can still be edited
func (w *Workflow) PricesLocked() bool {
	return w.IsFinal || w.Stage != StageProposal
}

// SetPrice stores the raw price text of one line
func (w *Workflow) SetPrice(index int, value string) error {
	if w.PricesLocked() {
		return ErrPricesLocked
	}
	if index < 0 || index >= len(w.Items) {
		return ErrLineIndex
	}
	w.Items[index].Price = PriceText(value)
	w.persist()
	return nil
}

// Total sums every line price, counting unparseable prices as zero
func (w *Workflow) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range w.Items {
		total = total.Add(ParseAmount(string(item.Price)))
	}
	return total
}

// MarkFinal toggles the final order flag during Proposal
func (w *Workflow) MarkFinal(final bool) error {
	if w.Stage != StageProposal {
		return ErrWrongStage
	}
	w.IsFinal = final
	w.persist()
	return nil
}

// SetStatus records the closing outcome; any status but Lost clears the reason
func (w *Workflow) SetStatus(status Status) error {
	if w.Stage != StageClosing {
		return ErrWrongStage
	}
	status, err := ParseStatus(string(status))
	if err != nil {
		return err
	}
	w.Status = status
	if status != StatusLost {
		w.Reason = ""
	}
	w.persist()
	return nil
}

// SetReason records why a sale was lost
func (w *Workflow) SetReason(reason string) error {
	if w.Stage != StageClosing {
		return ErrWrongStage
	}
	w.Reason = reason
	w.persist()
	return nil
}

// SetPayment stores the raw payment text for one product
func (w *Workflow) SetPayment(productID int64, value string) error {
	if w.Stage != StagePaymentFollowup {
		return ErrWrongStage
	}
	if _, ok := w.item(productID); !ok {
		return ErrUnknownProduct
	}
	if w.Payments == nil {
		w.Payments = map[int64]string{}
	}
	w.Payments[productID] = value
	return nil
}

// PaymentCap is the advisory maximum for a product's payment: its price
func (w *Workflow) PaymentCap(productID int64) decimal.Decimal {
	item, ok := w.item(productID)
	if !ok {
		return decimal.Zero
	}
	return ParseAmount(string(item.Price))
}

// OverCap lists products whose typed payment exceeds the line price
func (w *Workflow) OverCap() []int64 {
	var over []int64
	for _, item := range w.Items {
		cap := ParseAmount(string(item.Price))
		if cap.IsPositive() && ParseAmount(w.Payments[item.Product]).GreaterThan(cap) {
			over = append(over, item.Product)
		}
	}
	return over
}

func (w *Workflow) item(productID int64) (LineItem, bool) {
	for _, it := range w.Items {
		if it.Product == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

type proposalForm struct {
	IsFinal bool `validate:"required"`
}

type closingForm struct {
	Status string `validate:"required,oneof=Won Lost Paid"`
	Reason string `validate:"required_if=Status Lost"`
}

var validate = validator.New()

// ValidateAdvance checks the required fields for leaving the current stage
func (w *Workflow) ValidateAdvance() error {
	switch w.Stage {
	case StageProposal:
		if err := validate.Struct(proposalForm{IsFinal: w.IsFinal}); err != nil {
			return &ValidationError{Field: "is_order_final", Message: "Mark as Final Order to proceed to Closing stage."}
		}
	case StageClosing:
		err := validate.Struct(closingForm{Status: string(w.Status), Reason: w.Reason})
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if verrs[0].Field() == "Reason" {
				return &ValidationError{Field: "reason_lost", Message: "Enter reason for lost sale to proceed."}
			}
			return &ValidationError{Field: "status", Message: "Select status to proceed."}
		}
		if err != nil {
			return err
		}
	case StagePaymentFollowup:
		return ErrTerminalStage
	}
	return nil
}

// NextStage is where a successful advance from the current stage leads
func (w *Workflow) NextStage() Stage {
	switch w.Stage {
	case StageProposal:
		return StageClosing
	case StageClosing:
		if w.Status == StatusWon {
			return StagePaymentFollowup
		}
	}
	return w.Stage
}

// Payload assembles only the fields that belong to the current stage
func (w *Workflow) Payload() SubmitPayload {
	p := SubmitPayload{Items: make([]PayloadItem, 0, len(w.Items))}
	for _, item := range w.Items {
		p.Items = append(p.Items, PayloadItem{
			Product: item.Product,
			Price:   ParseAmount(string(item.Price)),
		})
	}

	switch w.Stage {
	case StageProposal:
		final := w.IsFinal
		p.IsOrderFinal = &final
	case StageClosing:
		status := w.Status
		p.Status = &status
		if status == StatusLost {
			reason := w.Reason
			p.ReasonLost = &reason
		}
	case StagePaymentFollowup:
		for _, item := range w.Items {
			amount := ParseAmount(w.Payments[item.Product])
			if amount.IsPositive() {
				p.Payments = append(p.Payments, Payment{Product: item.Product, Amount: amount})
			}
		}
	}
	return p
}

// Draft captures the current state for local persistence
func (w *Workflow) Draft() Draft {
	prices := make(map[int64]string, len(w.Items))
	for _, item := range w.Items {
		prices[item.Product] = string(item.Price)
	}
	return Draft{
		Stage:   w.Stage,
		IsFinal: w.IsFinal,
		Status:  w.Status,
		Reason:  w.Reason,
		Prices:  prices,
	}
}

// persist mirrors every edit into the draft store; failures only lose reload continuity
func (w *Workflow) persist() {
	if w.drafts == nil {
		return
	}
	if err := w.drafts.Save(w.VisitID, w.Draft()); err != nil {
		w.log.Warn().Err(err).Int64("visit_id", w.VisitID).Msg("draft not saved")
	}
}
