package pricing

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCode      = errors.New("pricing: promo code is empty")
	ErrInvalidCode    = errors.New("pricing: promo code is not valid")
	ErrAlreadyApplied = errors.New("pricing: a promo code has already been applied")
)

const (
	msgEmptyCode      = "Please enter a promo code."
	msgInvalidCode    = "Invalid promo code. Please try again."
	msgAlreadyApplied = "A promo code has already been applied to this order."
)

// FeedbackStatus classifies promo feedback for styling.
type FeedbackStatus string

const (
	FeedbackSuccess FeedbackStatus = "success"
	FeedbackError   FeedbackStatus = "error"
)

// Feedback is the user-facing outcome of a promo code submission.
type Feedback struct {
	Status  FeedbackStatus `json:"status"`
	Message string         `json:"message"`
	Saved   Amount         `json:"saved,omitempty"`
}

// State is the mutable part of a session.
type State struct {
	Mode            FulfillmentMode `json:"mode"`
	AppliedDiscount Amount          `json:"applied_discount"`
	AppliedCode     string          `json:"applied_code,omitempty"`
}

// Breakdown holds the rendered price lines.
type Breakdown struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	ServiceFee  string `json:"service_fee"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
}

// Summary is the checkout report.
type Summary struct {
	Mode         string `json:"mode"`
	Total        string `json:"total"`
	Instructions string `json:"instructions,omitempty"`
	Text         string `json:"summary"`
}

// Engine prices one session. It is not safe for concurrent use.
type Engine struct {
	order Order
	state State
}

// NewEngine starts a session in delivery mode with no discount.
func NewEngine(order Order) *Engine {
	return &Engine{order: order.Clone()}
}

// RestoreEngine resumes a session from previously saved state.
func RestoreEngine(order Order, state State) *Engine {
	return &Engine{order: order.Clone(), state: state}
}

func (e *Engine) Order() Order { return e.order.Clone() }

func (e *Engine) State() State { return e.state }

func (e *Engine) Mode() FulfillmentMode { return e.state.Mode }

func (e *Engine) AppliedDiscount() Amount { return e.state.AppliedDiscount }

// PromoLocked reports whether a discount has been accepted this session.
func (e *Engine) PromoLocked() bool { return e.state.AppliedDiscount != 0 }

// SetFulfillmentMode switches the mode and returns the recomputed prices.
func (e *Engine) SetFulfillmentMode(mode FulfillmentMode) Breakdown {
	e.state.Mode = mode
	return e.Breakdown()
}

// ApplyPromoCode normalizes raw and tries to redeem it. The returned error is
// one of ErrAlreadyApplied, ErrEmptyCode or ErrInvalidCode; Feedback is always
// populated with the message to show.
func (e *Engine) ApplyPromoCode(raw string) (Feedback, error) {
	if e.PromoLocked() {
		return Feedback{Status: FeedbackError, Message: msgAlreadyApplied}, ErrAlreadyApplied
	}

	code := NormalizeCode(raw)
	if code == "" {
		return Feedback{Status: FeedbackError, Message: msgEmptyCode}, ErrEmptyCode
	}

	discount, ok := e.order.Lookup(code)
	if !ok {
		e.state.AppliedDiscount = 0
		e.state.AppliedCode = ""
		return Feedback{Status: FeedbackError, Message: msgInvalidCode}, ErrInvalidCode
	}

	e.state.AppliedDiscount = discount
	e.state.AppliedCode = code
	return Feedback{
		Status:  FeedbackSuccess,
		Message: "Promo code applied! You saved " + FormatNaira(discount) + ".",
		Saved:   discount,
	}, nil
}

// ComputeTotal returns the amount owed for the current state.
func (e *Engine) ComputeTotal() Amount {
	return ComputeTotal(e.order, e.state.Mode, e.state.AppliedDiscount)
}

// ComputeTotal is the pricing invariant: the sum of fees minus the discount,
// never below zero.
func ComputeTotal(order Order, mode FulfillmentMode, discount Amount) Amount {
	total := order.Subtotal + deliveryFee(order, mode) + order.ServiceFee + order.Tax - discount
	if total < 0 {
		return 0
	}
	return total
}

func deliveryFee(order Order, mode FulfillmentMode) Amount {
	if mode == Delivery {
		return order.DeliveryFee
	}
	return 0
}

// Breakdown renders the five price lines.
func (e *Engine) Breakdown() Breakdown {
	return Breakdown{
		Subtotal:    FormatNaira(e.order.Subtotal),
		DeliveryFee: FormatNaira(deliveryFee(e.order, e.state.Mode)),
		ServiceFee:  FormatNaira(e.order.ServiceFee),
		Tax:         FormatNaira(e.order.Tax),
		Total:       FormatNaira(e.ComputeTotal()),
	}
}

// Checkout builds the order summary. It does not change state.
func (e *Engine) Checkout(instructions string) Summary {
	instructions = strings.TrimSpace(instructions)
	s := Summary{
		Mode:         e.state.Mode.Label(),
		Total:        FormatNaira(e.ComputeTotal()),
		Instructions: instructions,
	}

	var b strings.Builder
	b.WriteString("Order Summary\n")
	b.WriteString("--------------\n")
	b.WriteString("Mode: " + s.Mode + "\n")
	b.WriteString("Total: " + s.Total + "\n")
	if instructions != "" {
		b.WriteString("Instructions: " + instructions + "\n")
	} else {
		b.WriteString("No special instructions\n")
	}
	b.WriteString("\nProceeding to checkout...")
	s.Text = b.String()

	return s
}
