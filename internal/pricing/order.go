package pricing

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Order is the base cost configuration of a session. It is read-only once
// built by NewOrder.
type Order struct {
	Subtotal    Amount            `json:"subtotal"`
	DeliveryFee Amount            `json:"delivery_fee"`
	ServiceFee  Amount            `json:"service_fee"`
	Tax         Amount            `json:"tax"`
	PromoCodes  map[string]Amount `json:"promo_codes"`
}

// NewOrder validates the cost components and normalizes the promo table.
// Fees must be non-negative, discounts positive, and codes unique once
// trimmed and uppercased.
func NewOrder(subtotal, deliveryFee, serviceFee, tax Amount, promoCodes map[string]Amount) (Order, error) {
	for name, v := range map[string]Amount{
		"subtotal":     subtotal,
		"delivery fee": deliveryFee,
		"service fee":  serviceFee,
		"tax":          tax,
	} {
		if v < 0 {
			return Order{}, fmt.Errorf("pricing: %s cannot be negative (got %d)", name, v)
		}
	}

	codes := make(map[string]Amount, len(promoCodes))
	for raw, discount := range promoCodes {
		code := NormalizeCode(raw)
		if code == "" {
			return Order{}, fmt.Errorf("pricing: promo code %q is blank", raw)
		}
		if discount <= 0 {
			return Order{}, fmt.Errorf("pricing: promo code %s must have a positive discount (got %d)", code, discount)
		}
		if _, dup := codes[code]; dup {
			return Order{}, fmt.Errorf("pricing: promo code %s is defined more than once", code)
		}
		codes[code] = discount
	}

	return Order{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		ServiceFee:  serviceFee,
		Tax:         tax,
		PromoCodes:  codes,
	}, nil
}

// NormalizeCode trims surrounding whitespace, including a byte order mark,
// and uppercases a promo code with full case mapping ("straße" becomes
// "STRASSE").
func NormalizeCode(raw string) string {
	trimmed := strings.TrimFunc(raw, isCodeSpace)
	// A Caser is stateful, so one is built per call.
	return cases.Upper(language.Und).String(trimmed)
}

func isCodeSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// Lookup returns the discount for an already normalized code.
func (o Order) Lookup(code string) (Amount, bool) {
	discount, ok := o.PromoCodes[code]
	return discount, ok
}

// Codes returns the promo codes in sorted order.
func (o Order) Codes() []string {
	codes := make([]string, 0, len(o.PromoCodes))
	for code := range o.PromoCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns a copy that shares no map with o.
func (o Order) Clone() Order {
	c := o
	c.PromoCodes = make(map[string]Amount, len(o.PromoCodes))
	for code, discount := range o.PromoCodes {
		c.PromoCodes[code] = discount
	}
	return c
}
