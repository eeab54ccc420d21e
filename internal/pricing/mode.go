package pricing

import (
	"fmt"
	"strings"
)

// FulfillmentMode selects whether the delivery fee applies.
type FulfillmentMode int

const (
	Delivery FulfillmentMode = iota
	Pickup
)

// String returns the wire value of the mode.
func (m FulfillmentMode) String() string {
	switch m {
	case Delivery:
		return "delivery"
	case Pickup:
		return "pickup"
	default:
		return fmt.Sprintf("FulfillmentMode(%d)", int(m))
	}
}

// Label returns the customer-facing name of the mode.
func (m FulfillmentMode) Label() string {
	if m == Pickup {
		return "Pick up"
	}
	return "Delivery"
}

// ParseFulfillmentMode accepts "delivery", "pickup" and "pick up" in any case.
func ParseFulfillmentMode(s string) (FulfillmentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delivery":
		return Delivery, nil
	case "pickup", "pick up", "pick-up":
		return Pickup, nil
	default:
		return Delivery, fmt.Errorf("pricing: unknown fulfillment mode %q", s)
	}
}

func (m FulfillmentMode) MarshalText() ([]byte, error) {
	if m != Delivery && m != Pickup {
		return nil, fmt.Errorf("pricing: invalid fulfillment mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *FulfillmentMode) UnmarshalText(text []byte) error {
	parsed, err := ParseFulfillmentMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
