package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const nairaSymbol = "₦"

var nairaLocale = language.MustParse("en-NG")

// Amount is a whole-naira currency amount. Minor units are not tracked.
type Amount int64

// String renders the amount with FormatNaira.
func (a Amount) String() string {
	return FormatNaira(a)
}

// FormatNaira renders an amount with the naira symbol and en-NG digit grouping,
// e.g. 9900 becomes "₦9,900".
func FormatNaira(a Amount) string {
	return nairaSymbol + message.NewPrinter(nairaLocale).Sprintf("%d", int64(a))
}
