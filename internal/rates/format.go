package rates

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var turkishPrinter = message.NewPrinter(language.Turkish)

// FormatLocal renders a TRY amount with Turkish digit grouping, e.g.
// 12499.9 becomes "12.499,90 ₺".
func FormatLocal(amount float64) string {
	return turkishPrinter.Sprintf("%v ₺", number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}
