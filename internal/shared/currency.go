package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp1.250.000".
// Savings amounts are whole rupiah so fraction digits are dropped.
func FormatRupiah(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return rupiahPrinter.Sprintf("Rp%v", number.Decimal(f, number.MaxFractionDigits(0)))
}
