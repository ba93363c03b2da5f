package dashboard

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders a dollar amount with thousands grouping, dropping
// the cents when the value is whole.
func FormatCurrency(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("$%.0f", v)
	}
	return printer.Sprintf("$%.2f", v)
}

// FormatCount renders an integer with thousands grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
