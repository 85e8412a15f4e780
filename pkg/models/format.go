package models

import (
	"fmt"
	"strings"
)

// FormatPrice renders an amount in cents as a display string, e.g.
// 4900 → "$49.00" for USD
func FormatPrice(cents int, currency string) string {
	amount := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if strings.EqualFold(currency, "usd") {
		return "$" + amount
	}
	return amount + " " + strings.ToUpper(currency)
}
