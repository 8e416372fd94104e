package ibkr

import (
	"strings"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/date"
)

// Price is a security's mark price on a given day.
type Price struct {
	Value beanport.Money
	Date  date.Date
}

// LatestPrices extracts statement-end mark prices from the open positions
// section, keyed by symbol. Symbols of securities trading off-exchange carry
// a trailing "z" that the rest of the ledger does not use.
func LatestPrices(st FlexStatement) (map[string]Price, []string) {
	prices := make(map[string]Price, len(st.Positions))
	var warnings []string
	for _, pos := range st.Positions {
		day, err := parseFlexDate(pos.ReportDate)
		if err != nil {
			warnings = append(warnings, "ibkr: open position "+pos.Symbol+": "+err.Error())
			continue
		}
		value, err := beanport.ParseMoney(pos.MarkPrice, pos.Currency)
		if err != nil {
			warnings = append(warnings, "ibkr: open position "+pos.Symbol+": "+err.Error())
			continue
		}
		symbol := strings.TrimRight(pos.Symbol, "z")
		prices[symbol] = Price{Value: value, Date: day}
	}
	return prices, warnings
}
